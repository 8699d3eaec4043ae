package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerTrigger(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { called.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if got := called.Load(); got != 1 {
		t.Errorf("Function should be called once, got %d", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after the function ran")
	}
}

func TestDebouncerRunsLatest(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })
	d.Flush()

	if got.Load() != 2 {
		t.Errorf("ran function %d, want the latest (2)", got.Load())
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	if !d.Pending() {
		t.Fatal("Pending() = false after Trigger")
	}
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("Function should not be called after cancel")
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Flush()

	if !called.Load() {
		t.Error("Function should be called after flush")
	}
}

func TestDebouncerNoPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	d.Flush()
	d.Cancel()
	if d.Pending() {
		t.Error("Pending() = true on a fresh debouncer")
	}
}
