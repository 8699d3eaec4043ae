package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

func TestBuilderBasic(t *testing.T) {
	resp := New().
		Data(map[string]string{"key": "value"}).
		Build()

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", resp.SchemaVersion, CurrentSchemaVersion)
	}

	data, ok := resp.Data.(map[string]string)
	if !ok {
		t.Fatalf("Data type = %T, want map[string]string", resp.Data)
	}
	if data["key"] != "value" {
		t.Errorf("Data[key] = %q, want %q", data["key"], "value")
	}
	if resp.Meta != nil {
		t.Errorf("Meta = %+v, want nil", resp.Meta)
	}
}

func TestBuilderFromBackend(t *testing.T) {
	resp := New().FromBackend("rest", "https://grok.example.com").Build()
	if resp.Meta == nil || resp.Meta.Provenance == nil {
		t.Fatal("Provenance not set")
	}
	if resp.Meta.Provenance.Mode != "rest" {
		t.Errorf("Mode = %q, want rest", resp.Meta.Provenance.Mode)
	}

	resp = New().FromBackend("", "").Build()
	if resp.Meta != nil {
		t.Errorf("empty mode should not create Meta")
	}
}

func TestBuilderWithTruncation(t *testing.T) {
	tests := []struct {
		name      string
		truncated bool
		wantMeta  bool
	}{
		{"not truncated", false, false},
		{"truncated", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().WithTruncation(tt.truncated, 25, 130, "max-results").Build()
			if (resp.Meta != nil && resp.Meta.Truncation != nil) != tt.wantMeta {
				t.Fatalf("Truncation presence = %v, want %v", resp.Meta != nil, tt.wantMeta)
			}
			if tt.wantMeta {
				tr := resp.Meta.Truncation
				if tr.Shown != 25 || tr.Total != 130 || tr.Reason != "max-results" {
					t.Errorf("Truncation = %+v", tr)
				}
			}
		})
	}
}

func TestBuilderWarning(t *testing.T) {
	resp := New().
		Warning("first").
		WarningWithCode("PARTIAL", "second").
		Build()

	if len(resp.Warnings) != 2 {
		t.Fatalf("Warnings len = %d, want 2", len(resp.Warnings))
	}
	if resp.Warnings[1].Code != "PARTIAL" {
		t.Errorf("Warnings[1].Code = %q, want PARTIAL", resp.Warnings[1].Code)
	}
}

func TestBuilderError(t *testing.T) {
	t.Run("taxonomy error", func(t *testing.T) {
		resp := New().Error(errors.NewAuthenticationExpired("search", http.StatusUnauthorized)).Build()
		if resp.Error == nil {
			t.Fatal("Error not set")
		}
		if resp.Error.Code != string(errors.AuthenticationExpired) {
			t.Errorf("Code = %q", resp.Error.Code)
		}
		if resp.Error.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d", resp.Error.StatusCode)
		}
		if resp.Error.Remediation == "" {
			t.Error("Remediation empty")
		}
		if len(resp.SuggestedNextCalls) != 1 || resp.SuggestedNextCalls[0].Tool != "reloadCredentials" {
			t.Errorf("SuggestedNextCalls = %+v", resp.SuggestedNextCalls)
		}
	})

	t.Run("foreign error", func(t *testing.T) {
		resp := New().Error(fmt.Errorf("boom")).Build()
		if resp.Error == nil || resp.Error.Code != string(errors.InternalError) {
			t.Fatalf("Error = %+v", resp.Error)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if resp := New().Error(nil).Build(); resp.Error != nil {
			t.Errorf("Error = %+v, want nil", resp.Error)
		}
	})
}

func TestBuilderSuggest(t *testing.T) {
	resp := New().
		Suggest("getFile", map[string]interface{}{"path": "/kernel/main.c"}, "open first hit").
		Build()

	if len(resp.SuggestedNextCalls) != 1 {
		t.Fatalf("SuggestedNextCalls len = %d", len(resp.SuggestedNextCalls))
	}
	call := resp.SuggestedNextCalls[0]
	if call.Tool != "getFile" || call.Params["path"] != "/kernel/main.c" {
		t.Errorf("call = %+v", call)
	}
}

func TestResponseJSONSerialization(t *testing.T) {
	resp := New().
		Data([]string{"a"}).
		FromBackend("html", "https://grok.example.com").
		WithDuration(1500 * time.Millisecond).
		Build()

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"schemaVersion":"1.0"`, `"mode":"html"`, `"durationMs":1500`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
	if strings.Contains(s, `"error"`) {
		t.Errorf("JSON %s should omit error", s)
	}
}

func TestOperational(t *testing.T) {
	resp := Operational(map[string]bool{"ok": true})
	if resp.SchemaVersion != CurrentSchemaVersion || resp.Meta != nil {
		t.Errorf("Operational = %+v", resp)
	}
}
