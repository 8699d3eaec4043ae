package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitUnavailable = 3
	exitAuth        = 4
	exitUpstream    = 5
	exitUnsupported = 6
	exitInternal    = 10
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	causeColor = color.New(color.Faint)
	fixColor   = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
)

// exitError carries an explicit exit code for a command that already
// reported its outcome.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// exitCode maps an error to the process exit status. Configuration and
// other untyped errors exit 1.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	var e *errors.Error
	if !errors.As(err, &e) {
		return exitFailure
	}
	switch e.Code {
	case errors.InvalidArgument:
		return exitUsage
	case errors.UpstreamUnavailable:
		return exitUnavailable
	case errors.AuthenticationExpired:
		return exitAuth
	case errors.UpstreamError, errors.MalformedUpstreamResponse:
		return exitUpstream
	case errors.UnsupportedOperation:
		return exitUnsupported
	case errors.InternalError:
		return exitInternal
	}
	return exitFailure
}

// printError writes an Error line, then the cause and the suggested
// fixes when the error carries them.
func printError(w io.Writer, err error) {
	var ee *exitError
	if stderrors.As(err, &ee) && ee.msg == "" {
		return
	}

	var e *errors.Error
	if !errors.As(err, &e) {
		_, _ = errorColor.Fprintf(w, "Error: %s\n", err.Error())
		return
	}

	_, _ = errorColor.Fprintf(w, "Error: %s\n", e.Message)
	if e.StatusCode != 0 {
		_, _ = causeColor.Fprintf(w, "Cause: %s (HTTP %d)\n", e.Code, e.StatusCode)
	} else if cause := stderrors.Unwrap(e); cause != nil {
		_, _ = causeColor.Fprintf(w, "Cause: %s\n", cause.Error())
	} else {
		_, _ = causeColor.Fprintf(w, "Cause: %s\n", e.Code)
	}
	for _, fix := range e.SuggestedFixes {
		if fix.Command != "" {
			_, _ = fixColor.Fprintf(w, "Fix:   %s (%s)\n", fix.Description, fix.Command)
			continue
		}
		_, _ = fixColor.Fprintf(w, "Fix:   %s\n", fix.Description)
	}
}

// isTerminal reports whether stream is an interactive terminal.
func isTerminal(stream interface{}) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeJSON writes v as JSON, indented when w is a terminal.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
