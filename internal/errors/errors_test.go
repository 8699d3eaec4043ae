package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       NewUpstreamUnavailable("search", stderrors.New("connection refused")),
			wantParts: []string{"UPSTREAM_UNAVAILABLE", "search", "connection refused"},
		},
		{
			name:      "with status",
			err:       NewUpstreamError("getHistory", 500, ""),
			wantParts: []string{"UPSTREAM_ERROR", "getHistory", "HTTP 500"},
		},
		{
			name:      "invalid argument",
			err:       NewInvalidArgument("project", "must not be empty"),
			wantParts: []string{"INVALID_ARGUMENT", `"project"`, "must not be empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewMalformedResponse("search", "bad json", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("tool call: %w", NewAuthenticationExpired("getFile", 401))

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"direct", NewUnsupported("getHistory", "html"), UnsupportedOperation},
		{"wrapped", wrapped, AuthenticationExpired},
		{"foreign", stderrors.New("boom"), InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}

	if !Is(wrapped, AuthenticationExpired) {
		t.Error("Is(wrapped, AuthenticationExpired) = false")
	}
	if Is(nil, InternalError) {
		t.Error("Is(nil, ...) should be false")
	}
}

func TestAuthenticationExpiredCarriesRemediation(t *testing.T) {
	err := NewAuthenticationExpired("search", 403)

	if err.StatusCode != 403 {
		t.Errorf("StatusCode = %d, want 403", err.StatusCode)
	}
	if err.Remediation() == "" {
		t.Error("AuthenticationExpired must carry remediation text")
	}
	if !strings.Contains(err.Remediation(), "cookie") {
		t.Errorf("Remediation() = %q, want it to mention cookies", err.Remediation())
	}
}

func TestNewUpstreamErrorTruncatesBody(t *testing.T) {
	body := strings.Repeat("x", 2000)
	err := NewUpstreamError("list", 502, body)

	details, ok := err.Details.(map[string]string)
	if !ok {
		t.Fatalf("Details type = %T, want map[string]string", err.Details)
	}
	if len(details["body"]) > 520 {
		t.Errorf("body detail length = %d, want truncated", len(details["body"]))
	}
}

func TestErrorCodesUnique(t *testing.T) {
	codes := []ErrorCode{
		InvalidArgument,
		AuthenticationExpired,
		UpstreamUnavailable,
		UpstreamError,
		MalformedUpstreamResponse,
		UnsupportedOperation,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
			if fix.Description == "" {
				t.Errorf("ErrorActions[%v][%d].Description is empty", code, i)
			}
		}
	}

	if GetSuggestedFixes(InvalidArgument) != nil {
		t.Error("InvalidArgument should have no predefined fixes")
	}
}
