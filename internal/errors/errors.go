// Package errors defines the stable failure taxonomy shared by the facade,
// the tool boundary and the CLI.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidArgument indicates a missing or malformed parameter, detected before any network call
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// AuthenticationExpired indicates the upstream rejected the credentials (401/403 or SSO redirect)
	AuthenticationExpired ErrorCode = "AUTHENTICATION_EXPIRED"
	// UpstreamUnavailable indicates a transport-level failure (timeout, refused, DNS)
	UpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// UpstreamError indicates any other non-success status from the upstream
	UpstreamError ErrorCode = "UPSTREAM_ERROR"
	// MalformedUpstreamResponse indicates the body did not match the expected shape
	MalformedUpstreamResponse ErrorCode = "MALFORMED_UPSTREAM_RESPONSE"
	// UnsupportedOperation indicates the active backend mode cannot serve the operation
	UnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RefreshCredentials suggests refreshing the session cookies or basic-auth credentials
	RefreshCredentials FixActionType = "refresh-credentials"
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CheckConfig suggests correcting configuration
	CheckConfig FixActionType = "check-config"
	// SwitchMode suggests switching the backend mode
	SwitchMode FixActionType = "switch-mode"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description"`
}

// Error is the single failure type surfaced by facade operations.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	StatusCode     int         `json:"statusCode,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
		cause:          cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("[%s] %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithStatus records the upstream HTTP status code.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// Remediation returns the description of the first suggested fix, if any.
func (e *Error) Remediation() string {
	if len(e.SuggestedFixes) == 0 {
		return ""
	}
	return e.SuggestedFixes[0].Description
}

// NewInvalidArgument reports a missing or invalid parameter.
func NewInvalidArgument(param, reason string) *Error {
	msg := fmt.Sprintf("invalid argument %q", param)
	if reason != "" {
		msg = fmt.Sprintf("invalid argument %q: %s", param, reason)
	}
	return New(InvalidArgument, msg, nil).WithDetails(map[string]string{"parameter": param})
}

// NewAuthenticationExpired reports a rejected or expired session.
func NewAuthenticationExpired(op string, status int) *Error {
	msg := fmt.Sprintf("%s: upstream rejected the session credentials", op)
	return New(AuthenticationExpired, msg, nil).WithStatus(status)
}

// NewUpstreamUnavailable reports a transport failure.
func NewUpstreamUnavailable(op string, cause error) *Error {
	return New(UpstreamUnavailable, fmt.Sprintf("%s: upstream unreachable", op), cause)
}

// NewUpstreamError reports a non-success status that is not an auth failure.
func NewUpstreamError(op string, status int, body string) *Error {
	e := New(UpstreamError, fmt.Sprintf("%s: %s", op, http.StatusText(status)), nil).WithStatus(status)
	if body != "" {
		e.Details = map[string]string{"body": truncate(body, 512)}
	}
	return e
}

// NewMalformedResponse reports a body that did not match the expected shape.
func NewMalformedResponse(op, reason string, cause error) *Error {
	return New(MalformedUpstreamResponse, fmt.Sprintf("%s: %s", op, reason), cause)
}

// NewUnsupported reports an operation outside the backend's capability set.
func NewUnsupported(op, mode string) *Error {
	return New(UnsupportedOperation, fmt.Sprintf("%s is not available in %s mode", op, mode), nil)
}

// NewInternal wraps an unexpected failure.
func NewInternal(op string, cause error) *Error {
	return New(InternalError, op, cause)
}

// CodeOf returns the ErrorCode carried by err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// As is re-exported so callers need a single errors import.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	AuthenticationExpired: {
		{
			Type:        RefreshCredentials,
			Description: "Sign in to OpenGrok in a browser, copy the session cookies and update them in the editor extension (or OPENGROK_COOKIES / the cookies file); check OPENGROK_USERNAME and OPENGROK_PASSWORD when basic auth is used",
		},
		{
			Type:        RunCommand,
			Command:     "opengrok-mcp cookies check",
			Description: "Verify the refreshed cookie string against the server",
		},
	},
	UpstreamUnavailable: {
		{
			Type:        RunCommand,
			Command:     "opengrok-mcp ping",
			Description: "Check that the OpenGrok URL is reachable from this machine",
		},
	},
	UnsupportedOperation: {
		{
			Type:        SwitchMode,
			Description: "Set OPENGROK_MODE=rest to use the REST API backend",
		},
	},
	MalformedUpstreamResponse: {
		{
			Type:        CheckConfig,
			Description: "The server page layout did not match; verify OPENGROK_URL points at the OpenGrok web application root and the server version is supported",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
