package envelope

import (
	"time"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Data sets the tool-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// FromBackend records the backend mode and server origin.
func (b *Builder) FromBackend(mode, origin string) *Builder {
	if mode == "" {
		return b
	}
	b.meta().Provenance = &Provenance{Mode: mode, Origin: origin}
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}

	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}

	return b
}

// WithDuration records how long the call took.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.meta().DurationMs = d.Milliseconds()
	return b
}

// Suggest adds a follow-up call.
func (b *Builder) Suggest(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error sets the error field. Taxonomy errors keep their code, status and
// remediation; anything else is reported as INTERNAL_ERROR.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}

	var e *errors.Error
	if !errors.As(err, &e) {
		b.resp.Error = &ErrorInfo{Code: string(errors.InternalError), Message: err.Error()}
		return b
	}

	info := &ErrorInfo{
		Code:        string(e.Code),
		Message:     e.Error(),
		StatusCode:  e.StatusCode,
		Remediation: e.Remediation(),
		Details:     e.Details,
	}
	if len(e.SuggestedFixes) > 0 {
		info.SuggestedFixes = e.SuggestedFixes
	}
	b.resp.Error = info

	if e.Code == errors.AuthenticationExpired {
		b.Suggest("reloadCredentials", nil, "session cookies were rejected or expired")
	}
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a simple envelope for operational tools.
func Operational(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}
