// Package envelope provides the response wrapper for structured tool results.
// Every structured result is wrapped in the same envelope, which records
// which backend answered, whether the result was truncated, warnings and
// suggested follow-up calls.
package envelope

// Provenance describes where the result came from.
type Provenance struct {
	Mode   string `json:"mode"`             // html or rest
	Origin string `json:"origin,omitempty"` // scheme://host of the OpenGrok server
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`  // items returned
	Total       int    `json:"total,omitempty"`  // total available upstream
	Reason      string `json:"reason,omitempty"` // "max-results", ...
}

// Meta holds response metadata.
type Meta struct {
	Provenance *Provenance `json:"provenance,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`             // tool name
	Params map[string]interface{} `json:"params,omitempty"` // pre-filled parameters
	Reason string                 `json:"reason,omitempty"` // why this is suggested
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"` // machine-readable code
	Message string `json:"message"`        // human-readable message
}

// ErrorInfo is the structured form of a failed call.
type ErrorInfo struct {
	Code           string      `json:"code"`
	Message        string      `json:"message"`
	StatusCode     int         `json:"statusCode,omitempty"`
	Remediation    string      `json:"remediation,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes interface{} `json:"suggestedFixes,omitempty"`
}

// Response is the standard envelope for structured tool responses.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data,omitempty"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
