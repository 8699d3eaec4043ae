package mcp

import "fmt"

// MCPMessage represents a JSON-RPC 2.0 message for MCP
type MCPMessage struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC 2.0 error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// ContentBlock is one item of a tool result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call. Tool failures are reported
// here with IsError set, never as JSON-RPC errors.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

func textResult(text string, isError bool) *CallToolResult {
	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// NewErrorMessage creates a new error response message
func NewErrorMessage(id interface{}, code int, message string, data interface{}) *MCPMessage {
	return &MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// NewResultMessage creates a new result response message
func NewResultMessage(id interface{}, result interface{}) *MCPMessage {
	return &MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Result:  result,
	}
}

// IsRequest checks if the message is a request
func (m *MCPMessage) IsRequest() bool {
	return m.Method != "" && m.Id != nil
}

// IsNotification checks if the message is a notification
func (m *MCPMessage) IsNotification() bool {
	return m.Method != "" && m.Id == nil
}

// IsResponse checks if the message is a response (must have id and either result or error)
func (m *MCPMessage) IsResponse() bool {
	return m.Id != nil && (m.Result != nil || m.Error != nil)
}

// idKey renders a request id for map lookups. JSON numbers decode as
// float64, so 7 and 7.0 share a key.
func idKey(id interface{}) string {
	switch v := id.(type) {
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprint(id)
}
