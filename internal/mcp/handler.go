package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeeChunJun/OpenGrokMCP/internal/envelope"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// handleMessage processes an incoming MCP message and returns a response
func (s *Server) handleMessage(ctx context.Context, msg *MCPMessage) *MCPMessage {
	// This server sends no requests of its own.
	if msg.IsResponse() {
		s.logger.Debug("Ignoring response from client", "id", msg.Id)
		return nil
	}

	if msg.IsRequest() {
		return s.handleRequest(ctx, msg)
	}

	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

// handleRequest handles a JSON-RPC request
func (s *Server) handleRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.Id,
	)

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(paramsOf(msg)))
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	case "tools/list":
		result, err := s.handleListTools(paramsOf(msg))
		if err != nil {
			return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
		}
		return NewResultMessage(msg.Id, result)
	case "tools/call":
		params, ok := msg.Params.(map[string]interface{})
		if !ok {
			return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
		}
		result, err := s.handleCallTool(ctx, params)
		if err != nil {
			return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
		}
		return NewResultMessage(msg.Id, result)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func paramsOf(msg *MCPMessage) map[string]interface{} {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return params
}

// handleNotification handles a JSON-RPC notification
func (s *Server) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	case "notifications/cancelled":
		params := paramsOf(msg)
		if id, ok := params["requestId"]; ok && s.cancelRequest(id) {
			s.logger.Info("Tool call cancelled", "id", id)
		}
	default:
		s.logger.Debug("Unknown notification",
			"method", msg.Method,
		)
	}
}

// handleListTools returns the tools of the active backend with cursor
// pagination.
func (s *Server) handleListTools(params map[string]interface{}) (interface{}, error) {
	var cursor string
	if c, ok := params["cursor"].(string); ok {
		cursor = c
	}

	mode := string(s.client.Mode())
	toolsetHash := s.GetToolsetHash()

	offset, err := DecodeToolsCursor(cursor, mode, toolsetHash)
	if err != nil {
		return nil, err
	}

	pageTools, nextCursor := PaginateTools(s.GetFilteredTools(), offset, DefaultPageSize, mode, toolsetHash)

	result := map[string]interface{}{
		"tools": pageTools,
	}
	if nextCursor != "" {
		result["nextCursor"] = nextCursor
	}
	return result, nil
}

// selfLockingTools take the credential lock around each upstream request
// themselves, since they may run for minutes.
var selfLockingTools = map[string]bool{
	"waitForStatus": true,
}

// handleCallTool executes a tool. Only protocol-level problems (unknown
// tool, malformed params) are returned as errors; tool failures become an
// isError result.
func (s *Server) handleCallTool(ctx context.Context, params map[string]interface{}) (*CallToolResult, error) {
	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return nil, fmt.Errorf("missing tool name")
	}

	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}

	callID := uuid.NewString()
	start := time.Now()
	s.logger.Info("Calling tool",
		"tool", toolName,
		"callId", callID,
		"args", argNames(args),
	)

	switch {
	case toolName == "reloadCredentials":
		s.credMu.Lock()
		defer s.credMu.Unlock()
	case selfLockingTools[toolName]:
	default:
		s.credMu.RLock()
		defer s.credMu.RUnlock()
	}

	out, err := handler(ctx, args)
	elapsed := time.Since(start)
	s.metrics.observe(toolName, err, elapsed)

	if err != nil {
		s.logger.Warn("Tool failed",
			"tool", toolName,
			"callId", callID,
			"code", string(errors.CodeOf(err)),
			"error", err.Error(),
			"elapsed", elapsed.String(),
		)
		resp := envelope.New().
			FromBackend(string(s.client.Mode()), s.client.Credentials().Origin()).
			Error(err).
			Build()
		return textResult(marshalEnvelope(resp), true), nil
	}

	s.logger.Info("Tool completed",
		"tool", toolName,
		"callId", callID,
		"elapsed", elapsed.String(),
	)

	switch v := out.(type) {
	case string:
		return textResult(v, false), nil
	case *envelope.Response:
		if v.Meta == nil || v.Meta.Provenance == nil {
			v.Meta = metaWithProvenance(v.Meta, string(s.client.Mode()), s.client.Credentials().Origin())
		}
		v.Meta.DurationMs = elapsed.Milliseconds()
		return textResult(marshalEnvelope(v), false), nil
	default:
		resp := envelope.New().Data(v).
			FromBackend(string(s.client.Mode()), s.client.Credentials().Origin()).
			WithDuration(elapsed).
			Build()
		return textResult(marshalEnvelope(resp), false), nil
	}
}

func metaWithProvenance(m *envelope.Meta, mode, origin string) *envelope.Meta {
	if m == nil {
		m = &envelope.Meta{}
	}
	m.Provenance = &envelope.Provenance{Mode: mode, Origin: origin}
	return m
}

func marshalEnvelope(resp *envelope.Response) string {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"schemaVersion":%q,"error":{"code":%q,"message":%q}}`,
			envelope.CurrentSchemaVersion, errors.InternalError, err.Error())
	}
	return string(b)
}

// argNames lists argument keys for logging; values may hold credentials.
func argNames(args map[string]interface{}) string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
