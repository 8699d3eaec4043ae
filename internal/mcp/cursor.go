package mcp

import (
	"encoding/base64"
	"encoding/json"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// DefaultPageSize is the default number of tools per page
const DefaultPageSize = 32

// ToolsCursorPayload contains pagination state for tools/list
type ToolsCursorPayload struct {
	V           int    `json:"v"` // cursor version
	Mode        string `json:"m"` // backend mode
	Offset      int    `json:"o"` // position in tool list
	ToolsetHash string `json:"h"` // hash of tool definitions
}

// EncodeToolsCursor encodes cursor data to a URL-safe base64 string
func EncodeToolsCursor(mode string, offset int, toolsetHash string) string {
	payload := ToolsCursorPayload{
		V:           1,
		Mode:        mode,
		Offset:      offset,
		ToolsetHash: toolsetHash,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToolsCursor decodes and validates a cursor string.
// Returns the offset if valid, or an error if invalid/stale.
func DecodeToolsCursor(cursor string, currentMode string, currentHash string) (int, error) {
	if cursor == "" {
		return 0, nil // Empty cursor = first page
	}

	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errors.NewInvalidArgument("cursor", "invalid encoding")
	}

	var payload ToolsCursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, errors.NewInvalidArgument("cursor", "invalid format")
	}

	if payload.V != 1 {
		return 0, errors.NewInvalidArgument("cursor", "version mismatch")
	}
	if payload.Mode != currentMode {
		return 0, errors.NewInvalidArgument("cursor", "backend mode changed since cursor was issued")
	}
	if payload.ToolsetHash != currentHash {
		return 0, errors.NewInvalidArgument("cursor", "toolset changed since cursor was issued")
	}
	if payload.Offset < 0 {
		return 0, errors.NewInvalidArgument("cursor", "invalid offset")
	}

	return payload.Offset, nil
}

// PaginateTools returns a page of tools and the next cursor, empty when
// the page is the last one.
func PaginateTools(allTools []Tool, offset int, pageSize int, mode string, toolsetHash string) ([]Tool, string) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(allTools)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Tool{}, ""
	}

	end := offset + pageSize
	if end > total {
		end = total
	}

	var nextCursor string
	if end < total {
		nextCursor = EncodeToolsCursor(mode, end, toolsetHash)
	}

	return allTools[offset:end], nextCursor
}
