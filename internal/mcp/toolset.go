package mcp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// coreToolOrder lists the tools every backend serves, in the order they
// appear at the top of tools/list.
var coreToolOrder = []string{
	"search",
	"findDefinitions",
	"findReferences",
	"getFile",
	"listProjects",
	"ping",
}

// serverTools are handled by the server itself and are available in
// every mode.
var serverTools = map[string]bool{
	"reloadCredentials": true,
}

// FilterAndOrderTools keeps the tools supported reports true for and
// orders them core first, then alphabetically.
func FilterAndOrderTools(allTools []Tool, supported func(string) bool) []Tool {
	filtered := make([]Tool, 0, len(allTools))
	for _, tool := range allTools {
		if supported(tool.Name) {
			filtered = append(filtered, tool)
		}
	}
	return orderToolsCoreFirst(filtered)
}

// orderToolsCoreFirst orders tools with core tools first, then alphabetical
func orderToolsCoreFirst(tools []Tool) []Tool {
	toolMap := make(map[string]Tool, len(tools))
	for _, t := range tools {
		toolMap[t.Name] = t
	}

	result := make([]Tool, 0, len(tools))
	for _, name := range coreToolOrder {
		if t, ok := toolMap[name]; ok {
			result = append(result, t)
			delete(toolMap, name)
		}
	}

	remaining := make([]string, 0, len(toolMap))
	for name := range toolMap {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)

	for _, name := range remaining {
		result = append(result, toolMap[name])
	}
	return result
}

// ComputeToolsetHash computes a hash of tool definitions for cursor invalidation.
// Hash is based on name + description + inputSchema.
func ComputeToolsetHash(tools []Tool) string {
	names := make([]string, len(tools))
	toolMap := make(map[string]Tool, len(tools))
	for i, t := range tools {
		names[i] = t.Name
		toolMap[t.Name] = t
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		t := toolMap[name]
		h.Write([]byte(t.Name))
		h.Write([]byte(t.Description))
		if t.InputSchema != nil {
			if data, err := json.Marshal(t.InputSchema); err == nil {
				h.Write(data)
			}
		}
		h.Write([]byte{0}) // separator
	}

	return hex.EncodeToString(h.Sum(nil))[:10]
}
