package mcp

import "github.com/LeeChunJun/OpenGrokMCP/internal/version"

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// ServerCapabilities represents the capabilities exposed by the MCP server
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability represents the tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo represents information about the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult represents the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(params map[string]interface{}) *InitializeResult {
	clientName := ""
	if ci, ok := params["clientInfo"].(map[string]interface{}); ok {
		clientName, _ = ci["name"].(string)
	}
	s.logger.Info("MCP server initializing", "client", clientName)

	instructions := "Search and browse source code indexed by OpenGrok."
	if p := s.client.DefaultProject(); p != "" {
		instructions += " Calls without a project use \"" + p + "\"."
	}

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    version.Name,
			Version: s.version,
		},
		Instructions: instructions,
	}
}
