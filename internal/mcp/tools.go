package mcp

import "context"

// Tool represents a tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler handles a tool call. A string result is returned to the
// client as raw text; anything else is wrapped in a JSON envelope.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func intProp(desc string, min int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc, "minimum": min}
}

func stringListProp(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": desc,
	}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	if props == nil {
		props = map[string]interface{}{}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var (
	projectProp  = stringProp("Project name. Defaults to the configured project")
	projectsProp = stringListProp("Several project names; takes precedence over project")
	pathProp     = stringProp("Source path relative to the source root, e.g. /kernel/init/main.c")
)

// GetToolDefinitions returns all tool definitions
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "search",
			Description: "Search indexed source code. Set at least one of full (full text), defs (symbol definitions), refs (symbol references), path (file path) or hist (commit messages). Returns file paths, line numbers and matching lines",
			InputSchema: objectSchema(map[string]interface{}{
				"full":       stringProp("Full-text query (Lucene syntax)"),
				"defs":       stringProp("Symbol definition query"),
				"refs":       stringProp("Symbol reference query"),
				"path":       stringProp("File path query"),
				"hist":       stringProp("History (commit message) query"),
				"type":       stringProp("Restrict to a file type, e.g. c, java, python"),
				"project":    projectProp,
				"projects":   projectsProp,
				"maxResults": intProp("Maximum number of results", 1),
				"start":      intProp("Offset of the first result, for paging", 0),
			}),
		},
		{
			Name:        "findDefinitions",
			Description: "Find where a symbol is defined. Returns file, line and kind for each definition",
			InputSchema: objectSchema(map[string]interface{}{
				"symbol":   stringProp("Symbol name"),
				"project":  projectProp,
				"projects": projectsProp,
			}, "symbol"),
		},
		{
			Name:        "findReferences",
			Description: "Find where a symbol is used. Returns file, line and kind for each reference",
			InputSchema: objectSchema(map[string]interface{}{
				"symbol":   stringProp("Symbol name"),
				"project":  projectProp,
				"projects": projectsProp,
			}, "symbol"),
		},
		{
			Name:        "getFile",
			Description: "Get the text of a source file. When the path is not found and a project is given, the project directory is prepended and the fetch retried once",
			InputSchema: objectSchema(map[string]interface{}{
				"path":    pathProp,
				"project": stringProp("Project the path belongs to"),
			}, "path"),
		},
		{
			Name:        "listProjects",
			Description: "List the projects visible to the current session",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "ping",
			Description: "Check whether the OpenGrok server is reachable and the session is accepted",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "reloadCredentials",
			Description: "Replace the session cookies after signing in again. Without arguments the configured cookies file is re-read",
			InputSchema: objectSchema(map[string]interface{}{
				"cookies": stringProp("Cookie string, \"name=value; name=value\" or a copied Cookie: header"),
			}),
		},
		{
			Name:        "getAnnotation",
			Description: "Get per-line blame (revision and author) for a file",
			InputSchema: objectSchema(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "getHistory",
			Description: "Get the revision history of a file or directory, newest first",
			InputSchema: objectSchema(map[string]interface{}{
				"path":       pathProp,
				"start":      intProp("Offset of the first entry", 0),
				"maxEntries": intProp("Maximum number of entries", 1),
			}, "path"),
		},
		{
			Name:        "getDirectoryListing",
			Description: "List the entries of a directory",
			InputSchema: objectSchema(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "getFileDefinitions",
			Description: "List the symbols defined in a file with their lines",
			InputSchema: objectSchema(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "getFileGenre",
			Description: "Get the analyzer genre of a file (PLAIN, XREFABLE, IMAGE, DATA, HTML)",
			InputSchema: objectSchema(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "getIndexedProjects",
			Description: "List the projects that have been indexed",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "getProjectRepositories",
			Description: "List the repository paths of a project",
			InputSchema: objectSchema(map[string]interface{}{"project": stringProp("Project name")}, "project"),
		},
		{
			Name:        "getProjectRepositoryTypes",
			Description: "List the SCM types of a project's repositories",
			InputSchema: objectSchema(map[string]interface{}{"project": stringProp("Project name")}, "project"),
		},
		{
			Name:        "getProjectIndexedFiles",
			Description: "List the indexed files of a project",
			InputSchema: objectSchema(map[string]interface{}{"project": stringProp("Project name")}, "project"),
		},
		{
			Name:        "getLastIndexTime",
			Description: "Get when the index was last updated",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "getVersion",
			Description: "Get the OpenGrok server version",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "getSuggestions",
			Description: "Get completions for a partial query",
			InputSchema: objectSchema(map[string]interface{}{
				"query": stringProp("Partial query text"),
				"field": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"full", "defs", "refs", "path", "hist", "type"},
					"default":     "full",
					"description": "Search field the query is typed into",
				},
				"caret":    intProp("Cursor position in query. Defaults to the end", 0),
				"project":  projectProp,
				"projects": projectsProp,
			}, "query"),
		},
		{
			Name:        "getSuggestConfig",
			Description: "Get the server's suggester configuration",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "listGroups",
			Description: "List project groups",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "getMessages",
			Description: "Get server messages such as maintenance notices",
			InputSchema: objectSchema(map[string]interface{}{
				"tag": stringProp("Only messages with this tag, e.g. main or a project name"),
			}),
		},
		{
			Name:        "getConfiguration",
			Description: "Get the server configuration, or one field of it",
			InputSchema: objectSchema(map[string]interface{}{
				"field": stringProp("Configuration field, e.g. sourceRoot. Omit for the whole configuration"),
			}),
		},
		{
			Name:        "getRepositoryProperty",
			Description: "Get one property (type, parent, branch, ...) of repositories",
			InputSchema: objectSchema(map[string]interface{}{
				"field":        stringProp("Property name"),
				"repositories": stringListProp("Repository paths"),
			}, "field", "repositories"),
		},
		{
			Name:        "reloadAuthorization",
			Description: "Ask the server to reload its authorization framework. Returns a status id when the server processes it in the background",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "markProjectIndexed",
			Description: "Mark a project as indexed. Returns a status id when the server processes it in the background",
			InputSchema: objectSchema(map[string]interface{}{"project": stringProp("Project name")}, "project"),
		},
		{
			Name:        "getStatus",
			Description: "Check once whether a background operation has finished",
			InputSchema: objectSchema(map[string]interface{}{"statusId": stringProp("Status id returned by the operation")}, "statusId"),
		},
		{
			Name:        "waitForStatus",
			Description: "Wait until a background operation finishes or the timeout elapses",
			InputSchema: objectSchema(map[string]interface{}{
				"statusId":       stringProp("Status id returned by the operation"),
				"timeoutSeconds": intProp("How long to wait. Default 60", 1),
			}, "statusId"),
		},
	}
}

// RegisterTools registers all tool handlers
func (s *Server) RegisterTools() {
	s.tools["search"] = s.toolSearch
	s.tools["findDefinitions"] = s.toolFindDefinitions
	s.tools["findReferences"] = s.toolFindReferences
	s.tools["getFile"] = s.toolGetFile
	s.tools["listProjects"] = s.toolListProjects
	s.tools["ping"] = s.toolPing
	s.tools["reloadCredentials"] = s.toolReloadCredentials
	s.tools["getAnnotation"] = s.toolGetAnnotation
	s.tools["getHistory"] = s.toolGetHistory
	s.tools["getDirectoryListing"] = s.toolGetDirectoryListing
	s.tools["getFileDefinitions"] = s.toolGetFileDefinitions
	s.tools["getFileGenre"] = s.toolGetFileGenre
	s.tools["getIndexedProjects"] = s.toolGetIndexedProjects
	s.tools["getProjectRepositories"] = s.toolGetProjectRepositories
	s.tools["getProjectRepositoryTypes"] = s.toolGetProjectRepositoryTypes
	s.tools["getProjectIndexedFiles"] = s.toolGetProjectIndexedFiles
	s.tools["getLastIndexTime"] = s.toolGetLastIndexTime
	s.tools["getVersion"] = s.toolGetVersion
	s.tools["getSuggestions"] = s.toolGetSuggestions
	s.tools["getSuggestConfig"] = s.toolGetSuggestConfig
	s.tools["listGroups"] = s.toolListGroups
	s.tools["getMessages"] = s.toolGetMessages
	s.tools["getConfiguration"] = s.toolGetConfiguration
	s.tools["getRepositoryProperty"] = s.toolGetRepositoryProperty
	s.tools["reloadAuthorization"] = s.toolReloadAuthorization
	s.tools["markProjectIndexed"] = s.toolMarkProjectIndexed
	s.tools["getStatus"] = s.toolGetStatus
	s.tools["waitForStatus"] = s.toolWaitForStatus
}
