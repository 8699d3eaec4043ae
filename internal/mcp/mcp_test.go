package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/envelope"
	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
	"github.com/LeeChunJun/OpenGrokMCP/internal/version"
)

type testUpstream struct {
	calls atomic.Int32
}

// newTestServer creates an MCP server whose OpenGrok client talks to h.
func newTestServer(t *testing.T, mode config.Mode, h http.HandlerFunc, opts ...ServerOption) (*Server, *testUpstream) {
	t.Helper()

	up := &testUpstream{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.URL = srv.URL + "/source"
	cfg.Mode = mode
	cfg.Timeout = 5 * time.Second

	client, err := opengrok.New(cfg)
	require.NoError(t, err)

	return NewServer(version.Version, client, nil, opts...), up
}

// sendRequest sends a request and returns the response
func sendRequest(t *testing.T, server *Server, method string, id int, params interface{}) *MCPMessage {
	t.Helper()

	request := MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Method:  method,
		Params:  params,
	}

	requestBytes, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	requestBytes = append(requestBytes, '\n')

	server.SetStdin(bytes.NewReader(requestBytes))
	server.SetStdout(&bytes.Buffer{})

	msg, err := server.readMessage()
	if err != nil && err != io.EOF {
		t.Fatalf("Failed to read message: %v", err)
	}

	return server.handleMessage(context.Background(), msg)
}

// callTool invokes a tool and returns its result.
func callTool(t *testing.T, server *Server, name string, args map[string]interface{}) *CallToolResult {
	t.Helper()

	resp := sendRequest(t, server, "tools/call", 1, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error, "unexpected JSON-RPC error")

	result, ok := resp.Result.(*CallToolResult)
	require.True(t, ok, "result type %T", resp.Result)
	require.Len(t, result.Content, 1)
	return result
}

// callToolAsync invokes a tool without touching the server's streams, so
// several calls may run at once.
func callToolAsync(server *Server, id int, name string, args map[string]interface{}) <-chan *CallToolResult {
	done := make(chan *CallToolResult, 1)
	go func() {
		resp := server.handleMessage(context.Background(), &MCPMessage{
			Jsonrpc: "2.0",
			Id:      id,
			Method:  "tools/call",
			Params:  map[string]interface{}{"name": name, "arguments": args},
		})
		result, _ := resp.Result.(*CallToolResult)
		done <- result
	}()
	return done
}

func decodeEnvelope(t *testing.T, result *CallToolResult) envelope.Response {
	t.Helper()
	var resp envelope.Response
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &resp))
	return resp
}

func TestInitializeMethod(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {})

	params := map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "test-client",
			"version": "1.0.0",
		},
	}

	response := sendRequest(t, server, "initialize", 1, params)
	require.NotNil(t, response)
	require.Nil(t, response.Error)

	result, ok := response.Result.(*InitializeResult)
	if !ok {
		t.Fatalf("Result should be an InitializeResult, got %T", response.Result)
	}
	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("ProtocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != version.Name {
		t.Errorf("ServerInfo.Name = %q", result.ServerInfo.Name)
	}
}

func TestPingAndUnknownMethod(t *testing.T) {
	server, up := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {})

	resp := sendRequest(t, server, "ping", 1, nil)
	require.Nil(t, resp.Error)
	assert.Zero(t, up.calls.Load(), "protocol ping does not reach upstream")

	resp = sendRequest(t, server, "resources/list", 2, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestToolsListPerMode(t *testing.T) {
	tests := []struct {
		mode    config.Mode
		want    int
		hasRest bool
	}{
		{config.ModeHTML, len(coreToolOrder) + len(serverTools), false},
		{config.ModeREST, 28, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			server, _ := newTestServer(t, tt.mode, func(w http.ResponseWriter, r *http.Request) {})

			response := sendRequest(t, server, "tools/list", 1, nil)
			require.Nil(t, response.Error)

			result := response.Result.(map[string]interface{})
			tools, ok := result["tools"].([]Tool)
			require.True(t, ok, "tools type %T", result["tools"])
			assert.Len(t, tools, tt.want)
			assert.NotContains(t, result, "nextCursor")

			for i, name := range coreToolOrder {
				assert.Equal(t, name, tools[i].Name)
			}
			names := make(map[string]bool)
			for _, tool := range tools {
				names[tool.Name] = true
				assert.NotEmpty(t, tool.Description, tool.Name)
				assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
			}
			assert.True(t, names["reloadCredentials"])
			assert.Equal(t, tt.hasRest, names["getHistory"])
		})
	}
}

func TestAllToolsHaveHandlers(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {})
	defs := server.GetToolDefinitions()
	assert.Len(t, server.tools, len(defs))
	for _, d := range defs {
		_, ok := server.tools[d.Name]
		assert.True(t, ok, "no handler for %s", d.Name)
	}
}

func TestToolsCursor(t *testing.T) {
	tools := make([]Tool, 5)
	for i := range tools {
		tools[i] = Tool{Name: string(rune('a' + i))}
	}

	page, next := PaginateTools(tools, 0, 2, "rest", "h1")
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	offset, err := DecodeToolsCursor(next, "rest", "h1")
	require.NoError(t, err)
	assert.Equal(t, 2, offset)

	page, next = PaginateTools(tools, 4, 2, "rest", "h1")
	assert.Len(t, page, 1)
	assert.Empty(t, next)

	for name, tc := range map[string]struct{ cursor, mode, hash string }{
		"garbage":      {"!!!", "rest", "h1"},
		"mode changed": {EncodeToolsCursor("html", 2, "h1"), "rest", "h1"},
		"hash changed": {EncodeToolsCursor("rest", 2, "h0"), "rest", "h1"},
	} {
		_, err := DecodeToolsCursor(tc.cursor, tc.mode, tc.hash)
		assert.Error(t, err, name)
	}
}

func TestCallTool_Search(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/source/api/v1/search", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("def"))
		assert.Equal(t, "2", r.URL.Query().Get("maxresults"))
		_, _ = w.Write([]byte(`{"resultCount":5,"results":{"/kernel/init/main.c":[{"line":"int <b>main</b>()","lineNumber":"12"},{"line":"main2","lineNumber":"40"}]}}`))
	})

	result := callTool(t, server, "search", map[string]interface{}{
		"defs":       "main",
		"project":    "kernel",
		"maxResults": float64(2),
	})
	require.False(t, result.IsError, result.Content[0].Text)

	resp := decodeEnvelope(t, result)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "rest", resp.Meta.Provenance.Mode)
	require.NotNil(t, resp.Meta.Truncation)
	assert.Equal(t, 5, resp.Meta.Truncation.Total)

	data := resp.Data.(map[string]interface{})
	hits := data["hits"].([]interface{})
	require.Len(t, hits, 2)
	first := hits[0].(map[string]interface{})
	assert.Equal(t, "/kernel/init/main.c", first["filePath"])
	assert.EqualValues(t, 12, first["lineNumber"])
}

func TestCallTool_SearchPagesByDocument(t *testing.T) {
	tests := []struct {
		name      string
		start     float64
		wantStart float64
	}{
		{"first page", 0, 1},
		{"second page", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"resultCount":4,"startDocument":0,"endDocument":0,"results":{"/kernel/a.c":[` +
					`{"line":"a","lineNumber":"1"},{"line":"b","lineNumber":"2"},{"line":"c","lineNumber":"3"}]}}`))
			})

			result := callTool(t, server, "search", map[string]interface{}{"full": "x", "project": "kernel", "start": tt.start})
			require.False(t, result.IsError, result.Content[0].Text)
			resp := decodeEnvelope(t, result)

			require.NotNil(t, resp.Meta.Truncation)
			assert.True(t, resp.Meta.Truncation.IsTruncated)
			assert.Equal(t, 1, resp.Meta.Truncation.Shown, "shown counts documents")
			assert.Equal(t, 4, resp.Meta.Truncation.Total)

			var next *envelope.SuggestedCall
			for i := range resp.SuggestedNextCalls {
				if resp.SuggestedNextCalls[i].Tool == "search" {
					next = &resp.SuggestedNextCalls[i]
				}
			}
			require.NotNil(t, next, "next page suggested")
			assert.Equal(t, tt.wantStart, next.Params["start"])
			assert.Equal(t, "x", next.Params["full"])
		})
	}
}

func TestCallTool_SearchLastPageNotTruncated(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount":1,"results":{"/kernel/a.c":[` +
			`{"line":"a","lineNumber":"1"},{"line":"b","lineNumber":"2"},{"line":"c","lineNumber":"3"}]}}`))
	})

	resp := decodeEnvelope(t, callTool(t, server, "search", map[string]interface{}{"full": "x", "project": "kernel"}))
	if resp.Meta.Truncation != nil {
		assert.False(t, resp.Meta.Truncation.IsTruncated)
	}
	for _, c := range resp.SuggestedNextCalls {
		assert.NotEqual(t, "search", c.Tool)
	}
}

func TestCallTool_EmptyProjectNoUpstreamCall(t *testing.T) {
	server, up := newTestServer(t, config.ModeHTML, func(w http.ResponseWriter, r *http.Request) {})

	result := callTool(t, server, "search", map[string]interface{}{"full": "x", "project": ""})
	require.True(t, result.IsError)
	resp := decodeEnvelope(t, result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_ARGUMENT", resp.Error.Code)
	assert.Zero(t, up.calls.Load())
}

func TestCallTool_GetFileReturnsRawText(t *testing.T) {
	server, _ := newTestServer(t, config.ModeHTML, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><pre>Hello &amp; &lt;world&gt;</pre></html>`))
	})

	result := callTool(t, server, "getFile", map[string]interface{}{"path": "/kernel/hello.txt"})
	require.False(t, result.IsError)
	assert.Equal(t, "Hello & <world>", result.Content[0].Text)
}

func TestCallTool_AuthenticationExpired(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	result := callTool(t, server, "listProjects", nil)
	require.True(t, result.IsError)

	resp := decodeEnvelope(t, result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTHENTICATION_EXPIRED", resp.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, resp.Error.StatusCode)
	assert.NotEmpty(t, resp.Error.Remediation)
	require.NotEmpty(t, resp.SuggestedNextCalls)
	assert.Equal(t, "reloadCredentials", resp.SuggestedNextCalls[0].Tool)
}

func TestCallTool_UnsupportedInHTMLMode(t *testing.T) {
	server, up := newTestServer(t, config.ModeHTML, func(w http.ResponseWriter, r *http.Request) {})

	result := callTool(t, server, "getHistory", map[string]interface{}{"path": "/kernel"})
	require.True(t, result.IsError)
	assert.Equal(t, "UNSUPPORTED_OPERATION", decodeEnvelope(t, result).Error.Code)
	assert.Zero(t, up.calls.Load())
}

func TestCallTool_PingNeverFails(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	result := callTool(t, server, "ping", nil)
	require.False(t, result.IsError)
	data := decodeEnvelope(t, result).Data.(map[string]interface{})
	assert.Equal(t, false, data["reachable"])
}

func TestCallTool_ReloadCredentials(t *testing.T) {
	var cookie atomic.Value
	cookie.Store("")
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		cookie.Store(r.Header.Get("Cookie"))
	})

	result := callTool(t, server, "reloadCredentials", map[string]interface{}{"cookies": "Cookie: JSESSIONID=abc; MRHSession=xyz"})
	require.False(t, result.IsError, result.Content[0].Text)
	data := decodeEnvelope(t, result).Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["cookies"])

	callTool(t, server, "ping", nil)
	assert.Contains(t, cookie.Load().(string), "JSESSIONID=abc")

	result = callTool(t, server, "reloadCredentials", nil)
	assert.True(t, result.IsError, "no cookies file configured")
}

func TestCallTool_ReloadNotBlockedByWaitForStatus(t *testing.T) {
	const id = "7f1c2d4e-8a9b-4c3d-9e0f-123456789abc"
	var once sync.Once
	polled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/status/") {
			once.Do(func() { close(polled) })
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_, _ = w.Write([]byte("pong"))
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.URL = srv.URL + "/source"
	cfg.Mode = config.ModeREST
	cfg.Timeout = 5 * time.Second
	cfg.StatusPollInterval = 50 * time.Millisecond
	client, err := opengrok.New(cfg)
	require.NoError(t, err)
	server := NewServer(version.Version, client, nil)

	waiting := callToolAsync(server, 1, "waitForStatus", map[string]interface{}{"statusId": id, "timeoutSeconds": float64(2)})
	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("waitForStatus never polled")
	}

	reloaded := callToolAsync(server, 2, "reloadCredentials", map[string]interface{}{"cookies": "a=1"})
	select {
	case result := <-reloaded:
		require.NotNil(t, result)
		assert.False(t, result.IsError, result.Content[0].Text)
	case <-time.After(time.Second):
		t.Fatal("reloadCredentials blocked behind waitForStatus")
	}

	start := time.Now()
	select {
	case result := <-callToolAsync(server, 3, "ping", nil):
		require.NotNil(t, result)
		assert.False(t, result.IsError)
	case <-time.After(time.Second):
		t.Fatal("ping blocked behind waitForStatus")
	}
	assert.Less(t, time.Since(start), time.Second)

	select {
	case result := <-waiting:
		require.NotNil(t, result)
		assert.True(t, result.IsError)
		assert.Equal(t, "UPSTREAM_UNAVAILABLE", decodeEnvelope(t, result).Error.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("waitForStatus did not time out")
	}
}

func TestCallTool_UnknownTool(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {})

	resp := sendRequest(t, server, "tools/call", 1, map[string]interface{}{"name": "getSymbol"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestToolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1.13.9"))
	}, WithToolMetrics(m))

	result := callTool(t, server, "getVersion", nil)
	require.False(t, result.IsError)
	assert.Equal(t, "1.13.9", result.Content[0].Text)

	callTool(t, server, "getFile", map[string]interface{}{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("getVersion", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("getFile", "invalid_argument")))
}

func TestStart_ServesConcurrentCalls(t *testing.T) {
	server, _ := newTestServer(t, config.ModeREST, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["kernel","libc"]`))
	})

	var in bytes.Buffer
	for _, line := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"listGroups"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"getIndexedProjects"}}`,
	} {
		in.WriteString(line + "\n")
	}

	// Server writes are serialized internally.
	var out bytes.Buffer
	server.SetStdin(&in)
	server.SetStdout(&out)
	require.NoError(t, server.Start(context.Background()))

	ids := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var msg MCPMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg))
		ids[idKey(msg.Id)] = true
	}
	assert.True(t, ids["1"])
	assert.True(t, ids["2"])
	assert.True(t, ids["3"])
	assert.Len(t, ids, 4, "three responses plus one parse error")
}
