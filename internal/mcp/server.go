package mcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
)

var errEmptyLine = stderrors.New("empty line")

// Server exposes the OpenGrok operations as MCP tools over stdio.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex

	logger  *slog.Logger
	version string
	client  *opengrok.Client
	metrics *Metrics
	tools   map[string]ToolHandler

	// credMu is held for reading by every tool call and for writing by
	// reloadCredentials, so a reload never overlaps in-flight requests.
	credMu sync.RWMutex

	mu          sync.Mutex
	pending     map[string]context.CancelFunc // in-flight tools/call by request id
	toolsetHash string

	inflight sync.WaitGroup
}

// ServerOption customises NewServer.
type ServerOption func(*Server)

// WithToolMetrics records tool calls.
func WithToolMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server backed by client.
func NewServer(version string, client *opengrok.Client, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  slogutil.OrDiscard(logger),
		version: version,
		client:  client,
		tools:   make(map[string]ToolHandler),
		pending: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.RegisterTools()
	s.toolsetHash = ComputeToolsetHash(s.GetFilteredTools())
	return s
}

// Start processes messages until stdin is exhausted or ctx is cancelled.
// Tool calls run concurrently; other requests are answered in order.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"mode", string(s.client.Mode()),
		"tools", len(s.GetFilteredTools()),
	)
	defer s.inflight.Wait()

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("MCP server shutting down", "reason", err.Error())
			return nil
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			if err == errEmptyLine {
				continue
			}
			s.logger.Error("Error reading message", "error", err.Error())
			if werr := s.writeError(nil, ParseError, fmt.Sprintf("Failed to parse message: %v", err)); werr != nil {
				return werr
			}
			continue
		}

		if msg.IsRequest() && msg.Method == "tools/call" {
			s.dispatchAsync(ctx, msg)
			continue
		}

		if response := s.handleMessage(ctx, msg); response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
			}
		}
	}
}

func (s *Server) dispatchAsync(ctx context.Context, msg *MCPMessage) {
	callCtx, cancel := context.WithCancel(ctx)
	key := idKey(msg.Id)

	s.mu.Lock()
	s.pending[key] = cancel
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, key)
			s.mu.Unlock()
			cancel()
		}()

		if response := s.handleMessage(callCtx, msg); response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
			}
		}
	}()
}

// cancelRequest cancels an in-flight tool call.
func (s *Server) cancelRequest(id interface{}) bool {
	s.mu.Lock()
	cancel, ok := s.pending[idKey(id)]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil // Reset scanner so it will be recreated with new reader
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// ReloadCredentials swaps the session cookies once in-flight tool calls
// have finished. An empty string re-reads the configured cookies file.
func (s *Server) ReloadCredentials(cookies string) (int, error) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	return s.client.ReloadCredentials(cookies)
}

// GetToolsetHash returns the hash of the exposed tool definitions.
func (s *Server) GetToolsetHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolsetHash
}

// GetFilteredTools returns the tools the active backend can serve, core
// tools first.
func (s *Server) GetFilteredTools() []Tool {
	return FilterAndOrderTools(s.GetToolDefinitions(), s.supports)
}

func (s *Server) supports(tool string) bool {
	if serverTools[tool] {
		return true
	}
	return s.client.Supports(tool)
}
