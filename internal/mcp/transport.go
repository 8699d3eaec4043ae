package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single MCP message (4MB).
// Tool calls carry small argument objects, but reloadCredentials may carry
// a long cookie string.
const MaxMessageSize = 4 * 1024 * 1024

// readMessage reads a JSON-RPC message from the input stream
func (s *Server) readMessage() (*MCPMessage, error) {
	// Lazily initialize the scanner on first use
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading from stdin: %w", err)
		}
		return nil, io.EOF
	}

	line := s.scanner.Bytes()
	if len(line) == 0 {
		return nil, errEmptyLine
	}

	var msg MCPMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("error parsing JSON-RPC message: %w", err)
	}

	// Message bodies may carry session cookies; only the shape is logged.
	s.logger.Debug("Received message", "method", msg.Method, "id", msg.Id, "bytes", len(line))
	return &msg, nil
}

// writeMessage writes a JSON-RPC message to the output stream. Tool calls
// answer from their own goroutines, so writes are serialized.
func (s *Server) writeMessage(msg *MCPMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}

	s.logger.Debug("Sent message", "id", msg.Id, "bytes", len(data))
	return nil
}

// writeError writes an error response
func (s *Server) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}
