// Package version provides build version information for opengrok-mcp.
package version

import "runtime"

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/LeeChunJun/OpenGrokMCP/internal/version.Version=1.0.0 -X github.com/LeeChunJun/OpenGrokMCP/internal/version.Commit=abc123"
var (
	// Version is the semantic version of opengrok-mcp
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Name is the server name reported during the MCP handshake.
const Name = "opengrok-mcp"

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// UserAgent identifies the server to upstream REST endpoints.
func UserAgent() string {
	return Name + "/" + Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}

// Full returns complete version information
func Full() string {
	return Name + " version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}
