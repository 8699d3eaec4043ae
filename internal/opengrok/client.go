// Package opengrok provides the typed operations over an OpenGrok server.
// One Client serves one backend mode for its whole lifetime; only the
// credential set can change after construction.
package opengrok

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/credentials"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
)

// Client is the operation facade.
type Client struct {
	backend Backend
	rest    RESTBackend // nil outside REST mode

	creds          *credentials.Set
	cookiesFile    string
	defaultProject string
	pollInterval   time.Duration
	logger         *slog.Logger
}

// Option customises New.
type Option func(*clientOptions)

type clientOptions struct {
	logger       *slog.Logger
	metrics      *transport.Metrics
	roundTripper http.RoundTripper
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithMetrics instruments upstream requests.
func WithMetrics(m *transport.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithRoundTripper replaces the base HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.roundTripper = rt }
}

// New builds a client from cfg. Cookies come from cfg.Cookies, merged with
// cfg.CookiesFile when both are set.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := slogutil.OrDiscard(o.logger)

	creds, err := credentials.New(cfg.BaseURL(), logger)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if _, err := creds.Load(credentials.Normalize(cfg.Cookies)); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if cfg.CookiesFile != "" {
		s, err := readCookiesFile(cfg.CookiesFile)
		if err != nil {
			logger.Warn("Cookie file not readable", "path", cfg.CookiesFile, "error", err.Error())
		} else {
			creds.Merge(s)
		}
	}

	adapter, err := transport.New(transport.Options{
		BaseURL:      cfg.BaseURL(),
		Mode:         cfg.Mode,
		APIVersion:   cfg.APIVersion,
		Username:     cfg.Username,
		Password:     cfg.Password,
		OAuth:        cfg.OAuth,
		APIToken:     cfg.APIToken,
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Jar:          creds,
		RoundTripper: o.roundTripper,
		Metrics:      o.metrics,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	c := NewWithBackend(NewBackend(adapter), creds, logger)
	c.cookiesFile = cfg.CookiesFile
	c.defaultProject = cfg.Project
	if cfg.StatusPollInterval > 0 {
		c.pollInterval = cfg.StatusPollInterval
	}
	logger.Info("OpenGrok client ready", "mode", string(cfg.Mode), "origin", creds.Origin(), "count", creds.Len())
	return c, nil
}

// NewWithBackend wraps an existing backend. The REST capability set is
// detected once here.
func NewWithBackend(b Backend, creds *credentials.Set, logger *slog.Logger) *Client {
	c := &Client{
		backend:      b,
		creds:        creds,
		pollInterval: time.Second,
		logger:       slogutil.OrDiscard(logger),
	}
	if rb, ok := b.(RESTBackend); ok {
		c.rest = rb
	}
	return c
}

// Mode returns the backend mode.
func (c *Client) Mode() config.Mode {
	return c.backend.Mode()
}

// DefaultProject returns the configured default project.
func (c *Client) DefaultProject() string {
	return c.defaultProject
}

// Credentials returns the credential set.
func (c *Client) Credentials() *credentials.Set {
	return c.creds
}

// restFor returns the REST backend or UnsupportedOperation.
func (c *Client) restFor(op string) (RESTBackend, error) {
	if c.rest == nil {
		return nil, errors.NewUnsupported(op, string(c.backend.Mode()))
	}
	return c.rest, nil
}

// Supports reports whether op can be served in the active mode.
func (c *Client) Supports(op string) bool {
	if c.rest != nil {
		return true
	}
	return coreOps[op]
}

// coreOps are served by every backend.
var coreOps = map[string]bool{
	"search":          true,
	"findDefinitions": true,
	"findReferences":  true,
	"getFile":         true,
	"listProjects":    true,
	"ping":            true,
}

// ReloadCredentials replaces the credential set with cookieString, or
// with the cookies file when cookieString is empty. It must not run
// concurrently with in-flight calls that need a consistent cookie view.
func (c *Client) ReloadCredentials(cookieString string) (int, error) {
	if c.creds == nil {
		return 0, errors.NewInternal("reloadCredentials", fmt.Errorf("no credential set"))
	}
	source := "argument"
	if strings.TrimSpace(cookieString) == "" {
		if c.cookiesFile == "" {
			return 0, errors.NewInvalidArgument("cookies", "required when no cookies file is configured")
		}
		s, err := readCookiesFile(c.cookiesFile)
		if err != nil {
			return 0, errors.NewInternal("read cookies file", err)
		}
		cookieString = s
		source = "file"
	}

	n, err := c.creds.Load(credentials.Normalize(cookieString))
	if err != nil {
		return 0, errors.NewInternal("reloadCredentials", err)
	}
	c.logger.Info("Credentials reloaded", "count", n, "source", source)
	return n, nil
}

func readCookiesFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return credentials.Normalize(string(b)), nil
}
