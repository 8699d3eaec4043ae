// Package transport provides the HTTP adapter used to talk to an OpenGrok
// server in one backend mode.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
	"github.com/LeeChunJun/OpenGrokMCP/internal/version"
)

const (
	// DefaultTimeout is the per-call timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects caps redirect hops within the origin.
	DefaultMaxRedirects = 10
	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 16 * 1024 * 1024

	browserAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	jsonContentType  = "application/json"
)

// Options configures an Adapter.
type Options struct {
	BaseURL    string
	Mode       config.Mode
	APIVersion string

	Username string
	Password string
	OAuth    bool
	APIToken string

	Timeout      time.Duration
	MaxRedirects int

	// Jar supplies cookies at call time; usually a *credentials.Set.
	Jar http.CookieJar
	// RoundTripper overrides the base transport (tests).
	RoundTripper http.RoundTripper
	Metrics      *Metrics
	Logger       *slog.Logger
}

// Adapter issues requests against one OpenGrok origin in one mode. It never
// fails on HTTP status; callers classify Response.StatusCode.
type Adapter struct {
	origin   *url.URL
	basePath string
	mode     config.Mode
	opts     Options
	client   *http.Client
	logger   *slog.Logger
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final request URL after in-origin redirects.
	URL *url.URL
	// LoginRedirect is set when the server redirected off the configured
	// origin, which is how an SSO gateway signals an expired session.
	LoginRedirect bool
	// LoginPage is set when a REST request succeeded with an HTML page,
	// which is how a same-origin login form reaches an API client.
	LoginPage bool
}

// RequestOption customises a single request.
type RequestOption func(*http.Request)

// WithAccept overrides the Accept header.
func WithAccept(accept string) RequestOption {
	return func(r *http.Request) { r.Header.Set("Accept", accept) }
}

// New creates an adapter for opts.Mode.
func New(opts Options) (*Adapter, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}
	if opts.Mode != config.ModeHTML && opts.Mode != config.ModeREST {
		return nil, fmt.Errorf("unknown backend mode %q", opts.Mode)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "v1"
	}

	base := opts.RoundTripper
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	rt := opts.Metrics.instrument(string(opts.Mode), gzhttp.Transport(base))

	a := &Adapter{
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host},
		mode:   opts.Mode,
		opts:   opts,
		logger: slogutil.OrDiscard(opts.Logger),
	}
	a.basePath = u.EscapedPath()
	if opts.Mode == config.ModeREST {
		a.basePath += "/api/" + opts.APIVersion
	}
	a.client = &http.Client{
		Transport:     rt,
		Jar:           opts.Jar,
		Timeout:       opts.Timeout,
		CheckRedirect: a.checkRedirect,
	}
	return a, nil
}

// Mode returns the backend mode the adapter was built for.
func (a *Adapter) Mode() config.Mode {
	return a.mode
}

// Origin returns scheme://host of the configured server.
func (a *Adapter) Origin() string {
	return a.origin.String()
}

// URL returns the absolute URL for path and query. path is already
// escaped; build it with EscapePath or url.PathEscape.
func (a *Adapter) URL(path string, query url.Values) string {
	u := *a.origin
	u.RawPath = a.basePath + "/" + strings.TrimLeft(path, "/")
	if p, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = p
	} else {
		u.Path, u.RawPath = u.RawPath, ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// EscapePath escapes each segment of a slash-separated source path.
func EscapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// checkRedirect follows redirects within the origin up to MaxRedirects and
// stops at the first hop that leaves it.
func (a *Adapter) checkRedirect(req *http.Request, via []*http.Request) error {
	if !a.sameOrigin(req.URL) {
		return http.ErrUseLastResponse
	}
	if len(via) >= a.opts.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", a.opts.MaxRedirects)
	}
	return nil
}

func (a *Adapter) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, a.origin.Scheme) && strings.EqualFold(u.Host, a.origin.Host)
}

// Do performs one request. Transport failures (including timeouts and
// context cancellation) are returned as UpstreamUnavailable; every HTTP
// status is returned as a Response.
func (a *Adapter) Do(ctx context.Context, method, path string, query url.Values, body io.Reader, opts ...RequestOption) (*Response, error) {
	op := method + " " + path
	target := a.URL(path, query)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.NewInternal("build request", err)
	}
	a.setHeaders(req, body != nil)
	for _, o := range opts {
		o(req)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug("Upstream request failed", "method", method, "path", path, "error", err.Error())
		return nil, errors.NewUpstreamUnavailable(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, errors.NewUpstreamUnavailable(op, fmt.Errorf("read body: %w", err))
	}
	if len(data) > MaxBodySize {
		return nil, errors.NewMalformedResponse(op, fmt.Sprintf("response body exceeds %d bytes", MaxBodySize), nil)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        resp.Request.URL,
	}
	out.LoginRedirect = a.isLoginRedirect(resp)
	out.LoginPage = a.isLoginPage(resp)

	a.logger.Debug("Upstream request",
		"mode", string(a.mode),
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// isLoginRedirect reports a 3xx whose Location leaves the origin.
func (a *Adapter) isLoginRedirect(resp *http.Response) bool {
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return false
	}
	loc, err := resp.Location()
	if err != nil {
		return false
	}
	return !a.sameOrigin(loc)
}

// isLoginPage reports a REST success whose body is HTML. The REST API
// only answers with JSON or plain text.
func (a *Adapter) isLoginPage(resp *http.Response) bool {
	if a.mode != config.ModeREST || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}

func (a *Adapter) setHeaders(req *http.Request, hasBody bool) {
	switch a.mode {
	case config.ModeHTML:
		req.Header.Set("Accept", browserAccept)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("User-Agent", browserUserAgent)
	case config.ModeREST:
		req.Header.Set("Accept", jsonContentType)
		req.Header.Set("User-Agent", version.UserAgent())
		if hasBody {
			req.Header.Set("Content-Type", jsonContentType)
		}
	}

	switch {
	case a.mode == config.ModeREST && a.opts.APIToken != "":
		req.Header.Set("Authorization", "Bearer "+a.opts.APIToken)
	case !a.opts.OAuth && a.opts.Username != "":
		req.SetBasicAuth(a.opts.Username, a.opts.Password)
	}
}
