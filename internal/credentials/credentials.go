// Package credentials holds the session cookies used to authenticate to an
// SSO-protected OpenGrok instance.
package credentials

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/LeeChunJun/OpenGrokMCP/internal/slogutil"
)

// Set is an ordered collection of cookies scoped to one origin. It
// implements http.CookieJar so a client reads it at call time.
//
// Load replaces the whole set; callers must not reload concurrently with
// in-flight requests if they need a consistent view.
type Set struct {
	origin *url.URL
	logger *slog.Logger

	mu    sync.RWMutex
	jar   *cookiejar.Jar
	names []string // insertion order of distinct cookie names
}

// New creates an empty set for origin.
func New(origin string, logger *slog.Logger) (*Set, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}

	s := &Set{
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		logger: slogutil.OrDiscard(logger),
	}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	s.jar = jar
	s.names = nil
	return nil
}

// Load replaces all held cookies with those parsed from a
// "name=value; name=value" string. Segments that do not parse are skipped
// and logged. It returns the number of cookies accepted.
func (s *Set) Load(cookieString string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(); err != nil {
		return 0, err
	}
	return s.addLocked(cookieString), nil
}

// Merge adds cookies from a "name=value; ..." string to the held set,
// overwriting cookies with the same name.
func (s *Set) Merge(cookieString string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(cookieString)
}

func (s *Set) addLocked(cookieString string) int {
	cookies := Parse(cookieString, s.logger)
	if len(cookies) == 0 {
		return 0
	}

	s.jar.SetCookies(s.origin, cookies)
	for _, c := range cookies {
		if !contains(s.names, c.Name) {
			s.names = append(s.names, c.Name)
		}
	}
	s.logger.Debug("Credentials loaded", "count", len(cookies), "origin", s.origin.Host)
	return len(cookies)
}

// Serialize returns the held cookies as one "name=value; name=value" string.
func (s *Set) Serialize() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Format(s.ordered())
}

// Len returns the number of cookies held for the origin.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jar.Cookies(s.origin))
}

// Origin returns the origin the set is scoped to.
func (s *Set) Origin() string {
	return s.origin.Scheme + "://" + s.origin.Host
}

// ordered returns the jar's cookies with known names first in insertion
// order. Cookies the server set on its own follow in jar order.
func (s *Set) ordered() []*http.Cookie {
	held := s.jar.Cookies(s.origin)
	byName := make(map[string]*http.Cookie, len(held))
	for _, c := range held {
		byName[c.Name] = c
	}

	out := make([]*http.Cookie, 0, len(held))
	for _, n := range s.names {
		if c, ok := byName[n]; ok {
			out = append(out, c)
			delete(byName, n)
		}
	}
	for _, c := range held {
		if _, ok := byName[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// SetCookies implements http.CookieJar.
func (s *Set) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (s *Set) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Cookies(u)
}

// Parse splits a cookie header string into cookies scoped to path "/".
// Each segment is split at its first '=' so values may contain '='.
// Segments without a name or with an invalid name are skipped; only the
// segment index is logged.
func Parse(cookieString string, logger *slog.Logger) []*http.Cookie {
	logger = slogutil.OrDiscard(logger)

	var out []*http.Cookie
	for i, seg := range strings.Split(cookieString, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, value, ok := strings.Cut(seg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || !validName(name) {
			logger.Warn("Skipping unparseable cookie segment", "segment", i)
			continue
		}
		out = append(out, &http.Cookie{
			Name:  name,
			Value: strings.TrimSpace(value),
			Path:  "/",
		})
	}
	return out
}

// Format joins cookies as "name=value; name=value".
func Format(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Normalize reformats a pasted cookie string (for example a raw "Cookie:"
// header copied from browser developer tools, or one pair per line) into
// canonical form.
func Normalize(cookieString string) string {
	s := strings.TrimSpace(cookieString)
	if len(s) > 7 && strings.EqualFold(s[:7], "cookie:") {
		s = s[7:]
	}
	s = strings.NewReplacer("\r\n", ";", "\n", ";").Replace(s)
	return Format(Parse(s, nil))
}

// validName reports whether name is an RFC 6265 token.
func validName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`()<>@,;:\"/[]?={}`, c) >= 0 {
			return false
		}
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
