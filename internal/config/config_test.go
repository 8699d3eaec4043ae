package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != ModeREST {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeREST)
	}
	if cfg.APIVersion != "v1" {
		t.Errorf("APIVersion = %q, want v1", cfg.APIVersion)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRedirects != 10 {
		t.Errorf("MaxRedirects = %d, want 10", cfg.MaxRedirects)
	}
	if cfg.StatusPollInterval != time.Second {
		t.Errorf("StatusPollInterval = %v, want 1s", cfg.StatusPollInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing url", func(c *Config) { c.URL = "" }, "url"},
		{"relative url", func(c *Config) { c.URL = "grok.example.com/source" }, "url"},
		{"ftp url", func(c *Config) { c.URL = "ftp://grok.example.com" }, "url"},
		{"bad mode", func(c *Config) { c.Mode = "soap" }, "mode"},
		{"password without username", func(c *Config) { c.Password = "secret" }, "username"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }, "max_redirects"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "not an addr" }, "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.URL = "https://grok.example.com/source"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("OPENGROK_URL", "https://grok.example.com/source/")
	t.Setenv("OPENGROK_MODE", "HTML")
	t.Setenv("OPENGROK_PROJECT", " kernel ")
	t.Setenv("OPENGROK_TIMEOUT", "5s")
	t.Setenv("OPENGROK_LOG_LEVEL", "debug")
	t.Setenv("OPENGROK_OAUTH", "true")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.URL != "https://grok.example.com/source" {
		t.Errorf("URL = %q, trailing slash should be stripped", cfg.URL)
	}
	if cfg.Mode != ModeHTML {
		t.Errorf("Mode = %q, want html", cfg.Mode)
	}
	if cfg.Project != "kernel" {
		t.Errorf("Project = %q, want kernel", cfg.Project)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.OAuth {
		t.Error("OAuth should be true")
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opengrok.yaml")
	content := "url: http://localhost:8080\nmode: rest\nmax_redirects: 3\nlog:\n  file: /tmp/mcp.log\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.URL != "http://localhost:8080" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.MaxRedirects != 3 {
		t.Errorf("MaxRedirects = %d, want 3", cfg.MaxRedirects)
	}
	if cfg.Log.File != "/tmp/mcp.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if cfg.APIVersion != "v1" {
		t.Errorf("APIVersion default lost: %q", cfg.APIVersion)
	}
}

func TestLoadConfig_MissingURL(t *testing.T) {
	t.Setenv("OPENGROK_URL", "")

	_, err := LoadConfig("")
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "url" {
		t.Fatalf("LoadConfig() error = %v, want ConfigError on url", err)
	}
}

func TestConfig_YAMLRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "https://grok.example.com"
	cfg.Username = "alice"
	cfg.Password = "hunter2"
	cfg.Cookies = "JSESSIONID=abc123"
	cfg.APIToken = "tok"

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	s := string(out)

	for _, secret := range []string{"hunter2", "JSESSIONID=abc123", "tok\n"} {
		if strings.Contains(s, secret) {
			t.Errorf("YAML output leaked %q:\n%s", secret, s)
		}
	}
	if !strings.Contains(s, "username: alice") {
		t.Errorf("YAML output should keep username:\n%s", s)
	}
	if !strings.Contains(s, "timeout: 30s") {
		t.Errorf("YAML output should render durations:\n%s", s)
	}
	if cfg.Password != "hunter2" {
		t.Error("Redacted must not mutate the original")
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "url", Message: "is required"}
	if got := err.Error(); got != "config error in field 'url': is required" {
		t.Errorf("Error() = %q", got)
	}
}
