package config

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment key (OPENGROK_URL, OPENGROK_LOG_LEVEL, ...).
const EnvPrefix = "OPENGROK"

// Mode selects the upstream integration strategy. It is fixed for the
// lifetime of a client.
type Mode string

const (
	// ModeHTML scrapes the legacy web interface.
	ModeHTML Mode = "html"
	// ModeREST talks to the /api/{version} REST surface.
	ModeREST Mode = "rest"
)

const redacted = "[redacted]"

// Config represents the complete tool server configuration
type Config struct {
	URL                string        `json:"url" yaml:"url" mapstructure:"url" validate:"required,httpurl"`
	Mode               Mode          `json:"mode" yaml:"mode" mapstructure:"mode" validate:"oneof=html rest"`
	APIVersion         string        `json:"api_version" yaml:"api_version" mapstructure:"api_version" validate:"required,alphanum"`
	Project            string        `json:"project" yaml:"project" mapstructure:"project"`
	Username           string        `json:"username" yaml:"username" mapstructure:"username" validate:"required_with=Password"`
	Password           string        `json:"password" yaml:"password" mapstructure:"password"`
	Cookies            string        `json:"cookies" yaml:"cookies" mapstructure:"cookies"`
	CookiesFile        string        `json:"cookies_file" yaml:"cookies_file" mapstructure:"cookies_file"`
	OAuth              bool          `json:"oauth" yaml:"oauth" mapstructure:"oauth"`
	APIToken           string        `json:"api_token" yaml:"api_token" mapstructure:"api_token"`
	Timeout            time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxRedirects       int           `json:"max_redirects" yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0,lte=50"`
	StatusPollInterval time.Duration `json:"status_poll_interval" yaml:"status_poll_interval" mapstructure:"status_poll_interval" validate:"gt=0"`

	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`
	File  string `json:"file" yaml:"file" mapstructure:"file"`
}

// MetricsConfig contains the optional Prometheus listener
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Mode:               ModeREST,
		APIVersion:         "v1",
		Timeout:            30 * time.Second,
		MaxRedirects:       10,
		StatusPollInterval: time.Second,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewViper returns a viper instance carrying the defaults and the
// environment binding. Callers may bind CLI flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	// Every key needs a default so AutomaticEnv picks it up during Unmarshal.
	v.SetDefault("url", d.URL)
	v.SetDefault("mode", string(d.Mode))
	v.SetDefault("api_version", d.APIVersion)
	v.SetDefault("project", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("cookies", "")
	v.SetDefault("cookies_file", "")
	v.SetDefault("oauth", false)
	v.SetDefault("api_token", "")
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_redirects", d.MaxRedirects)
	v.SetDefault("status_poll_interval", d.StatusPollInterval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from defaults, the optional config file
// and the environment.
func LoadConfig(configFile string) (*Config, error) {
	return Load(NewViper(), configFile)
}

// Load reads configFile (if set) into v, unmarshals and validates.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &ConfigError{Field: "config", Message: err.Error()}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Message: err.Error()}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.Mode = Mode(strings.ToLower(string(c.Mode)))
	c.Project = strings.TrimSpace(c.Project)
	c.Cookies = strings.TrimSpace(c.Cookies)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{Field: fieldPath(fe.Namespace()), Message: describe(fe)}
	}
	return &ConfigError{Field: "config", Message: err.Error()}
}

// BaseURL returns the configured origin without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.URL, "/")
}

// Redacted returns a copy with credential values masked.
func (c *Config) Redacted() Config {
	out := *c
	for _, s := range []*string{&out.Password, &out.Cookies, &out.APIToken} {
		if *s != "" {
			*s = redacted
		}
	}
	return out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	r := c.Redacted()
	return yaml.Marshal(&r)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("httpurl", validateHTTPURL)
}

// validateHTTPURL accepts absolute http(s) URLs with a host.
func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// fieldPath drops the root struct name: "Config.log.level" -> "log.level".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "httpurl":
		return "must be an absolute http or https URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "required_with":
		return "is required when password is set"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "lte":
		return "out of range"
	case "hostname_port":
		return "must be host:port"
	default:
		return "failed '" + fe.Tag() + "' validation"
	}
}
