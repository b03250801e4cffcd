package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults and
// validates the result. Every bad variable is reported, not just the first.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// lookup returns the first non-empty value among name and alt.
func lookup(name, alt string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if alt != "" {
		return os.Getenv(alt)
	}
	return ""
}

// loadStruct populates the tagged fields of v, descending into nested
// section structs.
//
// Tags:
//
//	env:"NAME"        primary variable
//	envAlt:"NAME"     fallback variable
//	default:"value"   used when both are unset
//	required:"true"   fail when both are unset
//	sep:";"           list separator for slices (default ",")
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value := lookup(name, field.Tag.Get("envAlt"))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value, field.Tag.Get("sep")); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
		}
	}

	return errors.Join(errs...)
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value, sep string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value, sep)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a list variable, trimming entries and dropping empty ones.
func splitList(value, sep string) []string {
	if sep == "" {
		sep = ","
	}
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// problems collects validation failures.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var p problems

	c.Server.validate(&p)
	c.Database.validate(&p)
	if len(c.Preload.Tables) > 0 && !c.Database.Enabled() {
		p.addf("DATASET_TABLES requires DATABASE_URL")
	}
	c.Grid.validate(&p)
	c.Session.validate(&p)
	c.Upload.validate(&p)
	c.Rate.validate(&p)
	c.Security.validate(&p)
	c.Logging.validate(&p)
	if c.Preload.IndexColumns < 0 {
		p.addf("DATASET_INDEX_COLUMNS must be non-negative")
	}

	if len(p) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

func (c *ServerConfig) validate(p *problems) {
	if c.Port <= 0 || c.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", c.Port)
	}
	if c.ReadTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

// validate checks pool settings, only when a URL is configured.
func (c *DatabaseConfig) validate(p *problems) {
	if !c.Enabled() {
		return
	}
	if c.MaxConns < c.MinConns {
		p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns)
	}
	if c.MaxConns <= 0 {
		p.addf("DB_MAX_CONNS must be positive")
	}
	if c.MinConns < 0 {
		p.addf("DB_MIN_CONNS must be non-negative")
	}
	if c.QueryRowLimit < 0 {
		p.addf("DB_QUERY_ROW_LIMIT must be non-negative")
	}
}

func (c *GridConfig) validate(p *problems) {
	if c.BufferSize <= 0 {
		p.addf("GRID_BUFFER_SIZE must be positive")
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			p.addf("GRID_LOCALE (%q) is not a BCP 47 tag: %v", c.Locale, err)
		}
	}
}

func (c *SessionConfig) validate(p *problems) {
	if c.MaxSessions <= 0 {
		p.addf("SESSION_MAX must be positive")
	}
	if c.IdleTimeout <= 0 {
		p.addf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.SweepInterval <= 0 {
		p.addf("SESSION_SWEEP_INTERVAL must be positive")
	}
}

func (c *UploadConfig) validate(p *problems) {
	if c.MaxFileSize <= 0 {
		p.addf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		p.addf("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.MaxRows < 0 {
		p.addf("UPLOAD_MAX_ROWS must be non-negative")
	}
	if c.MaxWaitTime <= 0 {
		p.addf("UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Timeout <= 0 {
		p.addf("UPLOAD_TIMEOUT must be positive")
	}
}

func (c *RateLimitConfig) validate(p *problems) {
	if c.Enabled && c.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.UploadLimit < 0 {
		p.addf("RATE_LIMIT_UPLOAD must be non-negative")
	}
}

func (c *SecurityConfig) validate(p *problems) {
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	for _, s := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(s); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(s); err != nil {
			p.addf("TRUSTED_PROXIES entry %q is neither a CIDR nor an address", s)
		}
	}
}

func (c *LoggingConfig) validate(p *problems) {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", c.Format)
	}
}

// String returns a safe string representation of the config for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: [MASKED], Enabled: %v, MaxConns: %d}, ", c.Database.Enabled(), c.Database.MaxConns)
	fmt.Fprintf(&b, "Grid: {BufferSize: %d, Locale: %q, FilterRow: %v}, ", c.Grid.BufferSize, c.Grid.Locale, c.Grid.FilterRow)
	fmt.Fprintf(&b, "Session: {MaxSessions: %d, IdleTimeout: %s}, ", c.Session.MaxSessions, c.Session.IdleTimeout)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxRows: %d}, ", c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxRows)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: [%d MASKED]}, ", c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Preload: {Files: %d, Tables: %d}, ", len(c.Preload.Files), len(c.Preload.Tables))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}}", c.Logging.Level, c.Logging.Format)
	return b.String()
}
