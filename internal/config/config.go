// Package config loads application configuration from an optional YAML
// master config file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "90d", "30m" or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// AuthSettings is the authentication section of the master config.
type AuthSettings struct {
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Enabled          bool     `yaml:"enabled"`
	SessionDuration  Duration `yaml:"sessionDuration"`
	MaxLoginAttempts int      `yaml:"maxLoginAttempts"`
	LockoutDuration  Duration `yaml:"lockoutDuration"`
}

// ProxySettings is carried verbatim for external collaborators.
type ProxySettings struct {
	Debug        bool     `yaml:"debug" json:"debug"`
	CacheEnabled bool     `yaml:"cacheEnabled" json:"cache_enabled"`
	CacheTTL     int      `yaml:"cacheTTL" json:"cache_ttl"`
	MaxRecursion int      `yaml:"maxRecursion" json:"max_recursion"`
	Timeout      int      `yaml:"timeout" json:"timeout"`
	UserAgents   []string `yaml:"userAgents" json:"user_agents"`
}

// UISettings is carried verbatim for external collaborators.
type UISettings struct {
	Title       string `yaml:"title" json:"title"`
	LoginTitle  string `yaml:"loginTitle" json:"login_title"`
	LoginPrompt string `yaml:"loginPrompt" json:"login_prompt"`
	Theme       string `yaml:"theme" json:"theme"`
}

// AppSettings is carried verbatim for external collaborators.
type AppSettings struct {
	Version     string `yaml:"version" json:"version"`
	Environment string `yaml:"environment" json:"environment"`
}

// fileConfig mirrors the master config file layout.
type fileConfig struct {
	Auth  AuthSettings  `yaml:"auth"`
	Proxy ProxySettings `yaml:"proxy"`
	UI    UISettings    `yaml:"ui"`
	App   AppSettings   `yaml:"app"`
}

// Config holds the application configuration.
type Config struct {
	Auth  AuthSettings
	Proxy ProxySettings
	UI    UISettings
	App   AppSettings

	ListenAddr     string
	DBPath         string
	SessionSweep   time.Duration
	MetricsEnabled bool
}

// CredentialRecord builds the initial credential record from the auth section.
func (c *Config) CredentialRecord() model.CredentialRecord {
	return model.CredentialRecord{
		Username:         c.Auth.Username,
		Password:         c.Auth.Password,
		Enabled:          c.Auth.Enabled,
		SessionDuration:  time.Duration(c.Auth.SessionDuration),
		MaxLoginAttempts: c.Auth.MaxLoginAttempts,
		LockoutDuration:  time.Duration(c.Auth.LockoutDuration),
	}
}

func defaults() fileConfig {
	return fileConfig{
		Auth: AuthSettings{
			Username:         "admin",
			Enabled:          true,
			SessionDuration:  Duration(90 * 24 * time.Hour),
			MaxLoginAttempts: 5,
			LockoutDuration:  Duration(30 * time.Minute),
		},
		Proxy: ProxySettings{
			CacheEnabled: true,
			CacheTTL:     86400,
			MaxRecursion: 5,
			Timeout:      10000,
			UserAgents:   []string{},
		},
		UI: UISettings{
			Title:       "credkeeper",
			LoginTitle:  "credkeeper sign-in",
			LoginPrompt: "Enter the access password",
			Theme:       "dark",
		},
		App: AppSettings{
			Version:     "2.0.0",
			Environment: "production",
		},
	}
}

// Load reads the optional master config file named by CREDKEEPER_CONFIG_FILE,
// then applies environment overrides and validates the result.
//
// Auth overrides: CREDKEEPER_AUTH_USERNAME, CREDKEEPER_AUTH_PASSWORD,
// CREDKEEPER_AUTH_ENABLED, CREDKEEPER_SESSION_DURATION,
// CREDKEEPER_MAX_LOGIN_ATTEMPTS, CREDKEEPER_LOCKOUT_DURATION.
// Service variables with defaults: CREDKEEPER_LISTEN_ADDR (127.0.0.1:8080),
// CREDKEEPER_DB_PATH (credkeeper.db), CREDKEEPER_SESSION_SWEEP (1m),
// CREDKEEPER_METRICS_ENABLED (true).
//
// A missing password is not an error here: the service starts and reports
// the credential store as having no digest.
func Load() (*Config, error) {
	fc := defaults()

	if path, ok := os.LookupEnv("CREDKEEPER_CONFIG_FILE"); ok && path != "" {
		if err := readFile(path, &fc); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Auth:           fc.Auth,
		Proxy:          fc.Proxy,
		UI:             fc.UI,
		App:            fc.App,
		ListenAddr:     "127.0.0.1:8080",
		DBPath:         "credkeeper.db",
		SessionSweep:   time.Minute,
		MetricsEnabled: true,
	}

	if v, ok := os.LookupEnv("CREDKEEPER_AUTH_USERNAME"); ok {
		cfg.Auth.Username = v
	}
	if v, ok := os.LookupEnv("CREDKEEPER_AUTH_PASSWORD"); ok {
		cfg.Auth.Password = v
	}
	if v, ok := os.LookupEnv("CREDKEEPER_AUTH_ENABLED"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_AUTH_ENABLED has invalid boolean %q: %w", v, err)
		}
		cfg.Auth.Enabled = parsed
	}
	if v, ok := os.LookupEnv("CREDKEEPER_SESSION_DURATION"); ok {
		parsed, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_SESSION_DURATION has invalid duration %q: %w", v, err)
		}
		cfg.Auth.SessionDuration = Duration(parsed)
	}
	if v, ok := os.LookupEnv("CREDKEEPER_MAX_LOGIN_ATTEMPTS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_MAX_LOGIN_ATTEMPTS has invalid integer %q: %w", v, err)
		}
		cfg.Auth.MaxLoginAttempts = parsed
	}
	if v, ok := os.LookupEnv("CREDKEEPER_LOCKOUT_DURATION"); ok {
		parsed, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_LOCKOUT_DURATION has invalid duration %q: %w", v, err)
		}
		cfg.Auth.LockoutDuration = Duration(parsed)
	}
	if v, ok := os.LookupEnv("CREDKEEPER_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("CREDKEEPER_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("CREDKEEPER_SESSION_SWEEP"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_SESSION_SWEEP has invalid duration %q: %w", v, err)
		}
		cfg.SessionSweep = parsed
	}
	if v, ok := os.LookupEnv("CREDKEEPER_METRICS_ENABLED"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CREDKEEPER_METRICS_ENABLED has invalid boolean %q: %w", v, err)
		}
		cfg.MetricsEnabled = parsed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.Username) == "" {
		errs = append(errs, errors.New("auth username must not be empty (CREDKEEPER_AUTH_USERNAME)"))
	}
	if c.Auth.MaxLoginAttempts < 1 {
		errs = append(errs, fmt.Errorf("max login attempts must be at least 1, got %d (CREDKEEPER_MAX_LOGIN_ATTEMPTS)", c.Auth.MaxLoginAttempts))
	}
	if c.Auth.SessionDuration <= 0 {
		errs = append(errs, errors.New("session duration must be positive (CREDKEEPER_SESSION_DURATION)"))
	}
	if c.Auth.LockoutDuration < 0 {
		errs = append(errs, errors.New("lockout duration must not be negative (CREDKEEPER_LOCKOUT_DURATION)"))
	}
	if c.SessionSweep <= 0 {
		errs = append(errs, errors.New("session sweep interval must be positive (CREDKEEPER_SESSION_SWEEP)"))
	}
	return errors.Join(errs...)
}

func readFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// parseDuration extends time.ParseDuration with a "d" (day) suffix.
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
