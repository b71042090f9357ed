package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level rolecraft configuration file.
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Mail      MailConfig      `yaml:"mail"`
	Logging   LoggingConfig   `yaml:"log"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	TrustProxy      bool       `yaml:"trust_proxy"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// StoreConfig selects the credential database.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig controls token signing and the recovery paths.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiry      string `yaml:"jwt_expiry"`
	MasterKey      string `yaml:"master_key"`
	AllowBootstrap bool   `yaml:"allow_bootstrap"`
}

// RateLimitConfig bounds attempts on the credential endpoints per client IP.
type RateLimitConfig struct {
	Attempts int    `yaml:"attempts"`
	Window   string `yaml:"window"`
}

// MailConfig holds SMTP settings for OTP delivery.
type MailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
// Fields missing from the file keep their defaults.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := ReadConfigFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ReadConfigFile returns the contents of the config file at path with
// ${VAR_NAME} references expanded from the environment.
func ReadConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return []byte(os.ExpandEnv(string(data))), nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"http://localhost:5173"},
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			JWTExpiry:      "24h",
			AllowBootstrap: true,
		},
		RateLimit: RateLimitConfig{
			Attempts: 5,
			Window:   "15m",
		},
		Mail: MailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate reports every problem that would prevent the server from running
// the auth flows safely. A nil result means the configuration is usable.
func (c *YAMLConfig) Validate() []error {
	var errs []error

	if _, ok := dialects[c.Store.Driver]; !ok {
		errs = append(errs, fmt.Errorf("store.driver: %w: %q (one of %s)", ErrUnsupportedDriver, c.Store.Driver, strings.Join(Drivers(), ", ")))
	}
	if c.Store.Driver != "sqlite" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn: required for "+c.Store.Driver))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret: must be at least 32 characters"))
	}
	if _, err := time.ParseDuration(c.Auth.JWTExpiry); err != nil {
		errs = append(errs, fmt.Errorf("auth.jwt_expiry: %w", err))
	}
	if c.Auth.MasterKey != "" && len(c.Auth.MasterKey) < 32 {
		errs = append(errs, errors.New("auth.master_key: must be at least 32 characters when set"))
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout: %w", err))
	}
	if c.RateLimit.Attempts <= 0 {
		errs = append(errs, errors.New("rate_limit.attempts: must be positive"))
	}
	if _, err := time.ParseDuration(c.RateLimit.Window); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit.window: %w", err))
	}
	// SMTP is only used once credentials are configured; the sender address
	// falls back to the username.
	if c.Mail.Password != "" && c.Mail.Username == "" {
		errs = append(errs, errors.New("mail.username: required when mail.password is set"))
	}
	if c.Mail.Username != "" && c.Mail.SMTPHost == "" {
		errs = append(errs, errors.New("mail.smtp_host: required when mail.username is set"))
	}
	return errs
}
