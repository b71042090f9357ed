package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultYAMLConfig(t *testing.T) {
	cfg := DefaultYAMLConfig()

	if cfg.Server.Port != 5000 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTExpiry != "24h" {
		t.Errorf("jwt_expiry: got %q", cfg.Auth.JWTExpiry)
	}
	if cfg.RateLimit.Attempts != 5 || cfg.RateLimit.Window != "15m" {
		t.Errorf("rate limit: got %+v", cfg.RateLimit)
	}
	if !cfg.Auth.AllowBootstrap {
		t.Error("expected bootstrap allowed by default")
	}
}

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("ROLECRAFT_TEST_SECRET", "from-the-environment-0123456789abcdef")

	path := filepath.Join(t.TempDir(), "rolecraft.yaml")
	content := `
server:
  port: 8081
auth:
  jwt_secret: ${ROLECRAFT_TEST_SECRET}
  allow_bootstrap: false
store:
  driver: postgres
  dsn: postgres://localhost/rolecraft
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-the-environment-0123456789abcdef" {
		t.Errorf("jwt_secret: got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AllowBootstrap {
		t.Error("expected allow_bootstrap false")
	}
	// Unset keys keep their defaults.
	if cfg.Auth.JWTExpiry != "24h" {
		t.Errorf("jwt_expiry: got %q", cfg.Auth.JWTExpiry)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver: got %q", cfg.Store.Driver)
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	if _, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rolecraft.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode: got %v, want 0600", info.Mode().Perm())
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Mail.SMTPPort != 587 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *YAMLConfig {
		cfg := DefaultYAMLConfig()
		cfg.Auth.JWTSecret = strings.Repeat("s", 32)
		return cfg
	}

	if errs := valid().Validate(); len(errs) != 0 {
		t.Fatalf("expected valid config, got %v", errs)
	}

	tests := []struct {
		name   string
		mutate func(*YAMLConfig)
		field  string
	}{
		{"short secret", func(c *YAMLConfig) { c.Auth.JWTSecret = "short" }, "auth.jwt_secret"},
		{"bad expiry", func(c *YAMLConfig) { c.Auth.JWTExpiry = "one day" }, "auth.jwt_expiry"},
		{"short master key", func(c *YAMLConfig) { c.Auth.MasterKey = "abc" }, "auth.master_key"},
		{"unknown driver", func(c *YAMLConfig) { c.Store.Driver = "mongodb" }, "store.driver"},
		{"postgres without dsn", func(c *YAMLConfig) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"zero attempts", func(c *YAMLConfig) { c.RateLimit.Attempts = 0 }, "rate_limit.attempts"},
		{"bad window", func(c *YAMLConfig) { c.RateLimit.Window = "soon" }, "rate_limit.window"},
		{"bad shutdown timeout", func(c *YAMLConfig) { c.Server.ShutdownTimeout = "x" }, "server.shutdown_timeout"},
		{"mail password without username", func(c *YAMLConfig) { c.Mail.Password = "app-password" }, "mail.username"},
		{"mail username without host", func(c *YAMLConfig) {
			c.Mail.Username = "ops@example.com"
			c.Mail.SMTPHost = ""
		}, "mail.smtp_host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, err := range errs {
				if strings.HasPrefix(err.Error(), tt.field) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error for %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateDefaultsWithoutMail(t *testing.T) {
	cfg := DefaultYAMLConfig()
	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	if cfg.Mail.Username != "" || cfg.Mail.From != "" {
		t.Fatalf("defaults should carry no mail credentials: %+v", cfg.Mail)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config with a secret should validate, got %v", errs)
	}

	cfg.Mail.Username = "ops@example.com"
	cfg.Mail.Password = "app-password"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("username without from should validate, got %v", errs)
	}
}
