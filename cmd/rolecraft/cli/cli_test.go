package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/rolecraft/rolecraft/internal/config"
	"github.com/rolecraft/rolecraft/internal/mail"
)

// resetConfig clears global CLI state and re-runs initConfig with path as
// the config file (empty for none).
func resetConfig(t *testing.T, path string) {
	t.Helper()
	viper.Reset()
	cfgFile = path
	dataDir = ""
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
		dataDir = ""
	})
	initConfig()
}

func TestLoadSettingsDefaults(t *testing.T) {
	resetConfig(t, "")

	cfg := loadSettings()
	def := config.DefaultYAMLConfig()
	if cfg.Server.Port != def.Server.Port {
		t.Errorf("port = %d, want %d", cfg.Server.Port, def.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.RateLimit.Attempts != 5 || cfg.RateLimit.Window != "15m" {
		t.Errorf("rate limit = %d/%s, want 5/15m", cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	}
	if !cfg.Auth.AllowBootstrap {
		t.Error("bootstrap should be allowed by default")
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("ROLECRAFT_SERVER_PORT", "6001")
	t.Setenv("ROLECRAFT_RATE_LIMIT_ATTEMPTS", "9")
	resetConfig(t, "")

	cfg := loadSettings()
	if cfg.Server.Port != 6001 {
		t.Errorf("port = %d, want 6001", cfg.Server.Port)
	}
	if cfg.RateLimit.Attempts != 9 {
		t.Errorf("attempts = %d, want 9", cfg.RateLimit.Attempts)
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("MASTER_RECOVERY_KEY", "legacy-master")
	t.Setenv("EMAIL_USERNAME", "ops@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
	resetConfig(t, "")

	cfg := loadSettings()
	if cfg.Auth.JWTSecret != "legacy-secret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.MasterKey != "legacy-master" {
		t.Errorf("master key = %q", cfg.Auth.MasterKey)
	}
	if cfg.Mail.Username != "ops@example.com" || cfg.Mail.Password != "app-password" {
		t.Errorf("mail credentials = %q/%q", cfg.Mail.Username, cfg.Mail.Password)
	}
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("ROLECRAFT_AUTH_JWT_SECRET", "new-secret")
	resetConfig(t, "")

	if got := loadSettings().Auth.JWTSecret; got != "new-secret" {
		t.Errorf("jwt secret = %q, want new-secret", got)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rolecraft.yaml")
	if err := config.WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	resetConfig(t, path)

	if got := viper.ConfigFileUsed(); got != path {
		t.Errorf("config file used = %q, want %q", got, path)
	}
	cfg := loadSettings()
	if cfg.Auth.JWTExpiry != "24h" {
		t.Errorf("jwt expiry = %q, want 24h", cfg.Auth.JWTExpiry)
	}
}

func TestConfigFileExpandsEnv(t *testing.T) {
	t.Setenv("RC_TEST_JWT_SECRET", "secret-from-env")
	t.Setenv("RC_TEST_SMTP_HOST", "smtp.example.com")
	path := filepath.Join(t.TempDir(), "rolecraft.yaml")
	content := "auth:\n  jwt_secret: ${RC_TEST_JWT_SECRET}\nmail:\n  smtp_host: ${RC_TEST_SMTP_HOST}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	resetConfig(t, path)

	cfg := loadSettings()
	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Mail.SMTPHost != "smtp.example.com" {
		t.Errorf("smtp host = %q", cfg.Mail.SMTPHost)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Server.Port != config.DefaultYAMLConfig().Server.Port {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestConfigCheckReportsUnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rolecraft.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	resetConfig(t, path)

	if err := runConfigCheck(); err == nil {
		t.Fatal("expected config check to fail for an unparsable file")
	}
}

func TestResolveDataDir(t *testing.T) {
	resetConfig(t, "")

	dataDir = "/tmp/from-flag"
	if got := resolveDataDir(); got != "/tmp/from-flag" {
		t.Errorf("flag: got %q", got)
	}

	dataDir = ""
	viper.Set("data_dir", "/tmp/from-config")
	if got := resolveDataDir(); got != "/tmp/from-config" {
		t.Errorf("config: got %q", got)
	}
}

func TestOpenStoreUsesDataDir(t *testing.T) {
	resetConfig(t, "")
	dataDir = t.TempDir()

	store, err := openStore(config.StoreConfig{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer store.Close()

	matches, _ := filepath.Glob(filepath.Join(dataDir, "rolecraft.db*"))
	if len(matches) == 0 {
		t.Error("expected database file under the data dir")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, false); err != nil {
		t.Errorf("json logger: %v", err)
	}
	if _, err := newLogger(config.LoggingConfig{Level: "loud", Format: "text"}, false); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := newLogger(config.LoggingConfig{Level: "info", Format: "xml"}, false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRandomHex(t *testing.T) {
	a, err := randomHex(32)
	if err != nil {
		t.Fatalf("randomHex: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	b, _ := randomHex(32)
	if a == b {
		t.Error("two keys should differ")
	}
}

func TestVersionCommandJSON(t *testing.T) {
	cmd := newVersionCmd("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var info buildInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.Built != "2026-01-01" {
		t.Errorf("info = %+v", info)
	}
	if len(info.Stores) != len(config.Drivers()) {
		t.Errorf("stores = %v", info.Stores)
	}
}

func TestVersionCommandText(t *testing.T) {
	cmd := newVersionCmd("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	text := out.String()
	if !strings.HasPrefix(text, "RoleCraft admin API 1.2.3 (abc123, built 2026-01-01)") {
		t.Errorf("unexpected first line in %q", text)
	}
	if !strings.Contains(text, "sqlite") {
		t.Errorf("expected store list in %q", text)
	}
}

func TestOpenAPICommand(t *testing.T) {
	cmd := newOpenAPICmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--base-url", "https://api.example.com"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI == "" {
		t.Error("missing openapi version")
	}
	if _, ok := doc.Paths["/auth/login"]; !ok {
		t.Error("missing /auth/login path")
	}
}

func TestServeDevStartsWithoutMailSettings(t *testing.T) {
	resetConfig(t, "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := loadSettings()
	if err := prepareServeConfig(cfg, true, logger); err != nil {
		t.Fatalf("dev config should be usable on defaults: %v", err)
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		t.Errorf("expected an ephemeral secret, got %q", cfg.Auth.JWTSecret)
	}

	if _, ok := newSender(cfg.Mail, true, logger).(mail.LogSender); !ok {
		t.Error("dev mode without mail credentials should log codes")
	}
	if _, ok := newSender(cfg.Mail, false, logger).(mail.DisabledSender); !ok {
		t.Error("production without mail credentials should use the disabled sender")
	}
}

func TestServeRequiresSecretOutsideDev(t *testing.T) {
	resetConfig(t, "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := prepareServeConfig(loadSettings(), false, logger); err == nil {
		t.Fatal("expected an error without auth.jwt_secret")
	}
}

func TestNewSenderUsesSMTPWithCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, Username: "ops@example.com", Password: "pw"}

	if _, ok := newSender(cfg, true, logger).(*mail.SMTPSender); !ok {
		t.Error("configured credentials should select SMTP even in dev mode")
	}
}
