package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rolecraft/rolecraft/internal/config"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir, the data_dir
// setting (ROLECRAFT_DATA_DIR), or ~/.rolecraft as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rolecraft")
}

// loadSettings collects the effective configuration from viper into the
// same shape as the YAML file so it can be validated the same way.
func loadSettings() *config.YAMLConfig {
	return &config.YAMLConfig{
		Server: config.ServerConfig{
			Host:            viper.GetString("server.host"),
			Port:            viper.GetInt("server.port"),
			ShutdownTimeout: viper.GetString("server.shutdown_timeout"),
			TrustProxy:      viper.GetBool("server.trust_proxy"),
			CORS:            config.CORSConfig{Origins: viper.GetStringSlice("server.cors.origins")},
		},
		Store: config.StoreConfig{
			Driver: viper.GetString("store.driver"),
			DSN:    viper.GetString("store.dsn"),
		},
		Auth: config.AuthConfig{
			JWTSecret:      viper.GetString("auth.jwt_secret"),
			JWTExpiry:      viper.GetString("auth.jwt_expiry"),
			MasterKey:      viper.GetString("auth.master_key"),
			AllowBootstrap: viper.GetBool("auth.allow_bootstrap"),
		},
		RateLimit: config.RateLimitConfig{
			Attempts: viper.GetInt("rate_limit.attempts"),
			Window:   viper.GetString("rate_limit.window"),
		},
		Mail: config.MailConfig{
			SMTPHost: viper.GetString("mail.smtp_host"),
			SMTPPort: viper.GetInt("mail.smtp_port"),
			Username: viper.GetString("mail.username"),
			Password: viper.GetString("mail.password"),
			From:     viper.GetString("mail.from"),
		},
		Logging: config.LoggingConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

// openStore opens the credential store selected by store.driver. SQLite
// without an explicit DSN lives under the data directory.
func openStore(cfg config.StoreConfig) (*config.Store, error) {
	if cfg.Driver == "sqlite" && cfg.DSN == "" {
		return config.NewStore(resolveDataDir())
	}
	return config.Open(cfg.Driver, cfg.DSN)
}

// newLogger builds the process logger. dev forces debug level.
func newLogger(cfg config.LoggingConfig, dev bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if dev {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
