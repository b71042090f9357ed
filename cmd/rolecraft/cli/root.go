package cli

import (
	"bytes"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rolecraft/rolecraft/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and openapi
)

// legacyEnv maps config keys to the bare environment names older
// deployments still export.
var legacyEnv = map[string]string{
	"auth.jwt_secret": "JWT_SECRET",
	"auth.master_key": "MASTER_RECOVERY_KEY",
	"mail.username":   "EMAIL_USERNAME",
	"mail.password":   "EMAIL_PASSWORD",
}

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rolecraft",
		Short: "Admin backend for the RoleCraft portfolio",
		Long: `RoleCraft: the admin backend for the RoleCraft portfolio site.

It serves admin login and session lookup, first-admin bootstrap, OTP-confirmed
password changes, emailed password resets and a master-key emergency reset,
plus the role-targeted portfolios the site publishes by slug, over a small
JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rolecraft.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.rolecraft)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	godotenv.Load() // .env is optional

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rolecraft")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rolecraft")
	}

	setDefaults(config.DefaultYAMLConfig())

	viper.SetEnvPrefix("ROLECRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, legacy := range legacyEnv {
		viper.BindEnv(key, "ROLECRAFT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy)
	}

	// The config file is optional. When one is found it is re-read with
	// ${VAR} references expanded.
	if err := viper.ReadInConfig(); err == nil {
		if data, err := config.ReadConfigFile(viper.ConfigFileUsed()); err == nil {
			viper.ReadConfig(bytes.NewReader(data))
		}
	}
}

func setDefaults(d *config.YAMLConfig) {
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.trust_proxy", d.Server.TrustProxy)
	viper.SetDefault("server.cors.origins", d.Server.CORS.Origins)
	viper.SetDefault("store.driver", d.Store.Driver)
	viper.SetDefault("store.dsn", d.Store.DSN)
	viper.SetDefault("data_dir", "")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiry", d.Auth.JWTExpiry)
	viper.SetDefault("auth.master_key", "")
	viper.SetDefault("auth.allow_bootstrap", d.Auth.AllowBootstrap)
	viper.SetDefault("rate_limit.attempts", d.RateLimit.Attempts)
	viper.SetDefault("rate_limit.window", d.RateLimit.Window)
	viper.SetDefault("mail.smtp_host", d.Mail.SMTPHost)
	viper.SetDefault("mail.smtp_port", d.Mail.SMTPPort)
	viper.SetDefault("mail.username", "")
	viper.SetDefault("mail.password", "")
	viper.SetDefault("mail.from", "")
	viper.SetDefault("log.level", d.Logging.Level)
	viper.SetDefault("log.format", d.Logging.Format)
}
