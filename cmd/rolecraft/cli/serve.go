package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rolecraft/rolecraft/internal/config"
	"github.com/rolecraft/rolecraft/internal/mail"
	"github.com/rolecraft/rolecraft/internal/server"
	"github.com/rolecraft/rolecraft/internal/service"
)

const banner = `
 ____       _       ____            __ _
|  _ \ ___ | | ___ / ___|_ __ __ _ / _| |_
| |_) / _ \| |/ _ \ |   | '__/ _' | |_| __|
|  _ < (_) | |  __/ |___| | | (_| |  _| |_
|_| \_\___/|_|\___|\____|_|  \__,_|_|  \__|
`

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long:  "Start the HTTP server that exposes the /auth endpoints used by the RoleCraft admin frontend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 5000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, codes logged instead of mailed)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	cfg := loadSettings()

	logger, err := newLogger(cfg.Logging, dev)
	if err != nil {
		return err
	}

	if err := prepareServeConfig(cfg, dev, logger); err != nil {
		return err
	}

	// Validate has already checked these parse.
	jwtExpiry, _ := time.ParseDuration(cfg.Auth.JWTExpiry)
	window, _ := time.ParseDuration(cfg.RateLimit.Window)
	shutdown, _ := time.ParseDuration(cfg.Server.ShutdownTimeout)

	fmt.Print(banner)
	fmt.Println()

	// 1. Credential store
	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("init credential store: %w", err)
	}
	logger.Info("credential store initialized", "driver", cfg.Store.Driver)

	// 2. Mail transport
	sender := newSender(cfg.Mail, dev, logger)

	// 3. Auth services
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, jwtExpiry)
	accounts := service.NewAccountService(store, authSvc, sender, logger, service.AccountOptions{
		MasterKey:        cfg.Auth.MasterKey,
		DisableBootstrap: !cfg.Auth.AllowBootstrap,
	})
	if cfg.Auth.MasterKey == "" {
		logger.Warn("auth.master_key not set, emergency reset is disabled")
	}

	// 4. First run
	hasAdmin, err := store.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - POST /auth/create-admin or run: rolecraft admin create")
	}

	// 5. HTTP server
	srvCfg := server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ShutdownTimeout:   shutdown,
		CORSOrigins:       cfg.Server.CORS.Origins,
		TrustProxy:        cfg.Server.TrustProxy,
		RateLimitAttempts: cfg.RateLimit.Attempts,
		RateLimitWindow:   window,
		Version:           versionString(),
	}
	portfolios := service.NewPortfolioService(store, logger)
	srv := server.New(srvCfg, store, accounts, portfolios, authSvc, logger)

	fmt.Printf("→ RoleCraft %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// prepareServeConfig fills development-only defaults and validates cfg.
func prepareServeConfig(cfg *config.YAMLConfig, dev bool, logger *slog.Logger) error {
	if dev && cfg.Auth.JWTSecret == "" {
		secret, err := randomHex(32)
		if err != nil {
			return err
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn("auth.jwt_secret not set, using an ephemeral secret; sessions end on restart")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid configuration", "error", e)
		}
		return fmt.Errorf("configuration invalid: %w", errors.Join(errs...))
	}
	return nil
}

// newSender picks the OTP transport: SMTP when credentials are configured,
// the log in development, and a failing sender otherwise.
func newSender(cfg config.MailConfig, dev bool, logger *slog.Logger) mail.Sender {
	switch {
	case cfg.Username != "":
		logger.Info("mail transport: smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password, cfg.From)
	case dev:
		logger.Warn("mail transport: log (development only, codes appear in the log)")
		return mail.LogSender{Logger: logger}
	default:
		logger.Warn("mail.username not set, OTP delivery will fail")
		return mail.DisabledSender{}
	}
}
