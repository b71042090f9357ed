package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rolecraft/rolecraft/internal/mail"
	"github.com/rolecraft/rolecraft/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create and list the administrators who can sign in to the RoleCraft admin panel.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// openAccounts opens the configured store and wraps it in an AccountService
// suitable for offline administration. The returned close func releases the
// store.
func openAccounts() (*service.AccountService, func() error, error) {
	cfg := loadSettings()
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := service.NewAccountService(store, nil, mail.DisabledSender{}, logger, service.AccountOptions{})
	return accounts, store.Close, nil
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  rolecraft admin create --email admin@example.com --password 'long-secret'
  rolecraft admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(ctx context.Context, email, password string) error {
	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	accounts, closeStore, err := openAccounts()
	if err != nil {
		return err
	}
	defer closeStore()

	admin, err := accounts.CreateAdmin(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Created admin user %q (id %s)\n", admin.Email, admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, jsonOutput bool) error {
	accounts, closeStore, err := openAccounts()
	if err != nil {
		return err
	}
	defer closeStore()

	admins, err := accounts.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Println("No admin users configured. Use 'rolecraft admin create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-30s %-20s\n", "ID", "EMAIL", "LAST LOGIN")
	fmt.Printf("%-38s %-30s %-20s\n", "--", "-----", "----------")
	for _, a := range admins {
		lastLogin := "never"
		if a.LastLoginAt != nil {
			lastLogin = a.LastLoginAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-38s %-30s %-20s\n", a.ID, a.Email, lastLogin)
	}

	return nil
}
