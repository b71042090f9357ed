package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rolecraft/rolecraft/internal/config"
)

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"auth.jwt_secret": true,
	"auth.master_key": true,
	"mail.password":   true,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage RoleCraft configuration",
		Long:  "Initialize a default configuration file, display the effective configuration or check it for problems.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigCheckCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default rolecraft.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVar(&path, "path", "rolecraft.yaml", "Where to write the file")

	return cmd
}

func runConfigInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Set auth.jwt_secret (and optionally auth.master_key, see 'rolecraft key generate'), then run 'rolecraft serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigShow() error {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("Config file: %s\n", configFile)
	} else {
		fmt.Println("Config file: (none found, using defaults and environment)")
	}
	fmt.Println()

	keys := viper.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		value := viper.Get(key)
		if secretKeys[key] && viper.GetString(key) != "" {
			value = "********"
		}
		fmt.Printf("  %s: %v\n", key, value)
	}

	return nil
}

// ---------- config check ----------

func newConfigCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck()
		},
	}

	return cmd
}

func runConfigCheck() error {
	// initConfig skips a file it cannot parse; report it here instead.
	if file := viper.ConfigFileUsed(); file != "" {
		if _, err := config.LoadYAMLConfig(file); err != nil {
			fmt.Printf("  ✗ %v\n", err)
			return fmt.Errorf("config file %s could not be loaded", file)
		}
	}

	errs := loadSettings().Validate()
	if len(errs) == 0 {
		fmt.Println("Configuration OK")
		return nil
	}
	for _, err := range errs {
		fmt.Printf("  ✗ %v\n", err)
	}
	return fmt.Errorf("%d configuration problem(s) found", len(errs))
}
