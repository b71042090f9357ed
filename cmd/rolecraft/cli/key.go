package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Generate secrets",
		Long:  "Generate high-entropy values for auth.master_key and auth.jwt_secret.",
	}

	cmd.AddCommand(newKeyGenerateCmd())

	return cmd
}

// ---------- key generate ----------

func newKeyGenerateCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a fresh random key",
		Example: `  rolecraft key generate                  # 32 random bytes, hex encoded
  ROLECRAFT_AUTH_MASTER_KEY=$(rolecraft key generate) rolecraft serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 32 {
				return fmt.Errorf("--bytes must be at least 32")
			}
			key, err := randomHex(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 32, "Number of random bytes")

	return cmd
}

// randomHex returns n random bytes, hex encoded.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
