package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/secret"
)

func NewKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys in the system keychain",
	}
	cmd.AddCommand(newKeySetCmd())
	cmd.AddCommand(newKeyDeleteCmd())
	return cmd
}

// keyBackend builds the same keyring-then-file chain the run command uses,
// so keys stored here are found there.
func keyBackend(cmd *cobra.Command) (secret.Provider, error) {
	globals := getGlobalOptions(cmd.Context())
	cfg, err := config.Load(globals.ProjectDir)
	if err != nil {
		return nil, err
	}
	return secretBackend(*cfg, afero.NewOsFs()), nil
}

func newKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider (read from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s: ", args[0])
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key := strings.TrimSpace(line)
			if key == "" {
				return fmt.Errorf("empty key")
			}

			provider, err := keyBackend(cmd)
			if err != nil {
				return err
			}
			if err := provider.Set(secret.ProviderKey(args[0]), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored key for %s.\n", args[0])
			return nil
		},
	}
}

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a provider's API key from the keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := keyBackend(cmd)
			if err != nil {
				return err
			}
			if err := provider.Delete(secret.ProviderKey(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed key for %s.\n", args[0])
			return nil
		},
	}
}
