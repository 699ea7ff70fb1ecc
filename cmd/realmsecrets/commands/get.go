package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/secure"
)

// NewGetCommand resolves a single reference and prints the value.
func NewGetCommand(opts *Options) *cobra.Command {
	var realm string

	cmd := &cobra.Command{
		Use:   "get <reference>",
		Short: "Resolve a secret reference for a realm",
		Long: `Resolve a secret reference the way the identity platform would and
print the raw value to stdout.

The reference uses the configured grammar, e.g. "smtp:password" or a
full "${vault.smtp:password}" token.

Examples:
  # Resolve the default field of a secret
  realmsecrets get smtp --realm master

  # Resolve a named field, suitable for scripting
  SMTP_PASS=$(realmsecrets get smtp:password --realm master)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if realm == "" {
				return rserrors.ConfigError{
					Field:      "realm",
					Message:    "realm name is required",
					Suggestion: "use --realm <name> to pick the realm the reference belongs to",
				}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			res, err := buildResolver(opts, cfg)
			if err != nil {
				return err
			}

			value, err := res.Resolve(cmd.Context(), args[0], realm)
			if err != nil {
				return err
			}

			// Keep the value in protected memory until the moment it is
			// written out.
			held := secure.NewValue(value)
			defer held.Destroy()
			revealed, err := held.Reveal()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), revealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&realm, "realm", "", "Realm the reference belongs to")
	return cmd
}
