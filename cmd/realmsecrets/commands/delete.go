package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// NewDeleteCommand removes a realm secret.
func NewDeleteCommand(opts *Options) *cobra.Command {
	var realm string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a realm secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if realm == "" {
				return rserrors.ConfigError{
					Field:      "realm",
					Message:    "realm name is required",
					Suggestion: "use --realm <name>",
				}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			resource, err := buildResource(opts, cfg)
			if err != nil {
				return err
			}

			if err := resource.DeleteSecret(cmd.Context(), realm, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&realm, "realm", "", "Realm the secret belongs to")
	return cmd
}
