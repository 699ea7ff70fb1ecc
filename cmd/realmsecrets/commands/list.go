package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// NewListCommand lists the secret ids stored for a realm.
func NewListCommand(opts *Options) *cobra.Command {
	var (
		realm      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the secret ids stored for a realm",
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

			ids, err := resource.ListSecretIDs(cmd.Context(), realm)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string][]string{"secret_ids": ids})
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&realm, "realm", "", "Realm to list secrets for")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
