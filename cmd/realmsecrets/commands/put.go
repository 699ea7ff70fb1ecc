package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// NewPutCommand creates or replaces a realm secret.
func NewPutCommand(opts *Options) *cobra.Command {
	var (
		realm   string
		value   string
		length  int
		charset string
	)

	cmd := &cobra.Command{
		Use:   "put <id>",
		Short: "Create or replace a realm secret",
		Long: `Store a secret under the given id for a realm. Without --value a
random secret is generated.

Examples:
  # Store a literal value
  realmsecrets put smtp --realm master --value 'p4ss'

  # Generate a 32-character secret from letters and digits
  realmsecrets put api-key --realm master --length 32 --charset upper,lower,digit`,
		Args: cobra.ExactArgs(1),
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

			var charsets []string
			if charset != "" {
				charsets = strings.Split(charset, ",")
			}

			secret, err := resource.PutSecret(cmd.Context(), realm, args[0], value, length, charsets)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(secret)
		},
	}

	cmd.Flags().StringVar(&realm, "realm", "", "Realm the secret belongs to")
	cmd.Flags().StringVar(&value, "value", "", "Secret value; omit to generate one")
	cmd.Flags().IntVar(&length, "length", 0, "Length of a generated secret (default 60)")
	cmd.Flags().StringVar(&charset, "charset", "", "Comma-separated classes for generation: upper,lower,digit,special")
	return cmd
}
