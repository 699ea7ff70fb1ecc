package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openbao-tools/realmsecrets/cmd/realmsecrets/commands"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Drop every protected secret buffer on the way out.
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "realmsecrets",
		Short: "Resolve and manage realm secrets stored in OpenBao / Vault",
		Long: `realmsecrets resolves secret references from identity realm
configuration against an OpenBao or HashiCorp Vault KV engine, and
manages the stored secrets per realm.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.ConfigFile = configFile
			opts.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "realmsecrets.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewServeCommand(opts),
		commands.NewGetCommand(opts),
		commands.NewListCommand(opts),
		commands.NewPutCommand(opts),
		commands.NewDeleteCommand(opts),
		commands.NewDoctorCommand(opts),
	)

	return rootCmd.Execute()
}
