package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openbao-tools/realmsecrets/internal/baoclient"
)

// NewDoctorCommand checks configuration and connectivity.
func NewDoctorCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and engine connectivity",
		Long: `Verify the deployment is able to resolve secrets.

This command checks:
- Configuration file validity
- Service account token presence
- Engine reachability and health
- Cache connectivity when configured`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.Logger
			failed := false

			logger.Info("Checking realmsecrets configuration...")
			cfg, err := opts.loadConfig()
			if err != nil {
				logger.Error("Configuration error: %v", err)
				return err
			}
			logger.Info("✓ Configuration loaded successfully")

			if info, err := os.Stat(cfg.ServiceAccountFile); err != nil {
				logger.Error("✗ Service account token %s is not readable: %v", cfg.ServiceAccountFile, err)
				failed = true
			} else if info.Size() == 0 {
				logger.Error("✗ Service account token %s is empty", cfg.ServiceAccountFile)
				failed = true
			} else {
				logger.Info("✓ Service account token present")
			}

			client, err := baoclient.New(cfg.Address, logger)
			if err != nil {
				logger.Error("✗ Engine address rejected: %v", err)
				failed = true
			} else {
				if cfg.CACertificateFile != "" {
					client.WithCACertificateFile(cfg.CACertificateFile)
				}
				if client.Ready(cmd.Context()) {
					logger.Info("✓ Engine at %s is healthy", cfg.Address)
				} else {
					logger.Error("✗ Engine at %s is not reachable or not healthy", cfg.Address)
					failed = true
				}
			}

			if cfg.Cache.Enabled() {
				c, err := buildCache(cfg)
				if err != nil {
					logger.Error("✗ Cache configuration rejected: %v", err)
					failed = true
				} else if err := c.Put(cmd.Context(), "doctor-probe", "ok"); err != nil {
					logger.Error("✗ Cache %s is not reachable: %v", cfg.Cache.Name, err)
					failed = true
				} else {
					_ = c.Delete(cmd.Context(), "doctor-probe")
					logger.Info("✓ Cache %s is reachable", cfg.Cache.Name)
				}
			} else {
				logger.Info("- Caching is disabled")
			}

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			logger.Info("All checks passed")
			return nil
		},
	}
	return cmd
}
