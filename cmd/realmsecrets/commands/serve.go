package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbao-tools/realmsecrets/internal/admin"
	"github.com/openbao-tools/realmsecrets/internal/metrics"
)

// shutdownGrace is how long in-flight admin requests get on shutdown.
const shutdownGrace = 10 * time.Second

// NewServeCommand runs the admin HTTP server.
func NewServeCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the realm secret admin server",
		Long: `Serve the realm secret management API:

  GET    /admin/realms/{realm}/secrets
  GET    /admin/realms/{realm}/secrets/{id}
  PUT    /admin/realms/{realm}/secrets/{id}
  DELETE /admin/realms/{realm}/secrets/{id}

plus /health and /metrics. The listen address comes from the "listen"
config key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			resource, err := buildResource(opts, cfg)
			if err != nil {
				return err
			}

			metrics.InitMetrics()

			serverConfig := admin.DefaultServerConfig()
			serverConfig.Addr = cfg.Listen
			ready := admin.Ready(cfg.Address, cfg.CACertificateFile, opts.Logger)
			server := admin.NewServer(serverConfig, resource, ready, opts.Logger)
			server.Start()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			opts.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return server.Stop(shutdownCtx)
		},
	}
	return cmd
}
