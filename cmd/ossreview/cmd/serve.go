package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openctemio/ossreview/internal/config"
	"github.com/openctemio/ossreview/internal/infra/exec"
	"github.com/openctemio/ossreview/internal/infra/http"
	"github.com/openctemio/ossreview/internal/infra/http/handler"
	"github.com/openctemio/ossreview/internal/infra/mcpserver"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audits as MCP tools over stdio",
		Long: `Start an MCP server on stdin/stdout exposing the audit_licenses,
audit_advisories and get_policy tools and the oss_readiness_review prompt.

Logs go to stderr. With --metrics-addr (env: METRICS_ADDR) an HTTP
listener serves /healthz and /metrics alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, func(c *config.Config) {
				if metricsAddr != "" {
					c.Metrics.Addr = metricsAddr
				}
			})
			if err != nil {
				return err
			}
			d, err := newDeps(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mcps := mcpserver.New(mcpserver.Config{
				Name:     cfg.App.Name,
				Version:  version,
				Licenses: d.Licenses,
				Advisory: d.Advisory,
				Policy:   d.Policy,
			}, d.Logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer stop()
				return mcps.ServeStdio(gctx)
			})

			if cfg.Metrics.Enabled() {
				srv := http.NewServer(cfg, d.Logger, http.WithHealthOptions(
					handler.WithVersion(version),
					handler.WithCheck("sbom", exec.ToolCheck{Name: cfg.SBOM.Command}),
					handler.WithCheck("advisory", exec.ToolCheck{Name: cfg.Advisory.Command}),
				))
				g.Go(srv.Start)
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /healthz and /metrics on this address (env: METRICS_ADDR)")
	return cmd
}
