package cli

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	apphttp "fintrack/internal/http"
	"fintrack/internal/services"
)

func (a *app) serveCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only web table view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = a.cfg.Port
			}
			ctx, stop := GracefulShutdown(cmd.Context(), a.logger)
			defer stop()

			return a.withLedger(ctx, true, func(svc *services.LedgerService) error {
				results := cache.NewLRUCache[apphttp.ResultSet](a.cfg.CacheSize, a.cfg.CacheTTL)
				srv, err := apphttp.NewServer(":"+port, svc, results, a.logger)
				if err != nil {
					return err
				}
				janitor := cache.NewJanitor(a.logger, results)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return srv.Run(gctx, a.cfg.ShutdownTimeout)
				})
				g.Go(func() error {
					return janitor.Run(gctx, cleanupInterval(a.cfg.CacheTTL))
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

// cleanupInterval sweeps expired entries twice per TTL, at most once a second.
func cleanupInterval(ttl time.Duration) time.Duration {
	return max(ttl/2, time.Second)
}
