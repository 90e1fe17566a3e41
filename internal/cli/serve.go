package cli

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rgehrsitz/acrex/internal/metrics"
	"rgehrsitz/acrex/internal/runtime"
	"rgehrsitz/acrex/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve decisions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, rs, err := root.loadRules(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddress = listen
			}

			var opts []runtime.Option
			var metricsHandler http.Handler
			if cfg.Metrics.Enabled {
				registry := prometheus.NewRegistry()
				registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				opts = append(opts, runtime.WithObserver(metrics.NewDecisionMetrics(cfg.Metrics.Namespace, registry)))
				metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(runtime.NewEngine(rs, opts...), cfg.Server, metricsHandler).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_address)")
	return cmd
}
