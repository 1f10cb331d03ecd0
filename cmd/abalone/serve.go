package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/abalone/artifact"
	"github.com/YuminosukeSato/abalone/pkg/log"
	"github.com/YuminosukeSato/abalone/serving"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		modelPath string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Long: `Serve the artifact over HTTP:

  GET  /          health check
  GET  /health    health check
  POST /predict   {"length": .., "sex": "M", ...} -> {"abalone_age": ..}
  GET  /metrics   Prometheus metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("model") {
				cfg.Model.Path = modelPath
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cache, err := artifact.NewCache(cfg.Model.CacheSize)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			adapter := serving.NewAdapter(cache, cfg.Model.Path, serving.NewMetrics(reg))

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			// a missing artifact is not fatal: requests answer 503 until
			// one is trained
			if err := adapter.Warm(ctx); err != nil {
				log.GetLoggerWithName("serve").Warn("Artifact not loaded", err, log.PathKey, cfg.Model.Path)
			}

			srv := serving.NewServer(adapter, reg, serving.ServerOptions{
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Path of the model artifact")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :8000)")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
