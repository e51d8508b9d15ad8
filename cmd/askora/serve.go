// cmd/askora/serve.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"askora/internal/api"
	"askora/internal/common/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	server := api.NewServer(&api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: config.GetDuration(cfg.Engine.RequestTimeout),
		ServiceName:    cfg.Observability.ServiceName,
	}, a.engine, a.obs, log)
	for name, check := range a.readiness {
		server.AddReadinessCheck(name, check)
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	return server.Start(ctx, fmt.Sprintf(":%d", port),
		config.GetDuration(cfg.Server.ReadTimeout),
		config.GetDuration(cfg.Server.WriteTimeout))
}
