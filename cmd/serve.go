package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rizrmd/claystudio/internal/cliwire"
	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/httpapi"
	"github.com/rizrmd/claystudio/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket + HTTP gateway (agent turns, fan-out)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func runServe() {
	setupLogging()
	log := slog.Default()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	app, err := cliwire.Build(cfg, log)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.DB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	go app.Pool.RunSweep(ctx)

	ttl := 60 * time.Second
	if d, err := time.ParseDuration(cfg.Dmcache.TTL); err == nil && d > 0 {
		ttl = d
	}
	go app.Cache.RunSweep(ctx, ttl)

	server := httpapi.NewServer(cfg.Gateway, app.Hub, httpapi.NewSessionAuthenticator(app.Stores), log)
	if err := server.Start(ctx); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
