package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rizrmd/claystudio/internal/cliwire"
	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/telemetry"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the analysis job scheduler and sandbox executor",
		Run: func(cmd *cobra.Command, args []string) {
			runWorker()
		},
	}
}

func runWorker() {
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

	log.Info("analysis worker starting")
	app.Jobs.Run(ctx)
}
