package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quant-desk/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "desk",
		Short:        "Quant trading desk simulator",
		Long:         "desk runs a simulated KRW/USD semiconductor trading desk driven by model-picked strategies.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdownSystem()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (defaults are used when empty)")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newCycleCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// newRunCmd starts the tick feed, the decision loop and the HTTP server
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the desk: tick feed, decision loop and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDesk(ctx, *configPath)
		},
	}
}

func runDesk(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	d := initializeDesk(ctx, cfg)
	defer d.close()

	go d.hub.Run(ctx)
	go d.runFeed(ctx)

	if cfg.AutoStart {
		d.runner.Start(ctx)
		logger.Info(ctx, "Decision loop started", "poll_seconds", cfg.PollSeconds)
	} else {
		logger.Info(ctx, "Decision loop idle; start it with POST /api/engine/start")
	}

	err = d.httpServer(ctx).Run(ctx, cfg.Server.Addr)

	logger.Info(context.Background(), "Shutting down...")
	d.runner.Stop()
	if p, serr := d.eod.SummarizeToday(); serr == nil && p != "" {
		logger.Info(context.Background(), "EOD CSV written", "path", p)
	}
	return err
}

// newCycleCmd runs one decision cycle on seeded history and prints it
func newCycleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run a single decision cycle and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			d := initializeDesk(ctx, cfg)
			defer d.close()

			res, err := d.cycler.Cycle(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "desk %s\n", version)
		},
	}
}
