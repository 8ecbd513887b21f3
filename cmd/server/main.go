package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pairpad/pairpad-server/internal/app"
	"github.com/pairpad/pairpad-server/internal/config"
	"github.com/pairpad/pairpad-server/internal/log"
)

var (
	cfgPath  string
	addr     string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pairpad-server",
	Short: "Room-based relay and code execution server for collaborative editing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func run(cmd *cobra.Command) error {
	// .env is optional; real config comes from the viper loader.
	_ = godotenv.Load()

	bootLogger := log.New("info")
	cfg, cfgFile, err := config.Load(bootLogger, cfgPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("addr") {
		cfg.Addr = addr
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", cfgFile).Str("addr", cfg.Addr).Msg("starting pairpad server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	if err := application.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
