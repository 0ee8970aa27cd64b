package main

import (
	"fmt"
	"log/slog"
	"os"

	classifierimpl "github.com/foxseedlab/mogimensetsu/external/classifier"
	configloader "github.com/foxseedlab/mogimensetsu/external/config"
	"github.com/foxseedlab/mogimensetsu/external/httpapi"
	oracleimpl "github.com/foxseedlab/mogimensetsu/external/oracle"
	"github.com/foxseedlab/mogimensetsu/external/realtime"
	repositoryimpl "github.com/foxseedlab/mogimensetsu/external/repository"
	webhookimpl "github.com/foxseedlab/mogimensetsu/external/webhook"
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/foxseedlab/mogimensetsu/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mogimensetsu",
	Short:         "AI interview evaluation backend",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configloader.Load()
		if err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		initLogger(cfg)
		slog.Info("startup: configuration loaded", "env", cfg.Env, "command", cmd.Name())
		loadedConfig = cfg
		return nil
	},
}

var loadedConfig *config.Config

func main() {
	rootCmd.AddCommand(serveCmd, evaluateCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	oracleimpl.RegisterDI(injector)
	classifierimpl.RegisterDI(injector)
	realtime.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	evaluation.RegisterDI(injector)
	emotion.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}
