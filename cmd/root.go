/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
)

var (
	cfgFile   string
	logFormat string
	logLevel  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "claimflow",
	Short:        "Insurance claim submission and approval workflow",
	Long:         "Claim lifecycle engine CLI powered by Cobra + Viper + GORM (SQLite no-cgo or Postgres).",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := logging.New(cmd.ErrOrStderr(), logFormat, logLevel)
		if err != nil {
			return errs.Wrap(err, "configure logger")
		}
		logging.SetDefault(logger)
		ctx := logging.WithLogger(cmd.Context(), logger)
		cmd.SetContext(logging.WithAttrs(ctx, slog.String("app", "claimflow")))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logger := slog.New(slog.NewTextHandler(rootCmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	ctx = logging.WithLogger(ctx, logger)
	ctx = logging.WithAttrs(ctx, slog.String("app", "claimflow"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text|json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}
