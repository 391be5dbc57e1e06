package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/claims"
)

const (
	appStartTimeout = 10 * time.Second
	appStopTimeout  = 10 * time.Second
)

// commandContext tags every record emitted while cmd runs, including the
// container's own lifecycle events.
func commandContext(cmd *cobra.Command) context.Context {
	return logging.WithAttrs(
		cmd.Context(),
		slog.String("command", cmd.CommandPath()),
		slog.String("config_file", cfgFile),
	)
}

// claimflowFxLogger routes container events through the command's logger.
// Routine events log at debug so a normal CLI run stays quiet.
func claimflowFxLogger(ctx context.Context) func() fxevent.Logger {
	return func() fxevent.Logger {
		fxCtx := logging.WithComponent(ctx, "fx")
		attrs := logging.Attrs(fxCtx)
		args := make([]any, 0, len(attrs))
		for _, attr := range attrs {
			args = append(args, attr)
		}

		l := &fxevent.SlogLogger{Logger: logging.Logger(fxCtx).With(args...)}
		l.UseContext(fxCtx)
		l.UseLogLevel(slog.LevelDebug)
		return l
	}
}

func newCommandApp(ctx context.Context, targets ...any) *fx.App {
	return fx.New(
		bootstrap.Module,
		fx.WithLogger(claimflowFxLogger(ctx)),
		fx.Provide(func() context.Context { return ctx }),
		fx.Provide(
			fx.Annotate(
				func() string { return cfgFile },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Populate(targets...),
	)
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, claimSvc *claims.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		var app *bootstrap.App
		var claimSvc *claims.Service
		fxApp := newCommandApp(ctx, &app, &claimSvc)

		startCtx, cancelStart := context.WithTimeout(ctx, appStartTimeout)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "claimflow bootstrap failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrapf(err, "start %s", cmd.CommandPath())
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), appStopTimeout)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "claimflow shutdown failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, app, claimSvc); err != nil {
			return errs.Wrapf(err, "run %s", cmd.CommandPath())
		}
		return nil
	}
}
