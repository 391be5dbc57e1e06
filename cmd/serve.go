package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"claimflow/internal/bootstrap"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	cacheinfra "claimflow/internal/infrastructure/cache"
	"claimflow/internal/transport/httpapi"
	"claimflow/internal/usecase/claims"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the claim HTTP API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *claims.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		cfg := app.Config

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = cfg.HTTP.Addr
		}

		version, err := app.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		if version != bootstrap.CurrentSchemaVersion {
			logging.Warn(
				ctx,
				"database schema is not current, run init-db",
				slog.String("found", version),
				slog.String("want", bootstrap.CurrentSchemaVersion),
			)
		}

		server := &http.Server{
			Addr: addr,
			Handler: httpapi.NewHandler(svc, httpapi.Options{
				RequestTimeout:      cfg.HTTP.RequestTimeout,
				PolicyRatePerSecond: cfg.Policy.RatePerSecond,
				PolicyRateBurst:     cfg.Policy.RateBurst,
			}),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			BaseContext:  func(net.Listener) context.Context { return ctx },
		}

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		group, groupCtx := errgroup.WithContext(runCtx)
		group.Go(func() error {
			logging.Info(ctx, "claim api server started", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve claim api")
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			logging.Info(ctx, "claim api server stopping")
			if err := server.Shutdown(shutdownCtx); err != nil {
				return errs.Wrap(err, "shutdown claim api")
			}
			return nil
		})
		if strings.EqualFold(strings.TrimSpace(cfg.Cache.Driver), "sqlite") {
			sweeper := cacheinfra.NewSQLiteCache(app.DB, cfg.Claims.ReadStaleness)
			group.Go(func() error {
				return purgeExpiredSnapshots(groupCtx, sweeper, cfg.Cache.PurgeSchedule)
			})
		}

		if err := group.Wait(); err != nil {
			logging.Error(ctx, "claim api server failed", slog.Any("err", errs.Loggable(err)))
			return err
		}
		logging.Info(ctx, "claim api server stopped")
		return nil
	}),
}

type snapshotPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeExpiredSnapshots reclaims expired cache rows on schedule until ctx ends.
func purgeExpiredSnapshots(ctx context.Context, purger snapshotPurger, schedule string) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(schedule, func() {
		removed, err := purger.Purge(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn(ctx, "purge expired snapshots failed", slog.Any("err", errs.Loggable(err)))
			}
			return
		}
		if removed > 0 {
			logging.Info(ctx, "purged expired snapshots", slog.Int64("removed", removed))
		}
	}); err != nil {
		return errs.Wrapf(err, "schedule snapshot purge %q", schedule)
	}

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr from config)")
}
