package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"claimflow/internal/bootstrap/config"
	"claimflow/internal/bootstrap/database"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	cacheinfra "claimflow/internal/infrastructure/cache"
	"claimflow/internal/infrastructure/events"
	sqliterepo "claimflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimflow/internal/infrastructure/persistence/sqlite/uow"
	"claimflow/internal/infrastructure/telemetry"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/claims"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewClaimRepository,
			fx.As(new(ports.ClaimRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(providePublisher),
	fx.Provide(provideMetrics),
	fx.Provide(provideClaimService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// providePublisher picks the lifecycle event sink: "nats" or "log" (default).
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch strings.ToLower(strings.TrimSpace(cfg.Events.Driver)) {
	case "", "log":
		return events.LogPublisher{}, nil
	case "nats":
		publisher, err := events.ConnectNATS(logCtx, events.NATSConfig{
			URL:            cfg.Events.NATSURL,
			Token:          cfg.Events.NATSToken,
			SubjectPrefix:  cfg.Events.SubjectPrefix,
			ConnectTimeout: cfg.Events.ConnectTimeout,
		})
		if err != nil {
			return nil, errs.Wrap(err, "connect event publisher")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return publisher.Close()
			},
		})
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Events.Driver)
	}
}

func provideMetrics(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.WorkflowMetrics, error) {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.App.Name,
		Interval:    cfg.Telemetry.Interval,
	})
	if err != nil {
		return nil, errs.Wrap(err, "init telemetry")
	}
	lc.Append(fx.Hook{OnStop: shutdown})

	metrics, err := telemetry.NewWorkflowMetrics(telemetry.Meter("claimflow/usecase/claims"))
	if err != nil {
		return nil, errs.Wrap(err, "create workflow metrics")
	}
	return metrics, nil
}

type claimServiceParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	DB        *gorm.DB
	Repo      ports.ClaimRepository
	UoW       ports.UnitOfWork
	Publisher ports.EventPublisher
	Metrics   ports.WorkflowMetrics
}

func provideClaimService(p claimServiceParams) (*claims.Service, error) {
	cacheCfg := p.Config.Cache
	cache, err := cacheinfra.New(cacheinfra.Settings{
		Driver:        cacheCfg.Driver,
		TTL:           p.Config.Claims.ReadStaleness,
		RedisAddr:     cacheCfg.RedisAddr,
		RedisPassword: cacheCfg.RedisPassword,
		RedisDB:       cacheCfg.RedisDB,
		RedisPrefix:   cacheCfg.RedisPrefix,
	}, p.DB)
	if err != nil {
		return nil, errs.Wrap(err, "create snapshot cache")
	}
	if closer, ok := cache.(io.Closer); ok {
		p.Lifecycle.Append(fx.Hook{OnStop: func(context.Context) error {
			return closer.Close()
		}})
	}

	return claims.NewService(p.Repo, p.UoW, cache, claims.Options{
		MaxAttempts:   p.Config.Policy.MaxAttempts,
		ReadStaleness: p.Config.Claims.ReadStaleness,
		Publisher:     p.Publisher,
		Metrics:       p.Metrics,
	}), nil
}
