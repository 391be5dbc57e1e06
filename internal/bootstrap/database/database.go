package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"claimflow/internal/bootstrap/config"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
)

func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))
	gormCfg := &gorm.Config{TranslateError: true}

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		if err := ensureSQLiteDirectory(logCtx, cfg.DSN); err != nil {
			return nil, errs.Wrap(err, "ensure sqlite directory")
		}

		dsn := sqliteDSN(cfg.DSN, cfg.BusyTimeout)
		db, err := gorm.Open(gormsqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, errs.Wrap(err, "open sqlite db")
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, errs.Wrap(err, "get sqlite sql db")
		}
		// One writer connection; concurrent requests queue on the pool instead of hitting SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)

		logging.Info(logCtx, "database opened", slog.String("driver", "sqlite"), slog.String("dsn", cfg.DSN))
		return db, nil
	case "postgres", "postgresql":
		db, err := gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, errs.Transient(errs.Wrap(err, "open postgres db"))
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, errs.Wrap(err, "get postgres sql db")
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}

		logging.Info(logCtx, "database opened", slog.String("driver", "postgres"))
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN appends busy_timeout and foreign_keys pragmas unless the dsn already sets pragmas.
func sqliteDSN(dsn string, busyTimeout time.Duration) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	// Writers take the lock at BEGIN so read-then-write transactions queue on
	// busy_timeout instead of failing on lock upgrade.
	pragmas := "_txlock=immediate&_pragma=foreign_keys(1)"
	if busyTimeout > 0 {
		pragmas += fmt.Sprintf("&_pragma=busy_timeout(%d)", busyTimeout.Milliseconds())
	}
	return dsn + sep + pragmas
}

func ensureSQLiteDirectory(ctx context.Context, dsn string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	candidate := strings.TrimSpace(dsn)
	if candidate == "" || candidate == ":memory:" {
		return nil
	}

	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = strings.TrimPrefix(candidate, "file:")
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create sqlite directory %q", dir)
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.database")), "sqlite directory ensured", slog.String("dir", dir))
	return nil
}
