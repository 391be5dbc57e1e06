package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"claimflow/internal/bootstrap/config"
	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/schema"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
)

// CurrentSchemaVersion is bumped whenever the persisted models change shape.
const CurrentSchemaVersion = "1"

type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema migrates every model and records the schema version. It is safe to rerun.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	models := append(model.All(), &schema.ProjectMeta{})
	if err := a.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	now := time.Now().UTC()
	if err := a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&schema.ProjectMeta{
			Key:       schema.MetaSchemaVersion,
			Value:     CurrentSchemaVersion,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&schema.ProjectMeta{
			Key:       schema.MetaInitializedAt,
			Value:     now.Format(time.RFC3339),
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	}); err != nil {
		return errs.Wrap(err, "record schema version")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("schema_version", CurrentSchemaVersion))
	return nil
}

// SchemaVersion reports the version written by the last init-db, or "" before the first run.
func (a *App) SchemaVersion(ctx context.Context) (string, error) {
	if !a.DB.WithContext(ctx).Migrator().HasTable(&schema.ProjectMeta{}) {
		return "", nil
	}

	var meta schema.ProjectMeta
	err := a.DB.WithContext(ctx).Where("key = ?", schema.MetaSchemaVersion).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(err, "read schema version")
	}
	return meta.Value, nil
}
