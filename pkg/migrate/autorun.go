package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

// MaybeRunDev prepares the schema automatically in dev when the feature flag is enabled.
// Postgres runs the goose migrations; SQLite is built from the models. Both get the seed catalog.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})

	if client.Dialect() == "sqlite" {
		logg.Info(ctx, "building sqlite schema from models (dev auto-run)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
	} else {
		sqlDB, err := client.DB().DB()
		if err != nil {
			return fmt.Errorf("extracting sql.DB: %w", err)
		}
		logg.Info(logg.WithField(ctx, "dir", DefaultDir), "running Goose migrations (dev auto-run)")
		if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
			return fmt.Errorf("running goose up: %w", err)
		}
	}

	inserted, err := SeedCatalog(ctx, client.DB())
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	logg.Info(logg.WithField(ctx, "inserted", inserted), "dev schema ready")
	return nil
}
