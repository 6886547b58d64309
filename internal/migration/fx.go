package migration

import (
	"context"

	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/smallbiznis/rentsoft/internal/statement/repository"
	"github.com/smallbiznis/rentsoft/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the statement tables. Postgres uses the embedded SQL
// migrations; other dialects are migrated from the gorm models.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	dbType := db.DialectName(cfg)
	if dbType == db.DialectPostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		version, dirty, err := Version(sqlDB)
		if err != nil {
			return err
		}
		log.Info("statement migrations applied",
			zap.String("dialect", dbType),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return nil
	}

	if err := conn.WithContext(context.Background()).AutoMigrate(repository.Models()...); err != nil {
		return err
	}
	log.Info("statement tables auto-migrated", zap.String("dialect", dbType))
	return nil
}
