package migration

import (
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/pkg/docstore/sqlstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module prepares the document table. Postgres gets the versioned schema,
// the other dialects are auto-migrated from the gorm model.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			log.Info("auto-migrating document table", zap.String("dialect", cfg.DBType))
			return sqlstore.AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
