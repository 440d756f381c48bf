package storage

import (
	"context"

	"github.com/smallbiznis/flashmarket/internal/clock"
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/internal/migration"
	"github.com/smallbiznis/flashmarket/pkg/db"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/smallbiznis/flashmarket/pkg/docstore/boltstore"
	"github.com/smallbiznis/flashmarket/pkg/docstore/sqlstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module wires the document store for the selected backend. The SQL
// backend pulls in the database pool and its migrations, the bolt backend
// opens a single local file and needs neither.
func Module(backend string) fx.Option {
	if backend == config.StoreBackendBolt {
		return fx.Module("storage",
			fx.Provide(NewBoltStore),
		)
	}
	return fx.Module("storage",
		db.Module,
		migration.Module,
		fx.Provide(NewSQLStore),
	)
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
}

type SQLParams struct {
	Params

	DB *gorm.DB
}

func NewSQLStore(p SQLParams) docstore.Store {
	store := sqlstore.New(p.DB, p.Clock.Now)
	p.Log.Named("storage").Info("document store ready",
		zap.String("backend", config.StoreBackendSQL),
		zap.String("dialect", p.DB.Dialector.Name()),
	)
	return store
}

func NewBoltStore(p Params) (docstore.Store, error) {
	store, err := boltstore.Open(p.Config.Store.BoltPath, p.Clock.Now)
	if err != nil {
		return nil, err
	}
	log := p.Log.Named("storage")
	log.Info("document store ready",
		zap.String("backend", config.StoreBackendBolt),
		zap.String("path", p.Config.Store.BoltPath),
	)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing document store")
			return store.Close()
		},
	})
	return store, nil
}
