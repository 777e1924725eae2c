package main

import (
	"context"
	"fmt"

	"face_verification/internal/auth"
	"face_verification/internal/config"
	"face_verification/internal/ledger"
	"face_verification/internal/storage/memory"
	"face_verification/internal/storage/mongo"
	"face_verification/internal/storage/postgres"
)

// store is what the services need from a storage backend.
type store interface {
	auth.UserSaver
	auth.UserProvider
	ledger.Store
	Ping(ctx context.Context) error
	Close()
}

var (
	_ store = (*memory.Storage)(nil)
	_ store = (*postgres.PostgresRepo)(nil)
	_ store = (*mongo.MongoRepo)(nil)
)

// openStore connects the configured backend. Postgres schemas are migrated
// on open.
func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverMongo:
		m, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
