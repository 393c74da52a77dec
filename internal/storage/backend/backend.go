// Package backend picks the storage implementation named by the config.
package backend

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/config"
	"github.com/ButyrinIA/menfess/internal/storage"
	"github.com/ButyrinIA/menfess/internal/storage/memory"
	"github.com/ButyrinIA/menfess/internal/storage/mongo"
	"github.com/ButyrinIA/menfess/internal/storage/postgres"
)

func Open(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	kind, err := config.ParseBackendKind(string(cfg.Storage.Backend))
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.BackendMongo:
		log.Info("[storage] using mongo backend")
		store, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendPostgres:
		log.Info("[storage] using postgres backend")
		store, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Warn("[storage] using in-memory backend, all data is lost on restart")
		return memory.New(), nil
	}
}
