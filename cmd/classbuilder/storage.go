package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/areduca/classbuilder/internal/api"
	"github.com/areduca/classbuilder/internal/cache"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/storage"
	badgerstorage "github.com/areduca/classbuilder/internal/storage/badger"
	"github.com/areduca/classbuilder/internal/storage/memory"
	mongostorage "github.com/areduca/classbuilder/internal/storage/mongo"
	pgstorage "github.com/areduca/classbuilder/internal/storage/postgres"
	remotestorage "github.com/areduca/classbuilder/internal/storage/remote"
	sqlitestorage "github.com/areduca/classbuilder/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// remoteTokenTTL bounds the tokens minted for a remote server.
const remoteTokenTTL = 5 * time.Minute

// newDBLogger builds the zerolog logger the database layer reports through.
func newDBLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(lvl).With().Timestamp().Str("component", "database").Logger()
}

// remoteClient builds the API client the remote backend and the upload
// command talk through.
func remoteClient(storageCfg config.StorageConfig, authCfg config.AuthConfig) *api.Client {
	var tokens api.TokenSource
	switch {
	case storageCfg.Remote.Token != "":
		tokens = api.StaticToken(storageCfg.Remote.Token)
	case authCfg.Secret != "":
		tokens = api.SignedTokens(authCfg.Secret, authCfg.Issuer, remoteTokenTTL)
	}
	return api.New(storageCfg.Remote.BaseURL, tokens)
}

func createStorageBackend(storageCfg config.StorageConfig, authCfg config.AuthConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	logger := logManager.Logger()

	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend initialized", "host", storageCfg.DB.Host)
		return pgstorage.New(pgstorage.Dependencies{
			Config:     storageCfg.DB,
			LogManager: logManager,
			DBLogger:   newDBLogger(config.GetLoggingConfig().Level),
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:         storageCfg.SQLite.Path,
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "badger":
		logger.Info("Badger storage backend initialized", "path", storageCfg.Badger.Path)
		return badgerstorage.New(badgerstorage.Config{
			Path:     storageCfg.Badger.Path,
			InMemory: storageCfg.Badger.Path == "",
		}, logManager), nil

	case "mongo":
		logger.Info("MongoDB storage backend initialized", "database", storageCfg.Mongo.Database)
		return mongostorage.New(mongostorage.Dependencies{
			Config:     storageCfg.Mongo,
			LogManager: logManager,
		}), nil

	case "remote":
		logger.Info("Remote storage backend initialized", "url", storageCfg.Remote.BaseURL)
		return remotestorage.New(remotestorage.Dependencies{
			Client:     remoteClient(storageCfg, authCfg),
			Actor:      storageCfg.Remote.Actor,
			LogManager: logManager,
		}), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "snapshot", storageCfg.Memory.SnapshotPath)
		return memory.New(storageCfg.Memory, logManager), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// openStorage creates and initialises the configured backend, behind the
// class cache when one is configured.
func openStorage(ctx context.Context) (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, config.GetAuthConfig(), SlogManager)
	if err != nil {
		return nil, err
	}
	if storageCfg.CacheSize > 0 {
		backend = cache.Wrap(backend, storageCfg.CacheSize)
		Logger.Debug("Class cache enabled", "size", storageCfg.CacheSize)
	}
	if err := backend.Init(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	return backend, nil
}
