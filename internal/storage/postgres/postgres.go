// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/database"
	"github.com/areduca/classbuilder/internal/logging"
	gormstorage "github.com/areduca/classbuilder/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the postgres storage backend.
// When DB is nil, Init connects using Config.
type Dependencies struct {
	DB         *gorm.DB
	Config     config.DBConfig
	LogManager *logging.SlogManager
	DBLogger   zerolog.Logger
}

// Backend embeds the GORM backend and owns the postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
	mgr  *database.Manager
}

// New creates a new postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed, then migrates the schema.
func (b *Backend) Init(ctx context.Context) error {
	db := b.deps.DB
	if db == nil {
		b.mgr = database.NewManager(b.deps.DBLogger)
		if err := b.mgr.ConnectPostgres(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db = b.mgr.DB
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: b.deps.LogManager,
		Name:       "postgres",
	})
	if err := b.Backend.Init(ctx); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
