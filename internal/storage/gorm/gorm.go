// Package gormstorage implements storage.Backend on any GORM dialect.
// The sqlite and postgres backends wrap it and only supply the connection.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/areduca/classbuilder/internal/database"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/model"
	"github.com/areduca/classbuilder/internal/model/convert"
	"github.com/areduca/classbuilder/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB          *gorm.DB
	LogManager  *logging.SlogManager
	Name        string // backend name reported in errors, defaults to the dialect
	ServiceName string
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Name == "" && deps.DB != nil {
		deps.Name = deps.DB.Dialector.Name()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "classbuilder"
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration.
func (b *Backend) Init(ctx context.Context) error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB.WithContext(ctx), b.deps.ServiceName); err != nil {
		return core.WrapStorage(b.deps.Name, "init", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts the class row by class id, keeping its original sequence.
func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	row, err := convert.CoreToClassRecord(ownerID, c)
	if err != nil {
		return core.Class{}, core.WrapStorage(b.deps.Name, "save", err)
	}

	err = b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "class_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "title", "description", "thumbnail",
			"marker_count", "created_ms", "updated_ms", "data",
		}),
	}).Create(&row).Error
	if err != nil {
		return core.Class{}, core.WrapStorage(b.deps.Name, "save", err)
	}
	return c, nil
}

// ListByOwner returns the owner's classes ordered by sequence.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	var rows []model.ClassRecord
	err := b.deps.DB.WithContext(ctx).
		Omit("data").
		Where("owner_id = ?", ownerID).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, core.WrapStorage(b.deps.Name, "list", err)
	}

	out := make([]core.Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.ClassRecordToSummary(r))
	}
	return out, nil
}

// GetByID loads and decodes one class. A row whose data cannot be decoded
// is treated as absent.
func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	row, found, err := b.find(ctx, id)
	if err != nil || !found {
		return nil, err
	}

	c, err := convert.ClassRecordToCore(row)
	if err != nil {
		b.deps.LogManager.Logger().Warn("Skipping corrupt class record", "classId", id, "backend", b.deps.Name, "error", err)
		return nil, nil
	}
	return &c, nil
}

// DeleteByID removes the row for id.
func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	res := b.deps.DB.WithContext(ctx).Where("class_id = ?", id).Delete(&model.ClassRecord{})
	if res.Error != nil {
		return false, core.WrapStorage(b.deps.Name, "delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// OwnerOf reports the stored owner of a class.
func (b *Backend) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	row, found, err := b.find(ctx, id)
	if err != nil || !found {
		return "", false, err
	}
	return row.OwnerID, true, nil
}

func (b *Backend) find(ctx context.Context, id string) (model.ClassRecord, bool, error) {
	var row model.ClassRecord
	err := b.deps.DB.WithContext(ctx).Where("class_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, false, nil
	}
	if err != nil {
		return row, false, core.WrapStorage(b.deps.Name, "get", err)
	}
	return row, true, nil
}
