// Package storage defines the persistence contract for classes.
package storage

import (
	"context"

	"github.com/areduca/classbuilder/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
//
// Save upserts by class identifier across the whole store: a record with the
// same id is overwritten whatever its owner, and the last save wins.
// Stored records that cannot be decoded are skipped, never reported.
// Failures of the underlying store are returned as *core.StorageError.
type Backend interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Save stores c for ownerID and returns the stored class.
	Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error)

	// ListByOwner returns summaries of the owner's classes in storage order.
	ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error)

	// GetByID returns the class without its owner tag, or nil when absent.
	GetByID(ctx context.Context, id string) (*core.Class, error)

	// DeleteByID removes a class and reports whether one was removed.
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// Owned is an optional interface for backends that can report the owner of a
// stored class. Services use it to scope deletes and reads to the caller.
type Owned interface {
	OwnerOf(ctx context.Context, id string) (string, bool, error)
}
