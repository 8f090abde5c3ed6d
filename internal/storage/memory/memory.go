// Package memory implements storage.Backend as an in-process record list,
// optionally mirrored to a JSON snapshot file.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/pkg/core"
)

const backendName = "memory"

// Backend keeps class records in insertion order
type Backend struct {
	cfg config.MemoryConfig
	log *logging.SlogManager

	records []core.Record
	index   map[string]int // class id -> position in records

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		cfg:   cfg,
		log:   logManager,
		index: make(map[string]int),
	}
}

// Init loads the snapshot file when one is configured. A missing or
// unreadable snapshot leaves the store empty.
func (b *Backend) Init(ctx context.Context) error {
	if b.cfg.SnapshotPath == "" {
		return nil
	}

	records, skipped, err := readSnapshot(b.cfg.SnapshotPath)
	if err != nil {
		b.log.Logger().Warn("Ignoring unreadable snapshot", "path", b.cfg.SnapshotPath, "error", err)
		return nil
	}
	if skipped > 0 {
		b.log.Logger().Warn("Skipped corrupt class records", "path", b.cfg.SnapshotPath, "count", skipped)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = b.records[:0]
	clear(b.index)
	for _, r := range records {
		b.put(r)
	}
	b.log.Logger().Info("Loaded class snapshot", "path", b.cfg.SnapshotPath, "classes", len(b.records))
	return nil
}

// Close writes a final snapshot
func (b *Backend) Close() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.persist(b.records)
}

// put upserts r; the caller holds the write lock.
func (b *Backend) put(r core.Record) {
	if i, ok := b.index[r.ID]; ok {
		b.records[i] = r
		return
	}
	b.index[r.ID] = len(b.records)
	b.records = append(b.records, r)
}

// Save stores a deep copy of c tagged with ownerID. The store is left
// unchanged when the snapshot cannot be written.
func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := core.Record{Class: c.Clone(), OwnerID: ownerID}
	next := slices.Clone(b.records)
	i, exists := b.index[r.ID]
	if exists {
		next[i] = r
	} else {
		next = append(next, r)
	}

	if err := b.persist(next); err != nil {
		return core.Class{}, core.WrapStorage(backendName, "save", err)
	}
	b.records = next
	if !exists {
		b.index[r.ID] = len(next) - 1
	}
	return c, nil
}

// ListByOwner returns the owner's classes in insertion order.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Summary, 0)
	for _, r := range b.records {
		if r.OwnerID == ownerID {
			out = append(out, r.Summarize())
		}
	}
	return out, nil
}

// GetByID returns a copy of the stored class.
func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[id]
	if !ok {
		return nil, nil
	}
	c := b.records[i].Class.Clone()
	return &c, nil
}

// DeleteByID removes the class with the given id. Nothing is removed when
// the snapshot cannot be written.
func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.index[id]
	if !ok {
		return false, nil
	}

	next := slices.Delete(slices.Clone(b.records), i, i+1)
	if err := b.persist(next); err != nil {
		return false, core.WrapStorage(backendName, "delete", err)
	}

	b.records = next
	delete(b.index, id)
	for j := i; j < len(b.records); j++ {
		b.index[b.records[j].ID] = j
	}
	return true, nil
}

// OwnerOf reports the stored owner of a class.
func (b *Backend) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[id]
	if !ok {
		return "", false, nil
	}
	return b.records[i].OwnerID, true, nil
}

// Len returns the number of stored classes.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// persist writes records as the snapshot if one is configured; the caller
// holds a lock.
func (b *Backend) persist(records []core.Record) error {
	if b.cfg.SnapshotPath == "" {
		return nil
	}
	return writeSnapshot(b.cfg.SnapshotPath, records)
}
