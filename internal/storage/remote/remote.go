// Package remotestorage stores classes in another classbuilder server.
package remotestorage

import (
	"context"
	"errors"
	"net/http"

	"github.com/areduca/classbuilder/internal/api"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/pkg/core"
)

const backendName = "remote"

// Dependencies holds all dependencies for the remote backend.
type Dependencies struct {
	Client *api.Client
	// Actor is the owner the id-only operations (get, delete) run as.
	Actor      string
	LogManager *logging.SlogManager
}

// Backend forwards every operation to a classbuilder API. Save and list run
// as the owner they are given; the server verifies ownership on delete.
type Backend struct {
	deps Dependencies
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new remote backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init checks that the server is reachable.
func (b *Backend) Init(ctx context.Context) error {
	if b.deps.Client == nil {
		return core.WrapStorage(backendName, "init", errors.New("api client is required"))
	}
	if err := b.deps.Client.Healthcheck(ctx); err != nil {
		return core.WrapStorage(backendName, "init", err)
	}
	b.deps.LogManager.Logger().Info("Remote storage ready", "url", b.deps.Client.BaseURL())
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Save stores c on the server. Validation errors from the server are
// returned as they are.
func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	stored, err := b.deps.Client.SaveClass(ctx, ownerID, c)
	if err != nil {
		if core.IsValidation(err) {
			return core.Class{}, err
		}
		return core.Class{}, core.WrapStorage(backendName, "save", err)
	}
	return stored, nil
}

func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	list, err := b.deps.Client.ListClasses(ctx, ownerID, "")
	if err != nil {
		return nil, core.WrapStorage(backendName, "list", err)
	}
	return list, nil
}

func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	c, err := b.deps.Client.GetClass(ctx, b.deps.Actor, id)
	if api.IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapStorage(backendName, "get", err)
	}
	return &c, nil
}

// DeleteByID removes the class when it belongs to the Actor.
func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	err := b.deps.Client.DeleteClass(ctx, b.deps.Actor, id)
	if api.IsStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, core.WrapStorage(backendName, "delete", err)
	}
	return true, nil
}
