package main

import (
	"context"
	"errors"

	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/pkg/core"
)

var errNoStorage = errors.New("command runs without storage")

// nopBackend backs commands that never touch storage.
type nopBackend struct{}

var _ storage.Backend = nopBackend{}

func (nopBackend) Init(context.Context) error { return nil }
func (nopBackend) Close() error               { return nil }

func (nopBackend) Save(context.Context, string, core.Class) (core.Class, error) {
	return core.Class{}, errNoStorage
}

func (nopBackend) ListByOwner(context.Context, string) ([]core.Summary, error) {
	return nil, errNoStorage
}

func (nopBackend) GetByID(context.Context, string) (*core.Class, error) {
	return nil, errNoStorage
}

func (nopBackend) DeleteByID(context.Context, string) (bool, error) {
	return false, errNoStorage
}
