// Package classes is the application service for authored classes: it runs
// details and save-time validation, offloads inline images, persists through
// a storage.Backend and announces changes as events.
package classes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/areduca/classbuilder/internal/editor"
	"github.com/areduca/classbuilder/internal/events"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

var (
	// ErrNotFound is returned when no class has the requested id.
	ErrNotFound = errors.New("class not found")
	// ErrForbidden is returned when the caller does not own the class.
	ErrForbidden = errors.New("class belongs to another owner")
)

// Dependencies holds all dependencies for the class service.
// Media and Events are optional.
type Dependencies struct {
	Backend       storage.Backend
	Media         media.Store
	Events        events.Publisher
	LogManager    *logging.SlogManager
	ViewerBaseURL string
	// OffloadInline moves data: image references into Media on save
	OffloadInline bool
}

// Service implements the class operations exposed by the API and the CLI.
type Service struct {
	deps Dependencies

	// OTEL metrics
	saved            metric.Int64Counter
	deleted          metric.Int64Counter
	validationFailed metric.Int64Counter
}

// New creates a new Service.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(deps Dependencies) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("classes: backend is required")
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	deps.ViewerBaseURL = strings.TrimRight(deps.ViewerBaseURL, "/")

	s := &Service{deps: deps}

	var err error
	s.saved, err = meter().Int64Counter(
		"classbuilder.classes.saved",
		metric.WithDescription("Classes saved"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create saved counter: %w", err)
	}
	s.deleted, err = meter().Int64Counter(
		"classbuilder.classes.deleted",
		metric.WithDescription("Classes deleted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deleted counter: %w", err)
	}
	s.validationFailed, err = meter().Int64Counter(
		"classbuilder.classes.validation_failed",
		metric.WithDescription("Saves refused by validation, by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation counter: %w", err)
	}

	return s, nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return core.NewValidationError(core.CodeUnauthenticated, core.ErrUnauthenticated.Message)
	}
	return nil
}

// NewClass returns a fresh default class for ownerID. It is not stored.
func (s *Service) NewClass(ownerID string) (core.Class, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Class{}, err
	}
	return core.NewClass(ownerID), nil
}

// Validate is a dry run of Save's checks.
func (s *Service) Validate(c core.Class) error {
	if err := editor.CheckDetails(c); err != nil {
		return err
	}
	return editor.CanSave(c)
}

// Save validates c, stores it for ownerID and returns the stored form.
func (s *Service) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	log := s.deps.LogManager.Logger()

	if err := requireOwner(ownerID); err != nil {
		s.refused(ctx, err)
		return core.Class{}, err
	}
	if err := editor.CheckDetails(c); err != nil {
		s.refused(ctx, err)
		return core.Class{}, err
	}
	prepared, err := editor.PrepareForSave(c)
	if err != nil {
		s.refused(ctx, err)
		return core.Class{}, err
	}

	if s.deps.OffloadInline && s.deps.Media != nil {
		prepared, err = s.offloadInline(ctx, prepared)
		if err != nil {
			if core.IsValidation(err) {
				s.refused(ctx, err)
			}
			return core.Class{}, err
		}
	}

	stored, err := s.deps.Backend.Save(ctx, ownerID, prepared)
	if err != nil {
		log.Error("Failed to save class", "classId", c.ID, "owner", ownerID, "error", err)
		return core.Class{}, err
	}

	s.saved.Add(ctx, 1)
	s.publish(ctx, events.ClassSaved(ownerID, stored))
	log.Info("Class saved", "classId", stored.ID, "owner", ownerID, "markers", len(stored.MarkerObjects))
	return stored, nil
}

func (s *Service) refused(ctx context.Context, err error) {
	code := "unknown"
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		code = string(ve.Code)
	}
	s.validationFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.deps.Events.Publish(ctx, e); err != nil {
		s.deps.LogManager.Logger().Warn("Failed to publish class event", "kind", string(e.Kind), "classId", e.ClassID, "error", err)
	}
}

// Get returns the class with id, normalized for editing.
func (s *Service) Get(ctx context.Context, id string) (core.Class, error) {
	c, err := s.deps.Backend.GetByID(ctx, id)
	if err != nil {
		return core.Class{}, err
	}
	if c == nil {
		return core.Class{}, ErrNotFound
	}
	return c.Normalize(), nil
}

// List returns the owner's classes whose title or description contains
// query, ignoring case. An empty query matches everything.
func (s *Service) List(ctx context.Context, ownerID, query string) ([]core.Summary, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	all, err := s.deps.Backend.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]core.Summary, 0, len(all))
	for _, sum := range all {
		if query == "" ||
			strings.Contains(strings.ToLower(sum.Title), query) ||
			strings.Contains(strings.ToLower(sum.Description), query) {
			out = append(out, sum)
		}
	}
	return out, nil
}

// Delete removes the class when ownerID owns it. Backends that cannot report
// owners delete unconditionally.
func (s *Service) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}

	if owned, ok := s.deps.Backend.(storage.Owned); ok {
		stored, found, err := owned.OwnerOf(ctx, id)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		if stored != ownerID {
			return false, ErrForbidden
		}
	}

	removed, err := s.deps.Backend.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.deleted.Add(ctx, 1)
		s.publish(ctx, events.ClassDeleted(ownerID, id))
		s.deps.LogManager.Logger().Info("Class deleted", "classId", id, "owner", ownerID)
	}
	return removed, nil
}

// ExperienceURL is the viewer address students open for class id.
func (s *Service) ExperienceURL(id string) string {
	return s.deps.ViewerBaseURL + "/view/" + url.PathEscape(id)
}

// QRCode renders the experience URL of class id as a PNG of size pixels.
// Sizes are clamped to [64, 1024]; zero selects the default.
func (s *Service) QRCode(id string, size int) ([]byte, error) {
	switch {
	case size == 0:
		size = DefaultQRSize
	case size < minQRSize:
		size = minQRSize
	case size > maxQRSize:
		size = maxQRSize
	}
	png, err := qrcode.Encode(s.ExperienceURL(id), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
