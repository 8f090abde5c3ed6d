// Package events publishes class lifecycle events to the configured sinks.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/areduca/classbuilder/pkg/core"
)

// Kind names a lifecycle event.
type Kind string

const (
	KindClassSaved   Kind = "class.saved"
	KindClassDeleted Kind = "class.deleted"
)

// Event describes one change to a stored class.
type Event struct {
	Kind     Kind   `json:"kind"`
	ClassID  string `json:"classId"`
	OwnerID  string `json:"ownerId"`
	Title    string `json:"title,omitempty"`
	Markers  int    `json:"markers"`
	Steps    int    `json:"steps"`
	Contents int    `json:"contents"`
	At       int64  `json:"at"` // epoch ms
}

// ClassSaved builds the event for a successful save of c.
func ClassSaved(ownerID string, c core.Class) Event {
	markers, steps, contents := c.Counts()
	return Event{
		Kind:     KindClassSaved,
		ClassID:  c.ID,
		OwnerID:  ownerID,
		Title:    c.Title,
		Markers:  markers,
		Steps:    steps,
		Contents: contents,
		At:       c.UpdatedAt,
	}
}

// ClassDeleted builds the event for the removal of class id.
func ClassDeleted(ownerID, id string) Event {
	return Event{
		Kind:    KindClassDeleted,
		ClassID: id,
		OwnerID: ownerID,
		At:      core.NowMillis(),
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Fanout delivers each event to every publisher.
type Fanout []Publisher

// Publish sends e to all publishers and joins their errors.
func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all publishers and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// LogPublisher writes each event as a structured log record.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs at INFO.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs e.
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "Class event",
		"kind", string(e.Kind),
		"classId", e.ClassID,
		"owner", e.OwnerID,
		"markers", e.Markers,
		"steps", e.Steps,
		"contents", e.Contents,
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
