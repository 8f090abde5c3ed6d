package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/areduca/classbuilder/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Command is one editor action applied to a class. Index fields address the
// marker, step and content the command targets; To is the destination index
// for moves.
type Command struct {
	Name        string            `json:"command"`
	Class       core.Class        `json:"class"`
	Marker      int               `json:"marker"`
	Step        int               `json:"step"`
	Content     int               `json:"content"`
	To          int               `json:"to"`
	Type        core.ContentType  `json:"type,omitempty"`
	Image       string            `json:"image,omitempty"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Patch       core.ContentPatch `json:"patch"`
}

// HandlerFunc applies a command and returns the resulting class.
type HandlerFunc func(Command) (core.Class, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ErrUnknownCommand is returned by Dispatch for unregistered command names.
var ErrUnknownCommand = errors.New("unknown command")

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes editor commands to registered handlers. Registration is
// expected to finish before the first Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	commands metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	var err error
	d.commands, err = meter().Int64Counter(
		"classbuilder.editor.commands",
		metric.WithDescription("Editor commands handled, by command and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes a command to its registered handler. A refused command
// returns the input class unchanged together with its ValidationError.
func (d *Dispatcher) Dispatch(cmd Command) (core.Class, error) {
	h, ok := d.handlers[cmd.Name]
	if !ok {
		return cmd.Class, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}

	out, err := h(cmd)

	result := "applied"
	switch {
	case err == nil:
	case core.IsValidation(err):
		result = "refused"
	default:
		result = "failed"
	}
	d.commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", cmd.Name),
		attribute.String("result", result),
	))

	return out, err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(cmd Command) (core.Class, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "classId", cmd.Class.ID)

		result, err := h(cmd)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
