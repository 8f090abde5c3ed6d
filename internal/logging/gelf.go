package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a handler that ships text records to a Graylog
// GELF UDP input at addr. Close the returned closer on shutdown.
func NewGELFHandler(addr, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}
	return newGELFHandler(w, level), w, nil
}

func newGELFHandler(w io.Writer, level string) slog.Handler {
	opts := handlerOptions(level)
	return slog.NewTextHandler(w, opts)
}
