package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files in a directory served under BaseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates the directory if needed.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string {
	return l.dir
}

// Store writes data to a new file.
func (l *Local) Store(ctx context.Context, data []byte, name, mimeType string) (Asset, error) {
	asset, err := Inspect(data, name, mimeType)
	if err != nil {
		return Asset{}, err
	}

	path := filepath.Join(l.dir, asset.Name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Asset{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	asset.URL = l.baseURL + "/" + asset.Name
	return asset, nil
}
