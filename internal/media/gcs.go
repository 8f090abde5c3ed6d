package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage store.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	PublicBaseURL   string
}

// GCS stores files as objects in one bucket.
type GCS struct {
	client *storage.Client
	cfg    GCSConfig
}

// NewGCS creates a client, using the credentials file when one is set and
// application default credentials otherwise.
func NewGCS(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &GCS{client: client, cfg: cfg}, nil
}

// ObjectURL returns the public URL of an object.
func (g *GCS) ObjectURL(object string) string {
	return g.cfg.PublicBaseURL + "/" + g.cfg.Bucket + "/" + object
}

// Store uploads data as a new object.
func (g *GCS) Store(ctx context.Context, data []byte, name, mimeType string) (Asset, error) {
	asset, err := Inspect(data, name, mimeType)
	if err != nil {
		return Asset{}, err
	}

	object := g.cfg.Prefix + asset.Name
	writer := g.client.Bucket(g.cfg.Bucket).Object(object).NewWriter(ctx)
	writer.ContentType = asset.MimeType
	writer.CacheControl = "public, max-age=31536000, immutable"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return Asset{}, fmt.Errorf("failed to write GCS object %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return Asset{}, fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}

	asset.URL = g.ObjectURL(object)
	return asset, nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}
