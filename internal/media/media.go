// Package media stores the images a class references and hands back a URL
// the class can carry instead of the bytes.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrEmpty      = errors.New("media: empty file")
	ErrNotImage   = errors.New("media: not an image")
	ErrBadDataURI = errors.New("media: malformed data URI")
)

// Asset is a stored file.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Store persists file bytes.
type Store interface {
	Store(ctx context.Context, data []byte, name, mimeType string) (Asset, error)
}

// Inspect sniffs data and builds the asset an implementation will store.
// The sniffed type wins over the declared one unless sniffing is
// inconclusive. Only images are accepted.
func Inspect(data []byte, name, declared string) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, ErrEmpty
	}

	detected := mimetype.Detect(data)
	mimeType := detected.String()
	ext := detected.Extension()
	if detected.Is("application/octet-stream") && declared != "" {
		mimeType = declared
		ext = filepath.Ext(name)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	id := uuid.NewString()
	return Asset{
		ID:       id,
		Name:     id + ext,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}

// IsDataURI reports whether s is an inline data: reference.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURI returns the payload and media type of a data URI such as
// "data:image/png;base64,iVBOR...". Non-base64 payloads are percent-decoded.
func DecodeDataURI(s string) ([]byte, string, error) {
	if !IsDataURI(s) {
		return nil, "", ErrBadDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, "", ErrBadDataURI
	}

	params := strings.Split(header, ";")
	mimeType := params[0]
	if mimeType == "" {
		mimeType = "text/plain"
	}
	isBase64 := len(params) > 1 && params[len(params)-1] == "base64"

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop the padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
		return data, mimeType, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return []byte(text), mimeType, nil
}

// StoreDataURI decodes s and stores it under name.
func StoreDataURI(ctx context.Context, store Store, s, name string) (Asset, error) {
	data, mimeType, err := DecodeDataURI(s)
	if err != nil {
		return Asset{}, err
	}
	return store.Store(ctx, data, name, mimeType)
}
