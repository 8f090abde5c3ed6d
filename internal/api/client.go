// Package api is a client for the classbuilder HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/areduca/classbuilder/pkg/core"
)

// TokenSource returns the bearer token to send on behalf of owner.
type TokenSource func(owner string) (string, error)

// StaticToken sends the same token for every owner. The server acts as the
// token's subject whichever owner is asked for.
func StaticToken(token string) TokenSource {
	return func(string) (string, error) { return token, nil }
}

// SignedTokens mints a short-lived token per owner with the server's secret.
func SignedTokens(secret, issuer string, ttl time.Duration) TokenSource {
	return func(owner string) (string, error) {
		return auth.Issue(secret, issuer, owner, ttl)
	}
}

// Error is a non-2xx reply that did not carry a validation error.
type Error struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// Client handles communication with a classbuilder server.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates a new API client. tokens may be nil for unauthenticated servers.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, owner string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.tokens != nil {
		token, err := c.tokens(owner)
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// doJSON sends in as the JSON body (when non-nil) and decodes the envelope
// data into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, owner string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, owner, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode/100 != 2 {
			return &Error{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			var ve core.ValidationError
			if len(env.Details) > 0 && json.Unmarshal(env.Details, &ve) == nil && ve.Code != "" {
				return &ve
			}
		}
		return &Error{StatusCode: resp.StatusCode, Message: env.Error, Details: env.Details}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func classPath(id string) string {
	return "/api/classes/" + url.PathEscape(id)
}

// ListClasses returns the owner's class summaries matching query.
func (c *Client) ListClasses(ctx context.Context, owner, query string) ([]core.Summary, error) {
	path := "/api/classes"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var list []core.Summary
	if err := c.doJSON(ctx, http.MethodGet, path, owner, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetClass fetches one class.
func (c *Client) GetClass(ctx context.Context, owner, id string) (core.Class, error) {
	var class core.Class
	err := c.doJSON(ctx, http.MethodGet, classPath(id), owner, nil, &class)
	return class, err
}

// SaveClass stores class for owner and returns the stored form.
func (c *Client) SaveClass(ctx context.Context, owner string, class core.Class) (core.Class, error) {
	var stored core.Class
	err := c.doJSON(ctx, http.MethodPut, classPath(class.ID), owner, class, &stored)
	return stored, err
}

// DeleteClass removes one of the owner's classes.
func (c *Client) DeleteClass(ctx context.Context, owner, id string) error {
	return c.doJSON(ctx, http.MethodDelete, classPath(id), owner, nil, nil)
}

// ValidateClass runs the server's save checks without storing.
func (c *Client) ValidateClass(ctx context.Context, owner string, class core.Class) error {
	return c.doJSON(ctx, http.MethodPost, "/api/classes/validate", owner, class, nil)
}

// NewClass asks the server for a fresh default class. It is not stored.
func (c *Client) NewClass(ctx context.Context, owner string) (core.Class, error) {
	var class core.Class
	err := c.doJSON(ctx, http.MethodPost, "/api/classes", owner, nil, &class)
	return class, err
}

// QRCode fetches the PNG QR code of a class's experience URL.
func (c *Client) QRCode(ctx context.Context, owner, id string, size int) ([]byte, error) {
	path := classPath(id) + "/qrcode"
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, owner, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qrcode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decode(resp, nil)
	}
	return io.ReadAll(resp.Body)
}

// Upload sends an image file to the server's media store.
func (c *Client) Upload(ctx context.Context, owner, filePath string) (media.Asset, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return media.Asset{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Create multipart form
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	// Write the file in a goroutine
	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/files/upload", owner, pr)
	if err != nil {
		pr.CloseWithError(err)
		return media.Asset{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return media.Asset{}, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var asset media.Asset
	if err := decode(resp, &asset); err != nil {
		return media.Asset{}, err
	}

	// Check goroutine error
	if writeErr := <-errCh; writeErr != nil {
		return media.Asset{}, writeErr
	}
	return asset, nil
}
