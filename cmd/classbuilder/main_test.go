package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/media"
	badgerstorage "github.com/areduca/classbuilder/internal/storage/badger"
	"github.com/areduca/classbuilder/internal/storage/memory"
	remotestorage "github.com/areduca/classbuilder/internal/storage/remote"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config whose memory snapshot and media live in a temp dir.
func setup(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
		"storage": {"memory": {"snapshotPath": %q}, "cacheSize": 16},
		"media": {"local": {"dir": %q, "baseUrl": "/files"}},
		"auth": {"secret": "cli-secret"},
		"logLevel": "error"
	}`, filepath.Join(dir, "classes.json.gz"), filepath.Join(dir, "uploads"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(cfg), 0644))
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", dir, "--storage", "memory"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeClass(t *testing.T, dir string, c core.Class) string {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	path := filepath.Join(dir, c.ID+".json")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func TestClassesNew(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "classes", "new", "--owner", "alice")
	require.NoError(t, err)

	var c core.Class
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.True(t, strings.HasPrefix(c.ID, "class_"))
	assert.Len(t, c.MarkerObjects, 1)
}

func TestClassesLifecycle(t *testing.T) {
	dir := setup(t)
	c := storagetest.SampleClass("Photosynthesis")
	file := writeClass(t, dir, c)

	out, err := run(t, dir, "classes", "save", file, "--owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved "+c.ID)

	out, err = run(t, dir, "classes", "list", "--owner", "alice", "-q", "photo")
	require.NoError(t, err)
	assert.Contains(t, out, c.ID)
	assert.Contains(t, out, "2 markers")

	out, err = run(t, dir, "classes", "list", "--owner", "bob", "-q", "")
	require.NoError(t, err)
	assert.Contains(t, out, "No classes found.")

	out, err = run(t, dir, "classes", "show", c.ID)
	require.NoError(t, err)
	var shown core.Class
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "Photosynthesis", shown.Title)

	png := filepath.Join(dir, "qr.png")
	out, err = run(t, dir, "qrcode", c.ID, "-o", png)
	require.NoError(t, err)
	assert.Contains(t, out, "/view/"+c.ID)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = run(t, dir, "classes", "delete", c.ID, "--owner", "bob")
	assert.ErrorIs(t, err, classes.ErrForbidden)

	out, err = run(t, dir, "classes", "delete", c.ID, "--owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+c.ID)

	_, err = run(t, dir, "classes", "show", c.ID)
	assert.ErrorIs(t, err, classes.ErrNotFound)
}

func TestClassesValidate(t *testing.T) {
	dir := setup(t)

	good := writeClass(t, dir, storagetest.SampleClass("good"))
	out, err := run(t, dir, "classes", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ready to save")

	bad := storagetest.SampleClass("bad")
	for i := range bad.MarkerObjects {
		bad.MarkerObjects[i].MarkerImage = ""
	}
	_, err = run(t, dir, "classes", "validate", writeClass(t, dir, bad))
	assert.ErrorIs(t, err, core.ErrNoMarkerImage)

	_, err = run(t, dir, "classes", "validate", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "token", "--owner", "alice")
	require.NoError(t, err)

	owner, err := auth.NewVerifier("cli-secret", "").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestUpload_Local(t *testing.T) {
	dir := setup(t)
	img := filepath.Join(dir, "marker.png")
	require.NoError(t, os.WriteFile(img, append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...), 0644))

	out, err := run(t, dir, "upload", img)
	require.NoError(t, err)

	var asset media.Asset
	require.NoError(t, json.Unmarshal([]byte(out), &asset))
	assert.Equal(t, "image/png", asset.MimeType)
	assert.FileExists(t, filepath.Join(dir, "uploads", asset.Name))
}

func TestCreateStorageBackend(t *testing.T) {
	lm := logging.NewSlogManager()

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, config.AuthConfig{}, lm)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "badger"}, config.AuthConfig{}, lm)
	require.NoError(t, err)
	assert.IsType(t, &badgerstorage.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "remote"}, config.AuthConfig{Secret: "s"}, lm)
	require.NoError(t, err)
	assert.IsType(t, &remotestorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "cassette"}, config.AuthConfig{}, lm)
	assert.Error(t, err)
}
