package remotestorage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/areduca/classbuilder/internal/api"
	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/server"
	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/internal/storage/memory"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "remote-test-secret"

// newUpstream starts a classbuilder server over a memory backend.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := memory.New(config.MemoryConfig{}, nil)
	require.NoError(t, backend.Init(context.Background()))
	svc, err := classes.New(classes.Dependencies{Backend: backend})
	require.NoError(t, err)
	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewSlogManager().Logger()))
	require.NoError(t, err)

	s, err := server.New(server.Dependencies{
		Classes:    svc,
		Dispatcher: d,
		Verifier:   auth.NewVerifier(secret, ""),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newBackend(t *testing.T, url string) *Backend {
	t.Helper()
	b := New(Dependencies{
		Client: api.New(url, api.SignedTokens(secret, "", time.Minute)),
		Actor:  "alice",
	})
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newBackend(t, newUpstream(t).URL)
	})
}

func TestInit_Unreachable(t *testing.T) {
	b := New(Dependencies{Client: api.New("http://localhost:59999", nil)})

	err := b.Init(context.Background())

	assert.True(t, core.IsStorage(err))
}

func TestInit_RequiresClient(t *testing.T) {
	assert.True(t, core.IsStorage(New(Dependencies{}).Init(context.Background())))
}

func TestSave_PassesValidationThrough(t *testing.T) {
	b := newBackend(t, newUpstream(t).URL)
	c := storagetest.SampleClass("no images")
	for i := range c.MarkerObjects {
		c.MarkerObjects[i].MarkerImage = ""
	}

	_, err := b.Save(context.Background(), "alice", c)

	assert.ErrorIs(t, err, core.ErrNoMarkerImage)
	assert.False(t, core.IsStorage(err))
}

func TestDelete_OtherOwnerIsStorageError(t *testing.T) {
	b := newBackend(t, newUpstream(t).URL)
	c := storagetest.SampleClass("bob's")
	_, err := b.Save(context.Background(), "bob", c)
	require.NoError(t, err)

	_, err = b.DeleteByID(context.Background(), c.ID)

	require.True(t, core.IsStorage(err))
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
}
