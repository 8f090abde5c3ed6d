package classes

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/editor"
	"github.com/areduca/classbuilder/internal/events"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/areduca/classbuilder/internal/storage/memory"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error { return errors.New("broker down") }
func (failingPublisher) Close() error                                { return nil }

func newService(t *testing.T, mutate func(*Dependencies)) (*Service, *memory.Backend) {
	t.Helper()
	backend := memory.New(config.MemoryConfig{}, nil)
	require.NoError(t, backend.Init(context.Background()))
	t.Cleanup(func() { backend.Close() })

	deps := Dependencies{
		Backend:       backend,
		ViewerBaseURL: "https://areduca.example.com/",
	}
	if mutate != nil {
		mutate(&deps)
	}
	s, err := New(deps)
	require.NoError(t, err)
	return s, backend
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)
}

func TestNewClass(t *testing.T) {
	s, _ := newService(t, nil)

	c, err := s.NewClass("alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.ID, core.PrefixClass+"_"))
	assert.Len(t, c.MarkerObjects, 1)

	_, err = s.NewClass("  ")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestSave_StoresAndPublishes(t *testing.T) {
	rec := &recorder{}
	s, backend := newService(t, func(d *Dependencies) { d.Events = rec })
	c := storagetest.SampleClass("cells")

	stored, err := s.Save(context.Background(), "alice", c)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
	assert.Equal(t, 1, backend.Len())

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.KindClassSaved, rec.events[0].Kind)
	assert.Equal(t, "alice", rec.events[0].OwnerID)
	assert.Equal(t, 2, rec.events[0].Markers)
}

func TestSave_Unauthenticated(t *testing.T) {
	s, backend := newService(t, nil)

	_, err := s.Save(context.Background(), "", storagetest.SampleClass("x"))

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.Equal(t, 0, backend.Len())
}

func TestSave_RefusesInvalidClass(t *testing.T) {
	s, backend := newService(t, nil)

	noTitle := storagetest.SampleClass("x")
	noTitle.Title = "   "
	_, err := s.Save(context.Background(), "alice", noTitle)
	assert.ErrorIs(t, err, core.ErrMissingTitle)

	noImage := storagetest.SampleClass("y")
	for i := range noImage.MarkerObjects {
		noImage.MarkerObjects[i].MarkerImage = ""
	}
	_, err = s.Save(context.Background(), "alice", noImage)
	assert.ErrorIs(t, err, core.ErrNoMarkerImage)

	assert.Equal(t, 0, backend.Len())
}

func TestSave_PrunesImagelessMarkerWithUnfinishedButton(t *testing.T) {
	s, _ := newService(t, nil)
	c := storagetest.SampleClass("cells")
	c.MarkerObjects[1].MarkerImage = ""
	button := core.NewContent(core.ContentButton)
	button.Action = core.ActionOpenURL
	c.MarkerObjects[1].Steps[0].Contents = append(c.MarkerObjects[1].Steps[0].Contents, button)

	stored, err := s.Save(context.Background(), "alice", c)

	require.NoError(t, err)
	assert.Len(t, stored.MarkerObjects, 1)
	assert.NoError(t, s.Validate(c))
}

func TestSave_PublishFailureDoesNotFailSave(t *testing.T) {
	s, backend := newService(t, func(d *Dependencies) { d.Events = failingPublisher{} })

	_, err := s.Save(context.Background(), "alice", storagetest.SampleClass("x"))

	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len())
}

func TestSave_OffloadsInlineImages(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewLocal(dir, "http://cdn.test/media")
	require.NoError(t, err)
	s, _ := newService(t, func(d *Dependencies) {
		d.Media = store
		d.OffloadInline = true
	})

	c := storagetest.SampleClass("inline")
	c.Thumbnail = pngDataURI()
	c.MarkerObjects[0].MarkerImage = pngDataURI()
	img := core.NewContent(core.ContentImage)
	img.Value = pngDataURI()
	c.MarkerObjects[1].Steps[0].Contents = append(c.MarkerObjects[1].Steps[0].Contents, img)

	stored, err := s.Save(context.Background(), "alice", c)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.Thumbnail, "http://cdn.test/media/"))
	assert.True(t, strings.HasPrefix(stored.MarkerObjects[0].MarkerImage, "http://cdn.test/media/"))
	assert.Equal(t, "https://img.test/marker.png", stored.MarkerObjects[1].MarkerImage)
	last := stored.MarkerObjects[1].Steps[0].Contents[2]
	assert.True(t, strings.HasPrefix(last.Value, "http://cdn.test/media/"))

	// one image referenced three times is stored once
	assert.Equal(t, stored.Thumbnail, stored.MarkerObjects[0].MarkerImage)
	assert.Equal(t, stored.Thumbnail, last.Value)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pngBytes, data))

	// the caller's class is left untouched
	assert.Equal(t, pngDataURI(), c.Thumbnail)
}

func TestSave_OffloadStoresEachDistinctImageOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewLocal(dir, "http://cdn.test/media")
	require.NoError(t, err)
	s, _ := newService(t, func(d *Dependencies) {
		d.Media = store
		d.OffloadInline = true
	})

	otherPNG := "data:image/png;base64," + base64.StdEncoding.EncodeToString(append(slices.Clone(pngBytes), 1))
	c := storagetest.SampleClass("dedupe")
	c.Thumbnail = ""
	c = editor.SetMarkerImage(c, 0, pngDataURI())
	c.MarkerObjects[1].MarkerImage = otherPNG
	require.Equal(t, pngDataURI(), c.Thumbnail)

	stored, err := s.Save(context.Background(), "alice", c)
	require.NoError(t, err)

	assert.Equal(t, stored.Thumbnail, stored.MarkerObjects[0].MarkerImage)
	assert.NotEqual(t, stored.MarkerObjects[0].MarkerImage, stored.MarkerObjects[1].MarkerImage)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestSave_RejectsBadInlineImage(t *testing.T) {
	store, err := media.NewLocal(t.TempDir(), "http://cdn.test/media")
	require.NoError(t, err)
	s, backend := newService(t, func(d *Dependencies) {
		d.Media = store
		d.OffloadInline = true
	})

	c := storagetest.SampleClass("bad")
	c.Thumbnail = "data:text/plain,hello"

	_, err = s.Save(context.Background(), "alice", c)

	require.ErrorIs(t, err, core.ErrInvalidField)
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "thumbnail", ve.Fields[0].Field)
	assert.Equal(t, 0, backend.Len())
}

func TestSave_InlineKeptWithoutOffload(t *testing.T) {
	s, _ := newService(t, nil)
	c := storagetest.SampleClass("kept")
	c.Thumbnail = pngDataURI()

	stored, err := s.Save(context.Background(), "alice", c)

	require.NoError(t, err)
	assert.Equal(t, pngDataURI(), stored.Thumbnail)
}

func TestValidate(t *testing.T) {
	s, backend := newService(t, nil)

	assert.NoError(t, s.Validate(storagetest.SampleClass("ok")))

	c := storagetest.SampleClass("empty")
	c.Description = ""
	assert.ErrorIs(t, s.Validate(c), core.ErrMissingDescription)
	assert.Equal(t, 0, backend.Len())
}

func TestGet(t *testing.T) {
	s, _ := newService(t, nil)
	c := storagetest.SampleClass("get")
	_, err := s.Save(context.Background(), "alice", c)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "get", got.Title)

	_, err = s.Get(context.Background(), "class_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_FiltersCaseInsensitive(t *testing.T) {
	s, _ := newService(t, nil)
	ctx := context.Background()
	plants := storagetest.SampleClass("Plants")
	cells := storagetest.SampleClass("Cells")
	cells.Description = "The smallest unit of LIFE"
	for _, c := range []core.Class{plants, cells} {
		_, err := s.Save(ctx, "alice", c)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := s.List(ctx, "alice", "plan")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, plants.ID, hits[0].ID)

	hits, err = s.List(ctx, "alice", "life")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cells.ID, hits[0].ID)

	hits, err = s.List(ctx, "bob", "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDelete(t *testing.T) {
	rec := &recorder{}
	s, backend := newService(t, func(d *Dependencies) { d.Events = rec })
	ctx := context.Background()
	c := storagetest.SampleClass("doomed")
	_, err := s.Save(ctx, "alice", c)
	require.NoError(t, err)

	_, err = s.Delete(ctx, "mallory", c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, backend.Len())

	removed, err := s.Delete(ctx, "alice", "class_missing")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Delete(ctx, "alice", c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, backend.Len())

	require.Len(t, rec.events, 2)
	assert.Equal(t, events.KindClassDeleted, rec.events[1].Kind)
	assert.Equal(t, c.ID, rec.events[1].ClassID)
}

func TestExperienceURL(t *testing.T) {
	s, _ := newService(t, nil)
	assert.Equal(t, "https://areduca.example.com/view/class_1_abc", s.ExperienceURL("class_1_abc"))
	assert.Equal(t, "https://areduca.example.com/view/a%2Fb", s.ExperienceURL("a/b"))
}

func TestQRCode(t *testing.T) {
	s, _ := newService(t, nil)

	png, err := s.QRCode("class_1_abc", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	small, err := s.QRCode("class_1_abc", 1)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(small, []byte("\x89PNG")))
}
