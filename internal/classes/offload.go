package classes

import (
	"context"
	"errors"
	"fmt"

	"github.com/areduca/classbuilder/internal/media"
	"github.com/areduca/classbuilder/pkg/core"
	"golang.org/x/sync/errgroup"
)

const offloadConcurrency = 4

// inlineRef is one data: reference found in a class, with a setter that
// writes the stored URL back into the copy being saved.
type inlineRef struct {
	field string
	name  string
	value string
	set   func(url string)
}

// inlineRefs lists the data: references of c. The setters write into c.
func inlineRefs(c *core.Class) []inlineRef {
	var refs []inlineRef
	if media.IsDataURI(c.Thumbnail) {
		refs = append(refs, inlineRef{
			field: "thumbnail",
			name:  c.ID + "-thumbnail",
			value: c.Thumbnail,
			set:   func(u string) { c.Thumbnail = u },
		})
	}
	for mi := range c.MarkerObjects {
		m := &c.MarkerObjects[mi]
		if media.IsDataURI(m.MarkerImage) {
			refs = append(refs, inlineRef{
				field: fmt.Sprintf("markerObjects[%d].markerImage", mi),
				name:  m.ID,
				value: m.MarkerImage,
				set:   func(u string) { m.MarkerImage = u },
			})
		}
		for si := range m.Steps {
			for ci := range m.Steps[si].Contents {
				item := &m.Steps[si].Contents[ci]
				if item.Type == core.ContentImage && media.IsDataURI(item.Value) {
					refs = append(refs, inlineRef{
						field: fmt.Sprintf("markerObjects[%d].steps[%d].contents[%d].value", mi, si, ci),
						name:  item.ID,
						value: item.Value,
						set:   func(u string) { item.Value = u },
					})
				}
			}
		}
	}
	return refs
}

// offloadInline stores every inline image of c in the media store and
// returns a copy of c that references the stored URLs instead.
func (s *Service) offloadInline(ctx context.Context, c core.Class) (core.Class, error) {
	out := c.Clone()
	refs := inlineRefs(&out)
	if len(refs) == 0 {
		return c, nil
	}

	// each distinct value is stored once
	first := make(map[string]int, len(refs))
	var unique []inlineRef
	for _, ref := range refs {
		if _, ok := first[ref.value]; !ok {
			first[ref.value] = len(unique)
			unique = append(unique, ref)
		}
	}

	urls := make([]string, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(offloadConcurrency)
	for i, ref := range unique {
		g.Go(func() error {
			asset, err := media.StoreDataURI(gctx, s.deps.Media, ref.value, ref.name)
			if err != nil {
				return offloadError(ref.field, err)
			}
			urls[i] = asset.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Class{}, err
	}

	for _, ref := range refs {
		ref.set(urls[first[ref.value]])
	}
	s.deps.LogManager.Logger().Debug("Offloaded inline images", "classId", c.ID, "refs", len(refs), "stored", len(unique))
	return out, nil
}

func offloadError(field string, err error) error {
	if errors.Is(err, media.ErrBadDataURI) || errors.Is(err, media.ErrNotImage) || errors.Is(err, media.ErrEmpty) {
		return core.NewValidationError(core.CodeInvalidField, "invalid inline image",
			core.FieldError{Field: field, Error: err.Error()})
	}
	return fmt.Errorf("failed to offload %s: %w", field, err)
}
