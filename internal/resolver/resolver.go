package resolver

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/nagorik-apps/nagorik-lessons/internal/assetstore"
	"github.com/nagorik-apps/nagorik-lessons/internal/gemini"
	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

// PlaceholderRef is the fixed "image unavailable" reference served when
// generation fails. It is never written to the store, so a later session
// retries generation for the same id instead of replaying the placeholder.
const PlaceholderRef = "https://placehold.co/800x600/f3f8f6/006a4e.png?text=Image+Unavailable"

// ImageGenerator is the slice of the generation gateway the resolver needs.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, visualPrompt string) (gemini.Image, error)
}

// Resolver turns a slide id into a displayable media reference:
// cache hit, else fresh generation, else placeholder. It never fails its
// caller.
type Resolver struct {
	store     assetstore.Store
	generator ImageGenerator
	group     singleflight.Group
}

func New(store assetstore.Store, generator ImageGenerator) *Resolver {
	return &Resolver{
		store:     store,
		generator: generator,
	}
}

// ResolveMedia returns a displayable reference for the slide's illustration.
// Concurrent calls for the same id share one generation: two sessions
// missing the cache on the same preset slide cost a single remote call.
func (r *Resolver) ResolveMedia(ctx context.Context, id, visualPrompt string) string {
	if asset, ok := r.store.Get(ctx, id); ok {
		return dataURI(asset.MIME, asset.Data)
	}

	ref, _, _ := r.group.Do(id, func() (interface{}, error) {
		// Re-check under the flight: a sibling call may have filled the
		// store while this one queued.
		if asset, ok := r.store.Get(ctx, id); ok {
			return dataURI(asset.MIME, asset.Data), nil
		}

		img, err := r.generator.GenerateImage(ctx, visualPrompt)
		if err != nil {
			log.Warn("Image generation failed for %s, serving placeholder: %v", id, err)
			return PlaceholderRef, nil
		}

		// Best effort: a failed cache write only costs future-session reuse.
		r.store.Put(ctx, assetstore.Asset{ID: id, MIME: img.MIME, Data: img.Data})
		return dataURI(img.MIME, img.Data), nil
	})
	return ref.(string)
}

func dataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}
