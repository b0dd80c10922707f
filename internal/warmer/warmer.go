// Package warmer pre-resolves every preset illustration so first-time
// learners hit a warm cache instead of waiting on generation.
package warmer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

// Warmer walks the preset library and resolves each slide and cover image.
// Resolution is sequential on purpose: warming is background work and should
// not compete with live sessions for generation quota.
type Warmer struct {
	library  *presets.Library
	resolver lesson.MediaResolver

	cron     *cron.Cron
	cronExpr string
	group    singleflight.Group
}

func New(library *presets.Library, resolver lesson.MediaResolver) *Warmer {
	return &Warmer{
		library:  library,
		resolver: resolver,
	}
}

// NewScheduled wraps New with a cron engine for periodic warming.
func NewScheduled(library *presets.Library, resolver lesson.MediaResolver, c *cron.Cron, cronExpr string) *Warmer {
	w := New(library, resolver)
	w.cron = c
	w.cronExpr = cronExpr
	return w
}

// Schedule registers the warm run on the cron engine. Overlapping triggers
// collapse into one run.
func (w *Warmer) Schedule(ctx context.Context) error {
	if w.cron == nil || w.cronExpr == "" {
		return fmt.Errorf("warmer has no cron schedule configured")
	}
	runFunc := func() {
		_, _, _ = w.group.Do("warm", func() (any, error) {
			w.WarmAll(ctx)
			return nil, nil
		})
	}
	_, err := w.cron.AddFunc(w.cronExpr, runFunc)
	return err
}

// WarmAll resolves every preset slide and cover once. Failed generations
// resolve to the placeholder, which is never cached, so the next run retries
// them.
func (w *Warmer) WarmAll(ctx context.Context) {
	warmed := 0
	for _, meta := range w.library.List() {
		if ctx.Err() != nil {
			log.Warn("Warm run aborted after %d assets: %v", warmed, ctx.Err())
			return
		}

		// Visual prompts are shared across display languages, so one pass
		// per lesson covers both.
		slides, ok := w.library.Slides(meta.ID, lesson.LanguageEnglish)
		if !ok {
			log.Error("Preset %s listed but has no slides", meta.ID)
			continue
		}
		for i, slide := range slides {
			w.resolver.ResolveMedia(ctx, lesson.PresetSlideID(meta.ID, i), slide.VisualPrompt)
			warmed++
		}

		if prompt, ok := w.library.CoverPrompt(meta.ID); ok {
			w.resolver.ResolveMedia(ctx, lesson.PresetCoverID(meta.ID), prompt)
			warmed++
		}
	}
	log.Info("Warm run finished: %d assets resolved", warmed)
}
