package warmer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
)

type recordingResolver struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingResolver) ResolveMedia(_ context.Context, id, _ string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return "ref-" + id
}

func (r *recordingResolver) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestWarmAll_CoversEverySlideAndCover(t *testing.T) {
	t.Parallel()

	lib, err := presets.Load()
	require.NoError(t, err)
	res := &recordingResolver{}
	w := New(lib, res)

	w.WarmAll(context.Background())

	seen := res.seen()
	// 6 presets, 5 slides plus a cover each.
	assert.Len(t, seen, 36)
	assert.Contains(t, seen, "preset-washing-hands-0")
	assert.Contains(t, seen, "preset-washing-hands-4")
	assert.Contains(t, seen, "preset-washing-hands-cover")
	assert.Contains(t, seen, "preset-standing-line-cover")

	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 36, "no id resolved twice in one run")
}

func TestWarmAll_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	lib, err := presets.Load()
	require.NoError(t, err)
	res := &recordingResolver{}
	w := New(lib, res)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.WarmAll(ctx)

	assert.Empty(t, res.seen())
}

func TestSchedule_RequiresCron(t *testing.T) {
	t.Parallel()

	lib, err := presets.Load()
	require.NoError(t, err)
	w := New(lib, &recordingResolver{})

	assert.Error(t, w.Schedule(context.Background()))
}
