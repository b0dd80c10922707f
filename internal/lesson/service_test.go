package lesson_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/nagorik-apps/nagorik-lessons/internal/assetstore"
	"github.com/nagorik-apps/nagorik-lessons/internal/gemini"
	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
	"github.com/nagorik-apps/nagorik-lessons/internal/resolver"
)

// gateResolver blocks each resolution until its id is released, so tests
// control completion order precisely.
type gateResolver struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	closed map[string]bool
}

func newGateResolver() *gateResolver {
	return &gateResolver{
		gates:  make(map[string]chan struct{}),
		closed: make(map[string]bool),
	}
}

func (r *gateResolver) gate(id string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gates[id]; ok {
		return g
	}
	g := make(chan struct{})
	r.gates[id] = g
	return g
}

func (r *gateResolver) release(id string) {
	g := r.gate(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed[id] {
		close(g)
		r.closed[id] = true
	}
}

func (r *gateResolver) ResolveMedia(ctx context.Context, id, _ string) string {
	select {
	case <-r.gate(id):
	case <-ctx.Done():
	}
	return "ref-" + id
}

// instantResolver resolves immediately.
type instantResolver struct{}

func (instantResolver) ResolveMedia(_ context.Context, id, _ string) string {
	return "ref-" + id
}

type fakePlanner struct {
	plan []lesson.SlideContent
	err  error
}

func (f *fakePlanner) GeneratePlan(_ context.Context, _ string, _ language.Tag) ([]lesson.SlideContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func loadLibrary(t *testing.T) *presets.Library {
	t.Helper()
	lib, err := presets.Load()
	require.NoError(t, err)
	return lib
}

func TestService_PresetEndToEnd(t *testing.T) {
	t.Parallel()

	gates := newGateResolver()
	svc := lesson.NewService(&fakePlanner{}, gates, loadLibrary(t), 0)

	snap, err := svc.StartPreset(context.Background(), "washing-hands", lesson.LanguageEnglish)
	require.NoError(t, err)

	// No planning phase for presets: straight to media at the 10% baseline.
	assert.Equal(t, lesson.StateMedia, snap.State)
	assert.Equal(t, 10.0, snap.Progress)
	assert.Equal(t, "Washing Hands Properly", snap.Topic)
	require.Len(t, snap.Slides, 5)
	for i, slide := range snap.Slides {
		assert.Equal(t, fmt.Sprintf("preset-washing-hands-%d", i), slide.ID)
		assert.Empty(t, slide.MediaRef)
	}

	for i := 0; i < 5; i++ {
		gates.release(fmt.Sprintf("preset-washing-hands-%d", i))
	}

	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying
	}, time.Second, 5*time.Millisecond)

	final, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, 100.0, final.Progress)
	for i, slide := range final.Slides {
		assert.Equal(t, "ref-"+fmt.Sprintf("preset-washing-hands-%d", i), slide.MediaRef)
	}
}

func TestService_OrderPreservedUnderReversedCompletion(t *testing.T) {
	t.Parallel()

	gates := newGateResolver()
	svc := lesson.NewService(&fakePlanner{}, gates, loadLibrary(t), 0)

	snap, err := svc.StartPreset(context.Background(), "road-safety", lesson.LanguageEnglish)
	require.NoError(t, err)
	wantTitles := make([]string, len(snap.Slides))
	for i, slide := range snap.Slides {
		wantTitles[i] = slide.Title
	}

	// Last slide resolves first, first slide resolves last.
	for i := 4; i >= 0; i-- {
		gates.release(fmt.Sprintf("preset-road-safety-%d", i))
	}

	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying
	}, time.Second, 5*time.Millisecond)

	final, _ := svc.Current()
	for i, slide := range final.Slides {
		assert.Equal(t, wantTitles[i], slide.Title, "slide order must match plan order")
		assert.Equal(t, fmt.Sprintf("ref-preset-road-safety-%d", i), slide.MediaRef)
	}
}

func TestService_ProgressIsMonotonicAndSettlesAt100(t *testing.T) {
	t.Parallel()

	gates := newGateResolver()
	svc := lesson.NewService(&fakePlanner{}, gates, loadLibrary(t), 0)

	_, err := svc.StartPreset(context.Background(), "school-clean", lesson.LanguageEnglish)
	require.NoError(t, err)

	last := 10.0
	for i := 0; i < 5; i++ {
		gates.release(fmt.Sprintf("preset-school-clean-%d", i))
		want := 10 + float64(i+1)/5*90

		require.Eventually(t, func() bool {
			got, ok := svc.Current()
			return ok && got.Progress >= want-0.001
		}, time.Second, 5*time.Millisecond)

		got, ok := svc.Current()
		require.True(t, ok)
		assert.GreaterOrEqual(t, got.Progress, last, "progress must never retreat")
		assert.InDelta(t, want, got.Progress, 0.001)
		if i < 4 {
			assert.Less(t, got.Progress, 100.0, "100 only once all slides settle")
		}
		last = got.Progress
	}

	final, _ := svc.Current()
	assert.Equal(t, 100.0, final.Progress)
	assert.Equal(t, lesson.StatePlaying, final.State)
}

func TestService_StaleSessionCannotTouchSuccessor(t *testing.T) {
	t.Parallel()

	gates := newGateResolver()
	svc := lesson.NewService(&fakePlanner{}, gates, loadLibrary(t), 0)

	_, err := svc.StartPreset(context.Background(), "washing-hands", lesson.LanguageEnglish)
	require.NoError(t, err)

	// Exit before anything resolves, then start a different lesson.
	require.NoError(t, svc.Exit())
	_, ok := svc.Current()
	require.False(t, ok, "after exit the service is back at Home")

	snap, err := svc.StartPreset(context.Background(), "wasting-water", lesson.LanguageEnglish)
	require.NoError(t, err)

	// Completions of the discarded session arrive late.
	for i := 0; i < 5; i++ {
		gates.release(fmt.Sprintf("preset-washing-hands-%d", i))
	}
	time.Sleep(50 * time.Millisecond)

	got, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, 10.0, got.Progress, "stale completions must not advance the new session")
	for _, slide := range got.Slides {
		assert.Empty(t, slide.MediaRef)
		assert.False(t, strings.Contains(slide.ID, "washing-hands"))
	}

	// The new session still runs to completion normally.
	for i := 0; i < 5; i++ {
		gates.release(fmt.Sprintf("preset-wasting-water-%d", i))
	}
	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying
	}, time.Second, 5*time.Millisecond)
}

func TestService_CustomLessonUsesReturnedPlanLength(t *testing.T) {
	t.Parallel()

	// The model was asked for 5 slides but returned 3; progress math must
	// follow the actual count.
	planner := &fakePlanner{plan: []lesson.SlideContent{
		{Title: "One", Explanation: "First.", VisualPrompt: "one"},
		{Title: "Two", Explanation: "Second.", VisualPrompt: "two"},
		{Title: "Three", Explanation: "Third.", VisualPrompt: "three"},
	}}
	svc := lesson.NewService(planner, instantResolver{}, loadLibrary(t), 0)

	snap, err := svc.StartCustom(context.Background(), "Sharing with Friends", lesson.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, snap.Slides, 3)

	prefix := snap.Slides[0].ID
	prefix = prefix[:strings.LastIndex(prefix, "-")]
	assert.True(t, strings.HasPrefix(prefix, "custom-"))
	for i, slide := range snap.Slides {
		assert.Equal(t, fmt.Sprintf("%s-%d", prefix, i), slide.ID)
	}

	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying && got.Progress == 100.0
	}, time.Second, 5*time.Millisecond)
}

func TestService_CustomIDsDifferAcrossSessions(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: []lesson.SlideContent{
		{Title: "T", Explanation: "E.", VisualPrompt: "v"},
	}}
	svc := lesson.NewService(planner, instantResolver{}, loadLibrary(t), 0)

	first, err := svc.StartCustom(context.Background(), "Kindness", lesson.LanguageEnglish)
	require.NoError(t, err)
	require.NoError(t, svc.Exit())

	second, err := svc.StartCustom(context.Background(), "Kindness", lesson.LanguageEnglish)
	require.NoError(t, err)

	assert.NotEqual(t, first.Slides[0].ID, second.Slides[0].ID,
		"replaying the same topic must not reuse cache keys")
}

func TestService_PlanFailureReturnsHome(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{err: gemini.ErrPlanGeneration}
	svc := lesson.NewService(planner, instantResolver{}, loadLibrary(t), 0)

	_, err := svc.StartCustom(context.Background(), "Anything", lesson.LanguageBangla)
	require.ErrorIs(t, err, gemini.ErrPlanGeneration)

	_, ok := svc.Current()
	assert.False(t, ok, "no partial state survives a plan failure")

	// The service accepts a new lesson immediately.
	_, err = svc.StartPreset(context.Background(), "standing-line", lesson.LanguageBangla)
	require.NoError(t, err)
}

func TestService_SecondStartWhileActiveIsRejected(t *testing.T) {
	t.Parallel()

	gates := newGateResolver()
	svc := lesson.NewService(&fakePlanner{}, gates, loadLibrary(t), 0)

	_, err := svc.StartPreset(context.Background(), "washing-hands", lesson.LanguageEnglish)
	require.NoError(t, err)

	_, err = svc.StartPreset(context.Background(), "road-safety", lesson.LanguageEnglish)
	assert.ErrorIs(t, err, lesson.ErrSessionActive)
}

func TestService_UnknownPreset(t *testing.T) {
	t.Parallel()

	svc := lesson.NewService(&fakePlanner{}, instantResolver{}, loadLibrary(t), 0)

	_, err := svc.StartPreset(context.Background(), "brushing-teeth", lesson.LanguageEnglish)
	assert.ErrorIs(t, err, lesson.ErrUnknownPreset)
	_, ok := svc.Current()
	assert.False(t, ok)
}

type countingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingGenerator) GenerateImage(_ context.Context, _ string) (gemini.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return gemini.Image{MIME: "image/png", Data: []byte("img")}, nil
}

func (c *countingGenerator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestService_WarmStoreReplayUsesNoGeneration(t *testing.T) {
	t.Parallel()

	store := assetstore.NewMemoryStore()
	gen := &countingGenerator{}
	res := resolver.New(store, gen)
	svc := lesson.NewService(&fakePlanner{}, res, loadLibrary(t), 0)
	ctx := context.Background()

	_, err := svc.StartPreset(ctx, "respect-elders", lesson.LanguageBangla)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 5, gen.callCount())
	require.NoError(t, svc.Exit())

	// Later session, same preset, warm store: zero generator calls.
	_, err = svc.StartPreset(ctx, "respect-elders", lesson.LanguageBangla)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, ok := svc.Current()
		return ok && got.State == lesson.StatePlaying
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, gen.callCount())
}
