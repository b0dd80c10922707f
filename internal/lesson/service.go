package lesson

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

var (
	ErrSessionActive    = errors.New("a lesson session is already running")
	ErrNoActiveSession  = errors.New("no active lesson session")
	ErrUnknownPreset    = errors.New("unknown preset lesson")
	ErrSessionDiscarded = errors.New("lesson session was discarded")
)

// Progress baselines. Presets skip the planning phase, so their media phase
// starts lower and covers more of the bar.
const (
	planningProgress    = 20.0
	presetMediaBaseline = 10.0
	customMediaBaseline = 30.0
)

// Planner is the slice of the generation gateway that produces text plans.
type Planner interface {
	GeneratePlan(ctx context.Context, topic string, lang language.Tag) ([]SlideContent, error)
}

// MediaResolver resolves a slide id to a displayable reference. It never
// fails; a placeholder reference counts as resolved.
type MediaResolver interface {
	ResolveMedia(ctx context.Context, id, visualPrompt string) string
}

// PresetLibrary is the bundled lesson text library.
type PresetLibrary interface {
	Title(lessonID string, lang language.Tag) (string, bool)
	Slides(lessonID string, lang language.Tag) ([]SlideContent, bool)
}

// session is the mutable state of one lesson run. It is only ever touched
// under Service.mu; media completions arrive as messages and are applied by
// a single consumer.
type session struct {
	id       uint64
	topic    string
	lang     language.Tag
	state    State
	progress float64
	slides   []Slide
	started  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// Service is the lesson orchestrator: it owns the single active session and
// drives it Home → Planning → Media → Playing → Home.
type Service struct {
	planner  Planner
	resolver MediaResolver
	library  PresetLibrary
	stagger  time.Duration

	mu     sync.Mutex
	seq    uint64
	active *session
}

func NewService(planner Planner, resolver MediaResolver, library PresetLibrary, stagger time.Duration) *Service {
	return &Service{
		planner:  planner,
		resolver: resolver,
		library:  library,
		stagger:  stagger,
	}
}

// StartPreset begins a session for a bundled lesson. The text plan is
// already known, so the session enters the media phase directly.
func (s *Service) StartPreset(_ context.Context, lessonID string, lang language.Tag) (Snapshot, error) {
	title, ok := s.library.Title(lessonID, lang)
	if !ok {
		return Snapshot{}, ErrUnknownPreset
	}
	contents, ok := s.library.Slides(lessonID, lang)
	if !ok || len(contents) == 0 {
		return Snapshot{}, ErrUnknownPreset
	}

	slides := make([]Slide, len(contents))
	for i, content := range contents {
		slides[i] = Slide{
			ID:           PresetSlideID(lessonID, i),
			SlideContent: content,
			MediaKind:    MediaImage,
		}
	}

	sess, err := s.begin(title, lang, StateMedia, presetMediaBaseline, slides)
	if err != nil {
		return Snapshot{}, err
	}
	log.Info("Preset lesson %s started (session %d, %d slides)", lessonID, sess.id, len(slides))

	// Preset media is usually cache-warm; no stagger needed.
	go s.runMedia(sess.ctx, sess.id, slides, presetMediaBaseline, false)
	return s.snapshotOf(sess.id)
}

// StartCustom begins a session for a free-form topic. Planning runs within
// this call so a plan failure surfaces directly to the caller; media
// resolution then continues in the background.
func (s *Service) StartCustom(_ context.Context, topic string, lang language.Tag) (Snapshot, error) {
	sess, err := s.begin(topic, lang, StatePlanning, planningProgress, nil)
	if err != nil {
		return Snapshot{}, err
	}
	log.Info("Custom lesson %q started (session %d)", topic, sess.id)

	// The session context, not the request context: an exit cancels the
	// remote call best-effort, and late results are dropped by the guard.
	plan, err := s.planner.GeneratePlan(sess.ctx, topic, lang)
	if err != nil {
		s.discard(sess.id)
		log.Error("Plan generation failed for %q: %v", topic, err)
		return Snapshot{}, fmt.Errorf("generate lesson plan: %w", err)
	}

	// The plan may carry any slide count; everything downstream uses the
	// actual length, not the requested hint.
	prefix := NewCustomIDPrefix()
	slides := make([]Slide, len(plan))
	for i, content := range plan {
		slides[i] = Slide{
			ID:           CustomSlideID(prefix, i),
			SlideContent: content,
			MediaKind:    MediaImage,
		}
	}

	if !s.applyPlanReady(sess.id, slides) {
		return Snapshot{}, ErrSessionDiscarded
	}
	go s.runMedia(sess.ctx, sess.id, slides, customMediaBaseline, true)
	return s.snapshotOf(sess.id)
}

// Current returns a snapshot of the active session, or false when at Home.
func (s *Service) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Snapshot{}, false
	}
	return s.snapshotLocked(s.active), true
}

// Exit discards the active session and returns to Home. In-flight
// resolutions keep running best-effort but their results are ignored.
func (s *Service) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveSession
	}
	log.Info("Session %d exited at state %s", s.active.id, s.active.state)
	s.active.cancel()
	s.active = nil
	return nil
}

func (s *Service) begin(topic string, lang language.Tag, state State, progress float64, slides []Slide) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrSessionActive
	}
	s.seq++
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:       s.seq,
		topic:    topic,
		lang:     lang,
		state:    state,
		progress: progress,
		slides:   slides,
		started:  time.Now(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.active = sess
	return sess, nil
}

func (s *Service) discard(sessionID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.id == sessionID {
		s.active.cancel()
		s.active = nil
	}
}

// applyPlanReady moves a session from planning to media. Returns false when
// the session is no longer the active one.
func (s *Service) applyPlanReady(sessionID uint64, slides []Slide) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != sessionID {
		return false
	}
	s.active.slides = slides
	s.active.state = StateMedia
	s.active.progress = customMediaBaseline
	return true
}

// runMedia fans out one resolution per slide and applies completions in
// arrival order through a single consumer, which is the sole mutator of the
// session's slide list.
func (s *Service) runMedia(ctx context.Context, sessionID uint64, slides []Slide, baseline float64, staggered bool) {
	total := len(slides)
	type completion struct {
		index int
		ref   string
	}
	results := make(chan completion, total)

	var limiter *rate.Limiter
	if staggered && s.stagger > 0 {
		// Smooths fresh-generation load on the remote service; presets skip
		// this because they mostly resolve from cache.
		limiter = rate.NewLimiter(rate.Every(s.stagger), 1)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range slides {
		slide := slides[i]
		index := i
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					return err
				}
			}
			ref := s.resolver.ResolveMedia(egCtx, slide.ID, slide.VisualPrompt)
			select {
			case results <- completion{index: index, ref: ref}:
				return nil
			case <-egCtx.Done():
				return egCtx.Err()
			}
		})
	}
	go func() {
		if err := eg.Wait(); err != nil {
			log.Debug("Media fan-out for session %d ended early: %v", sessionID, err)
		}
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if !s.applyMediaResult(sessionID, res.index, res.ref, baseline, completed, total) {
			// Stale session: drain nothing further, the channel will close
			// once the cancelled goroutines unwind.
			return
		}
	}
}

// applyMediaResult records one slide completion. Returns false when the
// completion belongs to a discarded session.
func (s *Service) applyMediaResult(sessionID uint64, index int, ref string, baseline float64, completed, total int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != sessionID {
		return false
	}
	if index < 0 || index >= len(s.active.slides) {
		return true
	}

	s.active.slides[index].MediaRef = ref
	// Monotonic by construction: completed only grows and the formula is
	// increasing in it.
	s.active.progress = baseline + float64(completed)/float64(total)*(100-baseline)
	if completed == total {
		s.active.progress = 100
		s.active.state = StatePlaying
		log.Info("Session %d playing: %d slides resolved", sessionID, total)
	}
	return true
}

func (s *Service) snapshotOf(sessionID uint64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != sessionID {
		return Snapshot{}, ErrSessionDiscarded
	}
	return s.snapshotLocked(s.active), nil
}

func (s *Service) snapshotLocked(sess *session) Snapshot {
	slides := make([]Slide, len(sess.slides))
	copy(slides, sess.slides)
	return Snapshot{
		ID:       sess.id,
		Topic:    sess.topic,
		Language: LanguageCode(sess.lang),
		State:    sess.state,
		Progress: sess.progress,
		Slides:   slides,
	}
}
