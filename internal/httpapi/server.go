package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
)

// lessonService is the slice of the orchestrator the HTTP surface needs.
type lessonService interface {
	StartPreset(ctx context.Context, lessonID string, lang language.Tag) (lesson.Snapshot, error)
	StartCustom(ctx context.Context, topic string, lang language.Tag) (lesson.Snapshot, error)
	Current() (lesson.Snapshot, bool)
	Exit() error
}

type Server struct {
	lessons  lessonService
	library  *presets.Library
	resolver lesson.MediaResolver

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithUI serves the built learner frontend from a static directory.
func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func NewServer(lessons lessonService, library *presets.Library, resolver lesson.MediaResolver, opts ...Option) *Server {
	s := &Server{
		lessons:  lessons,
		library:  library,
		resolver: resolver,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/presets", s.handleListPresets)
	s.mux.HandleFunc("/api/presets/", s.handlePresetCover)
	s.mux.HandleFunc("/api/lessons", s.handleStartLesson)
	s.mux.HandleFunc("/api/lessons/current", s.handleCurrentLesson)
	s.mux.HandleFunc("/api/lessons/stream", s.handleLessonStream)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
