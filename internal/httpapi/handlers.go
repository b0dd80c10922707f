package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/nagorik-apps/nagorik-lessons/internal/gemini"
	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
)

type presetResponse struct {
	ID      string `json:"id"`
	TitleEN string `json:"title_en"`
	TitleBN string `json:"title_bn"`
	CoverID string `json:"cover_id"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	metas := s.library.List()
	ret := make([]presetResponse, 0, len(metas))
	for _, m := range metas {
		ret = append(ret, presetResponse{
			ID:      m.ID,
			TitleEN: m.TitleEN,
			TitleBN: m.TitleBN,
			CoverID: lesson.PresetCoverID(m.ID),
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

type coverResponse struct {
	Ref string `json:"ref"`
}

func (s *Server) handlePresetCover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// /api/presets/{id}/cover
	p := strings.TrimPrefix(r.URL.Path, "/api/presets/")
	if !strings.HasSuffix(p, "/cover") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	lessonID := strings.TrimSuffix(strings.TrimSuffix(p, "/cover"), "/")
	if decoded, err := url.PathUnescape(lessonID); err == nil {
		lessonID = decoded
	}
	prompt, ok := s.library.CoverPrompt(lessonID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset")
		return
	}

	ref := s.resolver.ResolveMedia(r.Context(), lesson.PresetCoverID(lessonID), prompt)
	writeJSON(w, http.StatusOK, coverResponse{Ref: ref})
}

type startLessonRequest struct {
	PresetID string `json:"preset_id"`
	Topic    string `json:"topic"`
	Language string `json:"language"`
}

func (s *Server) handleStartLesson(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req startLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	switch {
	case req.PresetID != "":
		lang, err := requestLanguage(req.Language, req.PresetID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap, err := s.lessons.StartPreset(r.Context(), req.PresetID, lang)
		if err != nil {
			writeStartError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	case strings.TrimSpace(req.Topic) != "":
		topic := strings.TrimSpace(req.Topic)
		lang, err := requestLanguage(req.Language, topic)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap, err := s.lessons.StartCustom(r.Context(), topic, lang)
		if err != nil {
			writeStartError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	default:
		writeError(w, http.StatusBadRequest, "either preset_id or topic is required")
	}
}

// requestLanguage resolves the display language. Empty or "auto" falls back
// to script detection on the given text, so a Bangla topic gets a Bangla
// lesson without an explicit toggle.
func requestLanguage(code, detectFrom string) (language.Tag, error) {
	if code == "" || code == "auto" {
		return lesson.DetectLanguage(detectFrom), nil
	}
	return lesson.ParseLanguage(code)
}

func writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lesson.ErrSessionActive):
		writeError(w, http.StatusConflict, "a lesson is already running")
	case errors.Is(err, lesson.ErrUnknownPreset):
		writeError(w, http.StatusNotFound, "unknown preset")
	case errors.Is(err, gemini.ErrPlanGeneration):
		writeError(w, http.StatusBadGateway, "lesson plan generation failed")
	case errors.Is(err, lesson.ErrSessionDiscarded):
		writeError(w, http.StatusConflict, "lesson was discarded before it became ready")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCurrentLesson(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, ok := s.lessons.Current()
		if !ok {
			writeError(w, http.StatusNotFound, "no active lesson")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodDelete:
		if err := s.lessons.Exit(); err != nil {
			writeError(w, http.StatusNotFound, "no active lesson")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
