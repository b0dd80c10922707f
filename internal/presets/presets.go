package presets

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
)

//go:embed library/meta.json library/lessons/*.json
var libraryFS embed.FS

// Meta describes one preset lesson for the selection list.
type Meta struct {
	ID          string `json:"id"`
	TitleEN     string `json:"title_en"`
	TitleBN     string `json:"title_bn"`
	CoverPrompt string `json:"cover_prompt"`
}

type lessonData struct {
	EN []lesson.SlideContent `json:"en"`
	BN []lesson.SlideContent `json:"bn"`
}

// Library is the fixed, bundled mapping from lesson id to per-language
// slide contents. Read-only; no generation involved for text.
type Library struct {
	metas   []Meta
	lessons map[string]lessonData
}

// Load parses the embedded preset library. It fails only on a broken
// bundle, which is a build defect rather than a runtime condition.
func Load() (*Library, error) {
	metaRaw, err := libraryFS.ReadFile("library/meta.json")
	if err != nil {
		return nil, fmt.Errorf("read preset meta: %w", err)
	}
	var metas []Meta
	if err := json.Unmarshal(metaRaw, &metas); err != nil {
		return nil, fmt.Errorf("parse preset meta: %w", err)
	}

	lessons := make(map[string]lessonData, len(metas))
	entries, err := libraryFS.ReadDir("library/lessons")
	if err != nil {
		return nil, fmt.Errorf("read preset lessons: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		raw, err := libraryFS.ReadFile(filepath.Join("library/lessons", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read preset lesson %s: %w", id, err)
		}
		var data lessonData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse preset lesson %s: %w", id, err)
		}
		lessons[id] = data
	}

	for _, meta := range metas {
		if _, ok := lessons[meta.ID]; !ok {
			return nil, fmt.Errorf("preset meta references missing lesson %s", meta.ID)
		}
	}
	return &Library{metas: metas, lessons: lessons}, nil
}

// List returns the preset metadata in bundle order.
func (l *Library) List() []Meta {
	ret := make([]Meta, len(l.metas))
	copy(ret, l.metas)
	return ret
}

// IDs returns every preset lesson id in bundle order.
func (l *Library) IDs() []string {
	ret := make([]string, 0, len(l.metas))
	for _, m := range l.metas {
		ret = append(ret, m.ID)
	}
	return ret
}

// Title returns the display title of a preset in the given language.
func (l *Library) Title(lessonID string, lang language.Tag) (string, bool) {
	for _, m := range l.metas {
		if m.ID == lessonID {
			if lang == lesson.LanguageBangla {
				return m.TitleBN, true
			}
			return m.TitleEN, true
		}
	}
	return "", false
}

// Slides returns the ordered slide contents of a preset in the given
// language. Visual prompts are identical across languages.
func (l *Library) Slides(lessonID string, lang language.Tag) ([]lesson.SlideContent, bool) {
	data, ok := l.lessons[lessonID]
	if !ok {
		return nil, false
	}
	src := data.EN
	if lang == lesson.LanguageBangla {
		src = data.BN
	}
	ret := make([]lesson.SlideContent, len(src))
	copy(ret, src)
	return ret, true
}

// CoverPrompt returns the visual prompt for a preset's cover illustration.
func (l *Library) CoverPrompt(lessonID string) (string, bool) {
	for _, m := range l.metas {
		if m.ID == lessonID {
			return m.CoverPrompt, true
		}
	}
	return "", false
}
