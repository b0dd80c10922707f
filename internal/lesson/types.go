package lesson

import (
	"fmt"

	"golang.org/x/text/language"
)

// Display languages supported by the lesson surface. Visual prompts are
// always English regardless of display language, since they feed the image
// model rather than the learner.
var (
	LanguageEnglish = language.English
	LanguageBangla  = language.Bengali
)

// ParseLanguage maps an API language code ("en", "bn") to a tag.
func ParseLanguage(code string) (language.Tag, error) {
	switch code {
	case "en":
		return LanguageEnglish, nil
	case "bn":
		return LanguageBangla, nil
	default:
		return language.Und, fmt.Errorf("unsupported language %q", code)
	}
}

// LanguageCode maps a display language tag back to its API code.
func LanguageCode(tag language.Tag) string {
	if tag == LanguageBangla {
		return "bn"
	}
	return "en"
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// SlideContent is the text plan for one slide, immutable once produced.
type SlideContent struct {
	Title        string `json:"title"`
	Explanation  string `json:"explanation"`
	VisualPrompt string `json:"visual_prompt"`
}

// Slide is one unit of lesson content. MediaRef starts empty and is filled
// exactly once by media resolution (a placeholder counts as resolved).
type Slide struct {
	ID string `json:"id"`
	SlideContent
	MediaKind MediaKind `json:"media_kind"`
	MediaRef  string    `json:"media_ref,omitempty"`
}

// State is the lesson session lifecycle. Home is represented by the absence
// of an active session.
type State string

const (
	StatePlanning State = "planning"
	StateMedia    State = "media"
	StatePlaying  State = "playing"
)

// Snapshot is the read-only view of the active session handed to the HTTP
// layer. Sessions themselves are discarded on exit, never persisted.
type Snapshot struct {
	ID       uint64  `json:"id"`
	Topic    string  `json:"topic"`
	Language string  `json:"language"`
	State    State   `json:"state"`
	Progress float64 `json:"progress"`
	Slides   []Slide `json:"slides"`
}
