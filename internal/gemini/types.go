package gemini

import "errors"

// The two terminal failures of the generation boundary. Plan failure aborts
// the lesson and is the only error a user ever sees; image failure is
// absorbed per-slide by the media resolver.
var (
	ErrPlanGeneration  = errors.New("lesson plan generation failed")
	ErrImageGeneration = errors.New("image generation failed")
)

// Image is a freshly generated illustration payload.
type Image struct {
	MIME string
	Data []byte
}

// planSlide mirrors the JSON schema the text model is constrained to.
type planSlide struct {
	Title        string `json:"title"`
	Explanation  string `json:"explanation"`
	VisualPrompt string `json:"visualPrompt"`
}
