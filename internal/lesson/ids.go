package lesson

import (
	"fmt"

	"github.com/google/uuid"
)

// Slide identifiers are the sole cache key, so the two schemes must never
// collide: preset ids are deterministic and stable across sessions, custom
// ids are unique per generation.

// PresetSlideID returns the stable identifier for a preset slide, e.g.
// "preset-washing-hands-0". The same id is produced in every session, which
// is what makes cross-session cache reuse safe for presets.
func PresetSlideID(lessonID string, index int) string {
	return fmt.Sprintf("preset-%s-%d", lessonID, index)
}

// PresetCoverID returns the identifier for a preset lesson's cover image.
func PresetCoverID(lessonID string) string {
	return fmt.Sprintf("preset-%s-cover", lessonID)
}

// NewCustomIDPrefix returns a fresh prefix for the slides of one custom
// lesson. A v4 UUID rather than a timestamp: two custom lessons started in
// the same millisecond must still get distinct ids.
func NewCustomIDPrefix() string {
	return fmt.Sprintf("custom-%s", uuid.NewString())
}

// CustomSlideID derives a slide id from a session prefix, e.g.
// "custom-<uuid>-2".
func CustomSlideID(prefix string, index int) string {
	return fmt.Sprintf("%s-%d", prefix, index)
}
