package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.ImageModel)
	assert.Equal(t, DefaultImageStyleSuffix, cfg.Gemini.ImageStyleSuffix)
	assert.Equal(t, "data/assets.db", cfg.Storage.AssetDBPath)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Lesson.PlanSlideCount)
	assert.Equal(t, 200*time.Millisecond, cfg.Lesson.MediaStagger)
	assert.Empty(t, cfg.Lesson.WarmCron)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-3.0-pro")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PLAN_SLIDE_COUNT", "7")
	t.Setenv("MEDIA_STAGGER", "1s")
	t.Setenv("WARM_CRON", "0 3 * * *")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "gemini-3.0-pro", cfg.Gemini.Model)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Lesson.PlanSlideCount)
	assert.Equal(t, time.Second, cfg.Lesson.MediaStagger)
	assert.Equal(t, "0 3 * * *", cfg.Lesson.WarmCron)
}

func TestNewFromEnv_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidate_RejectsNonPositiveSlideCount(t *testing.T) {
	cfg := &Config{
		Gemini: GeminiConfig{APIKey: "k"},
		Lesson: LessonConfig{PlanSlideCount: 0},
	}
	assert.Error(t, cfg.Validate())
}
