package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Gemini Configuration:
// - GEMINI_API_KEY: API key for the Gemini API (required)
// - GEMINI_MODEL: Text model for lesson plans (default: gemini-2.5-flash)
// - GEMINI_IMAGE_MODEL: Image model for slide illustrations (default: gemini-2.5-flash-image)
// - IMAGE_STYLE_SUFFIX: Style directive appended to every image prompt
//
// Storage Configuration:
// - ASSET_DB_PATH: SQLite path for the image asset cache (empty = in-memory only)
//
// Server Configuration:
// - HTTP_ADDR: Listen address (default: :8080)
// - UI_STATIC_DIR: Directory with the built learner frontend (empty = API only)
//
// Lesson Configuration:
// - PLAN_SLIDE_COUNT: Slides requested per lesson plan (default: 5)
// - MEDIA_STAGGER: Delay between fresh image generations (default: 200ms)
// - WARM_CRON: Cron expression for scheduled preset cache warming (empty = disabled)
type Config struct {
	Gemini  GeminiConfig  `json:"gemini"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
	Lesson  LessonConfig  `json:"lesson"`
}

// GeminiConfig holds the configuration for the generation gateway.
type GeminiConfig struct {
	APIKey           string `json:"api_key"`
	Model            string `json:"model"`
	ImageModel       string `json:"image_model"`
	ImageStyleSuffix string `json:"image_style_suffix"`
}

// StorageConfig holds the configuration for the asset store.
type StorageConfig struct {
	AssetDBPath string `json:"asset_db_path"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
}

// LessonConfig holds lesson generation behavior.
type LessonConfig struct {
	PlanSlideCount int           `json:"plan_slide_count"`
	MediaStagger   time.Duration `json:"media_stagger"`
	WarmCron       string        `json:"warm_cron"`
}

// DefaultImageStyleSuffix keeps one illustration style across every slide of
// every lesson so a playback never mixes visual registers.
const DefaultImageStyleSuffix = "minimalist flat vector illustration, pastel colors, educational, child-friendly, white background"

// NewFromEnv creates a new Config instance with values from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		Gemini: GeminiConfig{
			APIKey:           getEnvString("GEMINI_API_KEY", ""),
			Model:            getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
			ImageModel:       getEnvString("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			ImageStyleSuffix: getEnvString("IMAGE_STYLE_SUFFIX", DefaultImageStyleSuffix),
		},
		Storage: StorageConfig{
			AssetDBPath: getEnvString("ASSET_DB_PATH", "data/assets.db"),
		},
		Server: ServerConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIStaticDir: getEnvString("UI_STATIC_DIR", ""),
		},
		Lesson: LessonConfig{
			PlanSlideCount: getEnvInt("PLAN_SLIDE_COUNT", 5),
			MediaStagger:   getEnvDuration("MEDIA_STAGGER", 200*time.Millisecond),
			WarmCron:       getEnvString("WARM_CRON", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for required values.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Lesson.PlanSlideCount <= 0 {
		return fmt.Errorf("PLAN_SLIDE_COUNT must be positive")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
