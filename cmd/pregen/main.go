// Command pregen fills the image asset cache for every preset lesson in one
// batch, so a deployment ships with warm covers and slides.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nagorik-apps/nagorik-lessons/internal/assetstore"
	"github.com/nagorik-apps/nagorik-lessons/internal/config"
	"github.com/nagorik-apps/nagorik-lessons/internal/gemini"
	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
	"github.com/nagorik-apps/nagorik-lessons/internal/resolver"
	"github.com/nagorik-apps/nagorik-lessons/internal/warmer"
	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

func main() {
	dbPath := flag.String("db", "", "asset store path (overrides ASSET_DB_PATH)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.Storage.AssetDBPath = *dbPath
	}
	if cfg.Storage.AssetDBPath == "" {
		log.Fatal("An asset store path is required, set -db or ASSET_DB_PATH")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := assetstore.NewSQLiteStore(cfg.Storage.AssetDBPath)
	if err != nil {
		log.Fatal("Failed to open asset store at %s: %v", cfg.Storage.AssetDBPath, err)
	}
	defer store.Close()

	gateway, err := gemini.NewClient(ctx, cfg.Gemini, cfg.Lesson.PlanSlideCount)
	if err != nil {
		log.Fatal("Failed to create Gemini client: %v", err)
	}
	defer gateway.Close()

	library, err := presets.Load()
	if err != nil {
		log.Fatal("Failed to load preset library: %v", err)
	}

	warmer.New(library, resolver.New(store, gateway)).WarmAll(ctx)
}
