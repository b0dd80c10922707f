package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/nagorik-apps/nagorik-lessons/internal/assetstore"
	"github.com/nagorik-apps/nagorik-lessons/internal/config"
	"github.com/nagorik-apps/nagorik-lessons/internal/gemini"
	"github.com/nagorik-apps/nagorik-lessons/internal/httpapi"
	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
	"github.com/nagorik-apps/nagorik-lessons/internal/presets"
	"github.com/nagorik-apps/nagorik-lessons/internal/resolver"
	"github.com/nagorik-apps/nagorik-lessons/internal/warmer"
	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store assetstore.Store
	if cfg.Storage.AssetDBPath != "" {
		sqliteStore, err := assetstore.NewSQLiteStore(cfg.Storage.AssetDBPath)
		if err != nil {
			log.Fatal("Failed to open asset store at %s: %v", cfg.Storage.AssetDBPath, err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		log.Warn("No ASSET_DB_PATH configured, generated images will not survive restarts")
		store = assetstore.NewMemoryStore()
	}

	gateway, err := gemini.NewClient(ctx, cfg.Gemini, cfg.Lesson.PlanSlideCount)
	if err != nil {
		log.Fatal("Failed to create Gemini client: %v", err)
	}
	defer gateway.Close()

	library, err := presets.Load()
	if err != nil {
		log.Fatal("Failed to load preset library: %v", err)
	}

	mediaResolver := resolver.New(store, gateway)
	lessons := lesson.NewService(gateway, mediaResolver, library, cfg.Lesson.MediaStagger)

	httpSrv := httpapi.NewServer(lessons, library, mediaResolver,
		httpapi.WithUI(cfg.Server.UIStaticDir, cfg.Server.UIStaticDir != ""))

	var warmScheduler scheduler
	var cronEng cronEngine
	if cfg.Lesson.WarmCron != "" {
		c := cron.New()
		warmScheduler = warmer.NewScheduled(library, mediaResolver, c, cfg.Lesson.WarmCron)
		cronEng = c
	}

	if err := runWithComponents(ctx, cfg, warmScheduler, cronEng, httpSrv); err != nil {
		log.Fatal("Server error: %v", err)
	}
}

// runWithComponents wires the pieces and blocks until the context is
// cancelled or the HTTP server fails. Split from main so tests can drive it
// with fakes.
func runWithComponents(ctx context.Context, cfg *config.Config, warmScheduler scheduler, cronEng cronEngine, httpSrv httpServer) error {
	if warmScheduler != nil && cronEng != nil {
		if err := warmScheduler.Schedule(ctx); err != nil {
			return err
		}
		cronEng.Start()
		defer func() {
			<-cronEng.Stop().Done()
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		if err := httpSrv.Shutdown(context.Background()); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
