package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voicebridge/gateway/internal/ai"
	"github.com/voicebridge/gateway/internal/auth"
	"github.com/voicebridge/gateway/internal/convo"
	"github.com/voicebridge/gateway/internal/pipeline"
	"github.com/voicebridge/gateway/internal/profile"
	"github.com/voicebridge/gateway/internal/progress"
	"github.com/voicebridge/gateway/internal/session"
	"github.com/voicebridge/gateway/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file", "error", err)
	}

	cfg := loadConfig()

	// AI service adapter
	transcriber := ai.NewTranscriptionClient(cfg.speechURL, cfg.speechAPIKey, cfg.speechModel, cfg.aiPoolSize)
	analyzer := ai.NewAnalysisClient(cfg.analysisURL, cfg.analysisKey, cfg.analysisModel, cfg.maxTokens, cfg.aiPoolSize)
	images := ai.NewImageClient(cfg.imageAPIKey, cfg.imageBaseURL, cfg.imageModel, cfg.aiPoolSize)
	artwork := ai.NewArtworkClient(cfg.analysisURL, cfg.analysisKey, cfg.analysisModel, images, cfg.aiPoolSize)

	// Session store
	var storeOpts []session.StoreOption
	storeType := session.StoreType(cfg.sessionStore)
	if storeType == session.StoreTypeRedis {
		storeOpts = append(storeOpts, session.WithRedisClient(redis.NewClient(&redis.Options{Addr: cfg.redisAddr})))
	}
	sessionStore, err := session.NewStore(storeType, storeOpts...)
	if err != nil {
		slog.Error("session store init failed", "type", cfg.sessionStore, "error", err)
		os.Exit(1)
	}

	// Progress persistence is optional; without it session ends still work,
	// they just leave no durable aggregates.
	var progressStore *progress.Store
	var recorder *session.Recorder
	if cfg.progressDSN != "" {
		progressStore, err = progress.Open(cfg.progressDSN)
		if err != nil {
			slog.Error("progress store init failed", "error", err)
			os.Exit(1)
		}
		recorder = session.NewRecorder(progressStore, artwork)
		slog.Info("progress persistence enabled")
	} else {
		slog.Warn("PROGRESS_DSN unset, daily progress and artwork disabled")
	}

	sessions := session.NewManager(sessionStore, recorder)

	contextStore := convo.NewStore()
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go contextStore.Run(sweepCtx)

	turns := pipeline.New(pipeline.Config{
		Transcriber: transcriber,
		Analyzer:    analyzer,
		VisualAids:  images,
		Profiles:    profile.NewClient(cfg.profileURL, cfg.aiPoolSize),
		Context:     contextStore,
		Sessions:    sessions,
	})

	handler := ws.NewHandler(ws.HandlerConfig{
		Turns:         turns,
		Auth:          auth.NewClient(cfg.authURL, cfg.aiPoolSize),
		Sessions:      sessions,
		Registry:      ws.NewRegistry(),
		MaxConcurrent: cfg.maxConnections,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		wsHandler:     handler,
		progressStore: progressStore,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stopSweep()
		srv.Shutdown(ctx)

		recorder.Close()
		if progressStore != nil {
			progressStore.Close()
		}
		sessionStore.Close()
	}()

	slog.Info("gateway starting", "addr", addr, "max_connections", cfg.maxConnections, "session_store", cfg.sessionStore)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}
