package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ependal/vidgate/config"
	"github.com/ependal/vidgate/internal/adapter/converter/ffmpeg"
	httpadapter "github.com/ependal/vidgate/internal/adapter/http"
	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	sqlitestore "github.com/ependal/vidgate/internal/adapter/storage/sqlite"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
	"github.com/ependal/vidgate/internal/service"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create data directory")
	}

	store, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to open record store")
	}
	defer func() { _ = store.Close() }()

	assetStore := assets.NewStore(cfg.DataDir)
	if err := assetStore.EnsureTempDir(); err != nil {
		log.WithError(err).Fatal("failed to create upload staging directory")
	}

	converter := ffmpeg.NewConverter(log)
	converter.OnProgress = func(id string, seconds float64) {
		log.WithField("video_id", id).WithField("seconds_done", seconds).Debug("transcode progress")
	}

	videoSvc := service.NewVideoService(store, converter, assetStore, log)
	authSvc := service.NewAuthService(cfg.JWTSecret)
	signer := service.NewSigner(cfg.URLSigningSecret, time.Duration(cfg.SignedURLTTLMinute)*time.Minute)

	handlers := httpadapter.NewHandlers(videoSvc, signer, assetStore.TempDir(), cfg.MaxUploadSizeMB, cfg.MaxThumbSizeMB, log)
	server := httpadapter.NewServer(handlers, authSvc, signer)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.WithField("signal", sig.String()).Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("http shutdown error")
		}
	}()

	log.WithField("addr", addr).Info("vidgate listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server failed")
	}
}
