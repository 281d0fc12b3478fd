package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/picture-gallery/internal/app"
	"github.com/samvad-hq/picture-gallery/internal/config"
	"github.com/samvad-hq/picture-gallery/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gallery start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("gallery config loaded", "config", map[string]any{
		"app_name":     cfg.AppName,
		"env":          cfg.Env,
		"api_base_url": cfg.APIBaseURL,
		"listen_addr":  cfg.ListenAddr,
		"storage_type": cfg.StorageType,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gallery, err := app.NewGallery(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize gallery", "error", err)
		return err
	}

	if err := gallery.Run(ctx); err != nil {
		return fmt.Errorf("gallery run: %w", err)
	}

	return nil
}
