package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"pollchat/internal/config"
	"pollchat/internal/core"
	"pollchat/internal/filter"
	"pollchat/internal/httpapi"
	"pollchat/internal/media"
	"pollchat/internal/store"
)

// Version is injected at build time with -ldflags.
var Version = "0.1.0-dev"

func main() {
	configPath := flag.String("config", "", "Config file path (defaults to ./config.yaml if present)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging (auto-enabled for dev builds)")
	flag.Parse()

	// Auto-enable debug logging for dev builds; override with -debug flag.
	level := slog.LevelInfo
	if *debug || strings.Contains(Version, "dev") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	slog.Info("starting server", "version", Version, "addr", cfg.Server.Addr, "db", cfg.Store.DBPath)

	mediaStore, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		slog.Error("open sqlite store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := mediaStore.Close(); closeErr != nil {
			slog.Error("close sqlite store", "err", closeErr)
		}
	}()

	contentFilter := filter.New(cfg.Chat.BannedTerms)

	pipeline, err := media.NewPipeline(media.Config{
		ContentDir:       cfg.Media.ContentDir,
		ImageWidth:       cfg.Media.ImageWidth,
		JPEGQuality:      cfg.Media.JPEGQuality,
		TranscodeTimeout: cfg.Media.TranscodeTimeout,
	}, mediaStore, contentFilter, media.FFmpeg{Binary: cfg.Media.FFmpegPath})
	if err != nil {
		slog.Error("initialize media pipeline", "err", err)
		os.Exit(1)
	}

	registry := core.NewRegistry(cfg.Chat.MaxMessages)
	service := core.NewService(registry, contentFilter, core.SystemClock(), core.NewStamper(cfg.Chat.UTCOffsetMinutes))
	if err := service.EnsureRoom(cfg.Chat.DefaultRoom); err != nil {
		slog.Error("create default room", "room", cfg.Chat.DefaultRoom, "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := core.NewSweeper(service, cfg.Chat.SweepInterval, cfg.Chat.IdleTimeout)
	go sweeper.Run(ctx)

	server := httpapi.New(service, pipeline, httpapi.Options{
		ContentDir:     cfg.Media.ContentDir,
		EmotesDir:      cfg.Media.EmotesDir,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		slog.Info("received interrupt, shutting down")
		cancel()
	}()

	slog.Info("listening", "addr", cfg.Server.Addr)
	if err := server.Run(ctx, cfg.Server.Addr); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
