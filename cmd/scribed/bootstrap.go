package main

import (
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/infocache"
	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/mcpserver"
	"scribe/internal/session"
	"scribe/internal/store"
	"scribe/internal/transcribe"
	"scribe/internal/ytdlp"
)

const version = "0.1.0"

// buildServer assembles the full service stack from configuration. The
// returned closer releases resources that outlive individual requests.
func buildServer(cfg *config.Config, logger *slog.Logger) (*mcpserver.Server, func(), error) {
	st := store.New(cfg.Paths.DataDir)

	repo := manifest.NewRepository(st, logger, manifest.Options{
		DefaultTTL: time.Duration(cfg.Transcripts.DefaultTTLSec) * time.Second,
		MaxItems:   cfg.Session.MaxItems,
		MaxBytes:   cfg.Session.MaxBytes,
	})

	cache, err := infocache.Open(cfg.InfoCache.Path, time.Duration(cfg.InfoCache.TTLSec)*time.Second, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open info cache: %w", err)
	}

	fetcher := ytdlp.NewClient(ytdlp.Config{
		Bin:              cfg.YtDlp.Bin,
		PlayerClient:     cfg.YtDlp.PlayerClient,
		RemoteComponents: cfg.YtDlp.RemoteComponents,
		SubLang:          cfg.YtDlp.SubLang,
		Timeout:          time.Duration(cfg.YtDlp.TimeoutSec) * time.Second,
	}, logger)

	transcriber := transcribe.NewService(fetcher, st, repo, cache, logger, transcribe.Options{
		AutoTextMaxBytes: cfg.Transcripts.AutoTextMaxBytes,
		DedupWindow:      cfg.Transcripts.DedupWindow,
	})
	sessions := session.NewService(st, repo, logger)

	srv := mcpserver.New(transcriber, sessions, logger, mcpserver.Options{
		Version:          version,
		DefaultSessionID: cfg.Session.DefaultSessionID,
		DefaultFormat:    manifest.FormatTxt,
		AutoTextMaxBytes: cfg.Transcripts.AutoTextMaxBytes,
	})

	closer := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close info cache", logging.Error(err))
		}
	}
	return srv, closer, nil
}
