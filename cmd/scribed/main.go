package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/logging"
)

func main() {
	stdio := flag.Bool("stdio", false, "serve MCP over stdio instead of HTTP")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: daemonLogPaths(cfg),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "scribed.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire instance lock", logging.Error(err))
		return
	}
	if !locked {
		logger.Error("another scribed instance is already running")
		return
	}
	defer lock.Unlock() //nolint:errcheck

	srv, closer, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("bootstrap services", logging.Error(err))
		return
	}
	defer closer()

	if *stdio {
		logger.Info("serving MCP over stdio")
		if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stdio server", logging.Error(err))
		}
		return
	}

	httpServer := &http.Server{
		Addr:              cfg.Paths.Bind,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", logging.Error(err))
		}
	}()

	logger.Info("serving MCP over HTTP", slog.String("bind", cfg.Paths.Bind))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", logging.Error(err))
	}
	logger.Info("scribed shutting down")
}

// daemonLogPaths writes to stderr and the log directory. Stdout stays
// clean because stdio mode uses it for the MCP wire protocol.
func daemonLogPaths(cfg *config.Config) []string {
	paths := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		paths = append(paths, filepath.Join(cfg.Paths.LogDir, "scribed.log"))
	}
	return paths
}
