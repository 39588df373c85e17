package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/infocache"
	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/session"
	"scribe/internal/store"
	"scribe/internal/transcribe"
	"scribe/internal/ytdlp"
)

// services bundles the locally constructed service stack. The CLI runs
// operations in-process rather than talking to a daemon.
type services struct {
	transcriber *transcribe.Service
	sessions    *session.Service
	cache       *infocache.Cache
}

type commandContext struct {
	configFlag  *string
	sessionFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	servicesOnce sync.Once
	services     *services
	servicesErr  error
}

func newCommandContext(configFlag, sessionFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		sessionFlag: sessionFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureServices() (*services, error) {
	c.servicesOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.servicesErr = err
			return
		}

		// Command output goes to stdout; keep service logs quiet unless
		// the user raised the level for troubleshooting.
		logger, err := logging.New(logging.Options{
			Level:       cliLogLevel(cfg.Logging.Level),
			Format:      "console",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.servicesErr = fmt.Errorf("init logger: %w", err)
			return
		}

		st := store.New(cfg.Paths.DataDir)
		repo := manifest.NewRepository(st, logger, manifest.Options{
			DefaultTTL: time.Duration(cfg.Transcripts.DefaultTTLSec) * time.Second,
			MaxItems:   cfg.Session.MaxItems,
			MaxBytes:   cfg.Session.MaxBytes,
		})

		cache, err := infocache.Open(cfg.InfoCache.Path, time.Duration(cfg.InfoCache.TTLSec)*time.Second, logger)
		if err != nil {
			c.servicesErr = fmt.Errorf("open info cache: %w", err)
			return
		}

		fetcher := ytdlp.NewClient(ytdlp.Config{
			Bin:              cfg.YtDlp.Bin,
			PlayerClient:     cfg.YtDlp.PlayerClient,
			RemoteComponents: cfg.YtDlp.RemoteComponents,
			SubLang:          cfg.YtDlp.SubLang,
			Timeout:          time.Duration(cfg.YtDlp.TimeoutSec) * time.Second,
		}, logger)

		c.services = &services{
			transcriber: transcribe.NewService(fetcher, st, repo, cache, logger, transcribe.Options{
				AutoTextMaxBytes: cfg.Transcripts.AutoTextMaxBytes,
				DedupWindow:      cfg.Transcripts.DedupWindow,
			}),
			sessions: session.NewService(st, repo, logger),
			cache:    cache,
		}
	})
	return c.services, c.servicesErr
}

func (c *commandContext) sessionID() string {
	if c.sessionFlag != nil {
		if id := strings.TrimSpace(*c.sessionFlag); id != "" {
			return id
		}
	}
	if c.config != nil {
		if id := strings.TrimSpace(c.config.Session.DefaultSessionID); id != "" {
			return id
		}
	}
	return "default"
}

// cliLogLevel suppresses routine info logs that would interleave with
// command output. Debug requests are honored as-is.
func cliLogLevel(configured string) string {
	if strings.EqualFold(strings.TrimSpace(configured), "debug") {
		return "debug"
	}
	return "warn"
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
