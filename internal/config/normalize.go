package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeYtDlp()
	c.normalizeTranscripts()
	c.normalizeSession()
	if err := c.normalizeInfoCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = value
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeYtDlp() {
	if value, ok := os.LookupEnv("YTDLP_BIN"); ok && strings.TrimSpace(value) != "" {
		c.YtDlp.Bin = value
	}
	if value, ok := os.LookupEnv("YTDLP_PLAYER_CLIENT"); ok && strings.TrimSpace(value) != "" {
		c.YtDlp.PlayerClient = value
	}
	if value, ok := os.LookupEnv("YTDLP_REMOTE_EJS"); ok && strings.TrimSpace(value) != "" {
		c.YtDlp.RemoteComponents = value
	}
	if value, ok := os.LookupEnv("YTDLP_SUB_LANG"); ok && strings.TrimSpace(value) != "" {
		c.YtDlp.SubLang = value
	}
	if value := envInt("YTDLP_TIMEOUT_SEC"); value > 0 {
		c.YtDlp.TimeoutSec = value
	}

	c.YtDlp.Bin = strings.TrimSpace(c.YtDlp.Bin)
	if c.YtDlp.Bin == "" {
		c.YtDlp.Bin = defaultYtDlpBin
	}
	if c.YtDlp.TimeoutSec <= 0 {
		c.YtDlp.TimeoutSec = defaultTimeoutSec
	}
	if strings.TrimSpace(c.YtDlp.SubLang) == "" {
		c.YtDlp.SubLang = defaultSubLang
	}
}

func (c *Config) normalizeTranscripts() {
	if value := envInt("AUTO_TEXT_MAX_BYTES"); value > 0 {
		c.Transcripts.AutoTextMaxBytes = value
	}
	// TRANSCRIPT_TTL_SECONDS is the documented name; DEFAULT_TTL_SEC is an
	// accepted legacy spelling.
	if value := envInt("TRANSCRIPT_TTL_SECONDS"); value > 0 {
		c.Transcripts.DefaultTTLSec = value
	} else if value := envInt("DEFAULT_TTL_SEC"); value > 0 {
		c.Transcripts.DefaultTTLSec = value
	}

	if c.Transcripts.AutoTextMaxBytes <= 0 {
		c.Transcripts.AutoTextMaxBytes = defaultAutoTextMaxBytes
	}
	if c.Transcripts.DefaultTTLSec <= 0 {
		c.Transcripts.DefaultTTLSec = defaultTTLSec
	}
}

func (c *Config) normalizeSession() {
	if value, ok := os.LookupEnv("MAX_SESSION_ITEMS"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Session.MaxItems = parsed
		}
	}
	if value, ok := os.LookupEnv("MAX_SESSION_BYTES"); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			c.Session.MaxBytes = parsed
		}
	}
	if value, ok := os.LookupEnv("DEFAULT_SESSION_ID"); ok && strings.TrimSpace(value) != "" {
		c.Session.DefaultSessionID = strings.TrimSpace(value)
	}

	if c.Session.MaxItems < 0 {
		c.Session.MaxItems = 0
	}
	if c.Session.MaxBytes < 0 {
		c.Session.MaxBytes = 0
	}
}

func (c *Config) normalizeInfoCache() error {
	if value := envInt("YTDLP_INFO_CACHE_TTL_SEC"); value > 0 {
		c.InfoCache.TTLSec = value
	}
	if c.InfoCache.TTLSec < 0 {
		c.InfoCache.TTLSec = 0
	}
	if strings.TrimSpace(c.InfoCache.Path) != "" {
		expanded, err := expandPath(c.InfoCache.Path)
		if err != nil {
			return fmt.Errorf("info_cache.path: %w", err)
		}
		c.InfoCache.Path = expanded
	} else {
		c.InfoCache.Path = ""
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envInt(name string) int {
	value, ok := os.LookupEnv(name)
	if !ok {
		return 0
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return parsed
}
