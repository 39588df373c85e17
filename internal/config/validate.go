package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateYtDlp(); err != nil {
		return err
	}
	if err := c.validateTranscripts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	return nil
}

func (c *Config) validateYtDlp() error {
	if strings.TrimSpace(c.YtDlp.Bin) == "" {
		return fmt.Errorf("ytdlp.bin is required")
	}
	if c.YtDlp.TimeoutSec <= 0 {
		return fmt.Errorf("ytdlp.timeout_sec must be positive, got %d", c.YtDlp.TimeoutSec)
	}
	return nil
}

func (c *Config) validateTranscripts() error {
	if c.Transcripts.AutoTextMaxBytes < 1 {
		return fmt.Errorf("transcripts.auto_text_max_bytes must be >= 1, got %d", c.Transcripts.AutoTextMaxBytes)
	}
	if c.Transcripts.DefaultTTLSec < 1 {
		return fmt.Errorf("transcripts.default_ttl_sec must be >= 1, got %d", c.Transcripts.DefaultTTLSec)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
