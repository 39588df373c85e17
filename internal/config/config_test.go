package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DATA_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "scribe", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.YtDlp.Bin != "yt-dlp" {
		t.Fatalf("unexpected ytdlp bin: %q", cfg.YtDlp.Bin)
	}
	if cfg.YtDlp.TimeoutSec != 180 {
		t.Fatalf("unexpected timeout: %d", cfg.YtDlp.TimeoutSec)
	}
	if cfg.Transcripts.AutoTextMaxBytes != 200000 {
		t.Fatalf("unexpected auto text max: %d", cfg.Transcripts.AutoTextMaxBytes)
	}
	if cfg.Transcripts.DefaultTTLSec != 3600 {
		t.Fatalf("unexpected default ttl: %d", cfg.Transcripts.DefaultTTLSec)
	}
	if cfg.Transcripts.DedupWindow != 6 {
		t.Fatalf("unexpected dedup window: %d", cfg.Transcripts.DedupWindow)
	}
	if cfg.InfoCache.TTLSec != 300 {
		t.Fatalf("unexpected info cache ttl: %d", cfg.InfoCache.TTLSec)
	}
	if cfg.Session.MaxItems != 0 || cfg.Session.MaxBytes != 0 {
		t.Fatalf("expected capacity limits disabled by default, got %d/%d",
			cfg.Session.MaxItems, cfg.Session.MaxBytes)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[ytdlp]
sub_lang = "de.*"
timeout_sec = 30

[session]
max_items = 5
max_bytes = 1048576

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.YtDlp.SubLang != "de.*" {
		t.Fatalf("unexpected sub lang: %q", cfg.YtDlp.SubLang)
	}
	if cfg.YtDlp.TimeoutSec != 30 {
		t.Fatalf("unexpected timeout: %d", cfg.YtDlp.TimeoutSec)
	}
	if cfg.Session.MaxItems != 5 {
		t.Fatalf("unexpected max items: %d", cfg.Session.MaxItems)
	}
	if cfg.Session.MaxBytes != 1048576 {
		t.Fatalf("unexpected max bytes: %d", cfg.Session.MaxBytes)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("YTDLP_BIN", "/opt/yt-dlp/yt-dlp")
	t.Setenv("TRANSCRIPT_TTL_SECONDS", "7200")
	t.Setenv("MAX_SESSION_ITEMS", "12")
	t.Setenv("DEFAULT_SESSION_ID", "shared")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.YtDlp.Bin != "/opt/yt-dlp/yt-dlp" {
		t.Fatalf("expected YTDLP_BIN override, got %q", cfg.YtDlp.Bin)
	}
	if cfg.Transcripts.DefaultTTLSec != 7200 {
		t.Fatalf("expected TTL override, got %d", cfg.Transcripts.DefaultTTLSec)
	}
	if cfg.Session.MaxItems != 12 {
		t.Fatalf("expected max items override, got %d", cfg.Session.MaxItems)
	}
	if cfg.Session.DefaultSessionID != "shared" {
		t.Fatalf("expected default session id override, got %q", cfg.Session.DefaultSessionID)
	}
}

func TestLegacyTTLEnvSpelling(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DEFAULT_TTL_SEC", "900")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcripts.DefaultTTLSec != 900 {
		t.Fatalf("expected legacy env to apply, got %d", cfg.Transcripts.DefaultTTLSec)
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for bad log format")
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Transcripts.DefaultTTLSec != 3600 {
		t.Fatalf("sample config should carry defaults, got ttl %d", cfg.Transcripts.DefaultTTLSec)
	}
}
