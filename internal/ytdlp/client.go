package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// Config holds the invocation parameters for the yt-dlp binary.
type Config struct {
	Bin              string
	PlayerClient     string
	RemoteComponents string
	SubLang          string
	Timeout          time.Duration
}

// Info is the metadata subset extracted from a --dump-json probe.
type Info struct {
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
	DurationString string  `json:"duration_string"`
	IsLive         bool    `json:"is_live"`
}

// Subtitles is the result of a subtitle download.
type Subtitles struct {
	// VTT is the raw content of the picked subtitle file.
	VTT []byte
	// PickedFile is the base name of the chosen file, for diagnostics.
	PickedFile string
}

// Client invokes yt-dlp.
type Client struct {
	cfg           Config
	pref          language.Preference
	logger        *slog.Logger
	commandRunner func(ctx context.Context, workDir, name string, args ...string) ([]byte, error)
}

// NewClient creates a yt-dlp client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Bin == "" {
		cfg.Bin = "yt-dlp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	return &Client{
		cfg:    cfg,
		pref:   language.ParsePreference(cfg.SubLang),
		logger: logging.NewComponentLogger(logger, "ytdlp"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner func(ctx context.Context, workDir, name string, args ...string) ([]byte, error)) {
	c.commandRunner = runner
}

// FetchInfo probes a URL for metadata without downloading anything.
func (c *Client) FetchInfo(ctx context.Context, url string) (Info, error) {
	output, err := c.run(ctx, "", c.buildInfoArgs(url)...)
	if err != nil {
		return Info{}, services.Wrap(services.ErrExternalTool, "ytdlp", "fetch info",
			fmt.Sprintf("metadata probe for %s", url), err)
	}

	line, ok := lastJSONLine(output)
	if !ok {
		return Info{}, services.Wrap(services.ErrExternalTool, "ytdlp", "fetch info",
			fmt.Sprintf("no JSON document in output: %s", tail(output)), nil)
	}
	var info Info
	if err := json.Unmarshal([]byte(line), &info); err != nil {
		return Info{}, services.Wrap(services.ErrExternalTool, "ytdlp", "fetch info",
			"parse metadata JSON", err)
	}
	return info, nil
}

// FetchSubtitles downloads auto-generated subtitles for a URL into a
// temporary directory and returns the best-matching track. The temporary
// directory is removed before returning.
func (c *Client) FetchSubtitles(ctx context.Context, url string) (Subtitles, error) {
	workDir, err := os.MkdirTemp("", "scribe-subs-")
	if err != nil {
		return Subtitles{}, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	output, err := c.run(ctx, workDir, c.buildSubsArgs(url, workDir)...)
	if err != nil {
		return Subtitles{}, services.Wrap(services.ErrExternalTool, "ytdlp", "fetch subtitles",
			fmt.Sprintf("subtitle download for %s", url), err)
	}

	names, err := filepath.Glob(filepath.Join(workDir, "*.vtt"))
	if err != nil {
		return Subtitles{}, fmt.Errorf("glob subtitle files: %w", err)
	}
	picked := pickSubtitleFile(names, c.pref)
	if picked == "" {
		return Subtitles{}, services.Wrap(services.ErrNoSubtitles, "ytdlp", "fetch subtitles",
			fmt.Sprintf("no subtitle files produced: %s", tail(output)), nil)
	}

	data, err := os.ReadFile(picked)
	if err != nil {
		return Subtitles{}, fmt.Errorf("read subtitle file: %w", err)
	}
	c.logger.Debug("picked subtitle track",
		logging.String("url", url),
		logging.String("file", filepath.Base(picked)))
	return Subtitles{VTT: data, PickedFile: filepath.Base(picked)}, nil
}

func (c *Client) buildInfoArgs(url string) []string {
	return append(c.commonArgs(),
		"--skip-download",
		"--no-progress",
		"--no-playlist",
		"--dump-json",
		url,
	)
}

func (c *Client) buildSubsArgs(url, workDir string) []string {
	return append(c.commonArgs(),
		"--write-auto-subs",
		"--sub-lang", c.cfg.SubLang,
		"--skip-download",
		"--no-progress",
		"--paths", workDir,
		url,
	)
}

func (c *Client) commonArgs() []string {
	args := make([]string, 0, 8)
	if c.cfg.RemoteComponents != "" {
		args = append(args, "--remote-components", c.cfg.RemoteComponents)
	}
	if c.cfg.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+c.cfg.PlayerClient)
	}
	return args
}

// run executes yt-dlp with stderr folded into stdout, using the custom
// runner if set.
func (c *Client) run(ctx context.Context, workDir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.commandRunner != nil {
		return c.commandRunner(ctx, workDir, c.cfg.Bin, args...)
	}

	cmd := exec.CommandContext(ctx, c.cfg.Bin, args...)
	cmd.Dir = workDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s timed out after %s: %w", c.cfg.Bin, c.cfg.Timeout, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", c.cfg.Bin, err, tail(output))
	}
	return output, nil
}

// pickSubtitleFile chooses among downloaded .vtt files. Tracks whose
// filename language code matches the preference win; within a code the
// lexically last file is taken, and with no preference match at all the
// last file overall is the fallback.
func pickSubtitleFile(names []string, pref language.Preference) string {
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	lastByCode := make(map[string]string, len(names))
	codes := make([]string, 0, len(names))
	for _, name := range names {
		code := trackCode(name)
		if code == "" {
			continue
		}
		if _, seen := lastByCode[code]; !seen {
			codes = append(codes, code)
		}
		lastByCode[code] = name
	}

	if picked, ok := pref.PickTrack(codes); ok {
		return lastByCode[picked]
	}
	return names[len(names)-1]
}

// trackCode extracts the language code from names like "Title.en-US.vtt".
func trackCode(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), ".vtt")
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return base[idx+1:]
}

func lastJSONLine(output []byte) (string, bool) {
	lines := strings.Split(string(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			return line, true
		}
	}
	return "", false
}

// tail trims captured output for error messages.
func tail(output []byte) string {
	const limit = 2000
	text := strings.TrimSpace(string(output))
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	return text
}
