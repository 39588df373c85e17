package transcribe

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"time"

	"scribe/internal/infocache"
	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/services"
	"scribe/internal/store"
	"scribe/internal/subtitles"
	"scribe/internal/ytdlp"
)

// Fetcher is the external download collaborator.
type Fetcher interface {
	FetchInfo(ctx context.Context, url string) (ytdlp.Info, error)
	FetchSubtitles(ctx context.Context, url string) (ytdlp.Subtitles, error)
}

// Metadata is the video metadata returned alongside transcription results.
type Metadata struct {
	Title          string  `json:"title,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	DurationString string  `json:"duration_string,omitempty"`
	IsLive         bool    `json:"is_live,omitempty"`
}

// AutoResult is the outcome of an auto-mode transcription. Kind is "text"
// when the transcript was returned inline and "file" when it was written to
// the session store.
type AutoResult struct {
	Kind  string
	Text  string
	Item  *manifest.Item
	Bytes int
	Info  Metadata
}

// Options configures a Service.
type Options struct {
	// AutoTextMaxBytes is the inline-text threshold for auto mode.
	AutoTextMaxBytes int
	// DedupWindow is the rolling dedupe window for cue normalization.
	// Values <= 0 disable rolling dedup (consecutive-only).
	DedupWindow int
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Service ingests transcripts into session storage.
type Service struct {
	fetcher    Fetcher
	store      *store.Store
	repo       *manifest.Repository
	cache      *infocache.Cache
	normalizer subtitles.Normalizer
	logger     *slog.Logger
	maxBytes   int
	now        func() time.Time
}

// NewService creates a transcription service. cache may be nil to disable
// metadata caching.
func NewService(fetcher Fetcher, st *store.Store, repo *manifest.Repository, cache *infocache.Cache, logger *slog.Logger, opts Options) *Service {
	if opts.AutoTextMaxBytes <= 0 {
		opts.AutoTextMaxBytes = 200000
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		fetcher:    fetcher,
		store:      st,
		repo:       repo,
		cache:      cache,
		normalizer: subtitles.Normalizer{Window: opts.DedupWindow},
		logger:     logging.NewComponentLogger(logger, "transcribe"),
		maxBytes:   opts.AutoTextMaxBytes,
		now:        clock,
	}
}

var urlPattern = regexp.MustCompile(`^https?://(www\.|m\.|music\.)?(youtube\.com/(watch\?|shorts/|live/)|youtu\.be/)\S+$`)

// ValidateURL rejects anything that does not look like a recognized video
// URL before any external call is made.
func ValidateURL(url string) error {
	if !urlPattern.MatchString(url) {
		return services.Wrap(services.ErrInvalidInput, "transcribe", "validate url",
			fmt.Sprintf("unrecognized video url %q", url), nil)
	}
	return nil
}

// Text downloads subtitles and returns the normalized transcript inline.
func (s *Service) Text(ctx context.Context, url string) (string, error) {
	if err := ValidateURL(url); err != nil {
		return "", err
	}
	return s.fetchText(ctx, url)
}

// ToFile downloads subtitles, serializes them in the requested format, and
// registers the result as a session item.
func (s *Service) ToFile(ctx context.Context, url, sessionID string, format manifest.Format) (manifest.Item, error) {
	if err := ValidateURL(url); err != nil {
		return manifest.Item{}, err
	}
	if !format.Valid() {
		return manifest.Item{}, services.Wrap(services.ErrInvalidInput, "transcribe", "to file",
			fmt.Sprintf("format must be one of txt, vtt, jsonl; got %q", format), nil)
	}

	subs, err := s.fetcher.FetchSubtitles(ctx, url)
	if err != nil {
		return manifest.Item{}, err
	}
	text := s.normalizer.Normalize(subs.VTT)
	if text == "" {
		return manifest.Item{}, s.emptyTranscript(subs.PickedFile)
	}
	return s.writeTranscript(url, sessionID, format, text, subs.VTT)
}

// Auto probes metadata first and picks inline text or file output based on
// the normalized transcript size. The metadata is returned either way.
func (s *Service) Auto(ctx context.Context, url, sessionID string, format manifest.Format) (AutoResult, error) {
	return s.AutoWithLimit(ctx, url, sessionID, format, s.maxBytes)
}

// AutoWithLimit is Auto with a per-call inline threshold override.
func (s *Service) AutoWithLimit(ctx context.Context, url, sessionID string, format manifest.Format, maxTextBytes int) (AutoResult, error) {
	if maxTextBytes < 1 {
		return AutoResult{}, services.Wrap(services.ErrInvalidInput, "transcribe", "auto",
			"max_text_bytes must be >= 1", nil)
	}
	if err := ValidateURL(url); err != nil {
		return AutoResult{}, err
	}
	if !format.Valid() {
		return AutoResult{}, services.Wrap(services.ErrInvalidInput, "transcribe", "auto",
			fmt.Sprintf("format must be one of txt, vtt, jsonl; got %q", format), nil)
	}

	info, err := s.info(ctx, url)
	if err != nil {
		return AutoResult{}, err
	}
	meta := Metadata{
		Title:          info.Title,
		Duration:       info.Duration,
		DurationString: info.DurationString,
		IsLive:         info.IsLive,
	}

	subs, err := s.fetcher.FetchSubtitles(ctx, url)
	if err != nil {
		return AutoResult{}, err
	}
	text := s.normalizer.Normalize(subs.VTT)
	if text == "" {
		return AutoResult{}, s.emptyTranscript(subs.PickedFile)
	}

	size := len(text)
	if size <= maxTextBytes {
		return AutoResult{Kind: "text", Text: text, Bytes: size, Info: meta}, nil
	}

	if sessionID == "" {
		return AutoResult{}, services.Wrap(services.ErrInvalidInput, "transcribe", "auto",
			"session id required for file output", nil)
	}
	item, err := s.writeTranscript(url, sessionID, format, text, subs.VTT)
	if err != nil {
		return AutoResult{}, err
	}
	return AutoResult{Kind: "file", Item: &item, Bytes: size, Info: meta}, nil
}

// Duration returns video metadata via the TTL cache.
func (s *Service) Duration(ctx context.Context, url string) (Metadata, error) {
	if err := ValidateURL(url); err != nil {
		return Metadata{}, err
	}
	info, err := s.info(ctx, url)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Title:          info.Title,
		Duration:       info.Duration,
		DurationString: info.DurationString,
		IsLive:         info.IsLive,
	}, nil
}

func (s *Service) fetchText(ctx context.Context, url string) (string, error) {
	subs, err := s.fetcher.FetchSubtitles(ctx, url)
	if err != nil {
		return "", err
	}
	text := s.normalizer.Normalize(subs.VTT)
	if text == "" {
		return "", s.emptyTranscript(subs.PickedFile)
	}
	return text, nil
}

func (s *Service) info(ctx context.Context, url string) (ytdlp.Info, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, url); ok {
			return ytdlp.Info{
				Title:          cached.Title,
				Duration:       cached.Duration,
				DurationString: cached.DurationString,
				IsLive:         cached.IsLive,
			}, nil
		}
	}
	info, err := s.fetcher.FetchInfo(ctx, url)
	if err != nil {
		return ytdlp.Info{}, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, infocache.Info{
			URL:            url,
			Title:          info.Title,
			Duration:       info.Duration,
			DurationString: info.DurationString,
			IsLive:         info.IsLive,
		})
	}
	return info, nil
}

func (s *Service) writeTranscript(url, sessionID string, format manifest.Format, text string, raw []byte) (manifest.Item, error) {
	data, err := serialize(format, text, raw)
	if err != nil {
		return manifest.Item{}, err
	}

	relPath := path.Join(store.TranscriptsDir, s.outputName(url)+"."+string(format))
	if _, err := s.store.Write(sessionID, relPath, data, false); err != nil {
		return manifest.Item{}, err
	}
	item, err := s.repo.Add(sessionID, manifest.AddSpec{
		Kind:    manifest.KindTranscript,
		Format:  format,
		RelPath: relPath,
	})
	if err != nil {
		return manifest.Item{}, err
	}
	s.logger.Info("transcript stored",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldItemID, item.ID),
		logging.String("relpath", relPath),
		logging.Int64("size", item.Size))
	return item, nil
}

// outputName builds a deterministic-but-unique base name: repeated
// ingestions of one URL share the digest and differ by timestamp.
func (s *Service) outputName(url string) string {
	sum := sha1.Sum([]byte(url))
	digest := hex.EncodeToString(sum[:])[:10]
	stamp := s.now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("youtube_%s_%s", digest, stamp)
}

func (s *Service) emptyTranscript(pickedFile string) error {
	return services.Wrap(services.ErrNoContent, "transcribe", "normalize",
		fmt.Sprintf("subtitle file %s was empty after normalization", pickedFile), nil)
}
