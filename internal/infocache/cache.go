package infocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/logging"
)

// Info is a cached metadata probe for one video URL.
type Info struct {
	URL            string
	Title          string
	Duration       float64
	DurationString string
	IsLive         bool
	FetchedAt      time.Time
}

// Cache is a TTL cache over metadata probes. All methods are safe for
// concurrent use.
type Cache struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	mem map[string]Info
	db  *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS video_info (
    url TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    duration REAL NOT NULL DEFAULT 0,
    duration_string TEXT NOT NULL DEFAULT '',
    is_live INTEGER NOT NULL DEFAULT 0,
    fetched_at TEXT NOT NULL
)`

// Open creates a cache. An empty path keeps the cache in memory only;
// otherwise entries are mirrored to a SQLite database at path.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if ttl <= 0 {
		return nil, errors.New("info cache ttl must be positive")
	}
	c := &Cache{
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "infocache"),
		now:    time.Now,
		mem:    make(map[string]Info),
	}
	if path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create video_info table: %w", err)
	}
	c.db = db
	return c, nil
}

// Close releases the backing database, if any.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns a fresh cached entry for the URL. Stale entries count as
// misses and are pruned lazily.
func (c *Cache) Get(ctx context.Context, url string) (Info, bool) {
	now := c.now().UTC()

	c.mu.Lock()
	if info, ok := c.mem[url]; ok {
		if c.fresh(info, now) {
			c.mu.Unlock()
			return info, true
		}
		delete(c.mem, url)
	}
	c.mu.Unlock()

	if c.db == nil {
		return Info{}, false
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT url, title, duration, duration_string, is_live, fetched_at FROM video_info WHERE url = ?`, url)
	info, err := scanInfo(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("info cache read failed", logging.String("url", url), logging.Error(err))
		}
		return Info{}, false
	}
	if !c.fresh(info, now) {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM video_info WHERE url = ?`, url); err != nil {
			c.logger.Warn("prune stale entry failed", logging.String("url", url), logging.Error(err))
		}
		return Info{}, false
	}

	c.mu.Lock()
	c.mem[url] = info
	c.mu.Unlock()
	return info, true
}

// Put stores a probe result, stamping it with the current time.
func (c *Cache) Put(ctx context.Context, info Info) {
	info.FetchedAt = c.now().UTC()

	c.mu.Lock()
	c.mem[info.URL] = info
	c.mu.Unlock()

	if c.db == nil {
		return
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO video_info (url, title, duration, duration_string, is_live, fetched_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(url) DO UPDATE SET
             title = excluded.title,
             duration = excluded.duration,
             duration_string = excluded.duration_string,
             is_live = excluded.is_live,
             fetched_at = excluded.fetched_at`,
		info.URL,
		info.Title,
		info.Duration,
		info.DurationString,
		boolToInt(info.IsLive),
		info.FetchedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		c.logger.Warn("info cache write failed", logging.String("url", info.URL), logging.Error(err))
	}
}

// Prune drops every expired entry from memory and the database.
func (c *Cache) Prune(ctx context.Context) {
	now := c.now().UTC()

	c.mu.Lock()
	for url, info := range c.mem {
		if !c.fresh(info, now) {
			delete(c.mem, url)
		}
	}
	c.mu.Unlock()

	if c.db == nil {
		return
	}
	cutoff := now.Add(-c.ttl).Format(time.RFC3339Nano)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM video_info WHERE fetched_at < ?`, cutoff); err != nil {
		c.logger.Warn("prune expired entries failed", logging.Error(err))
	}
}

func (c *Cache) fresh(info Info, now time.Time) bool {
	return now.Sub(info.FetchedAt) < c.ttl
}

func scanInfo(row *sql.Row) (Info, error) {
	var (
		info      Info
		isLive    int64
		fetchedAt string
	)
	if err := row.Scan(&info.URL, &info.Title, &info.Duration, &info.DurationString, &isLive, &fetchedAt); err != nil {
		return Info{}, err
	}
	info.IsLive = isLive != 0
	parsed, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return Info{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	info.FetchedAt = parsed
	return info, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
