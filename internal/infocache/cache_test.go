package infocache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/logging"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache, err := Open("", 5*time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	if _, ok := cache.Get(ctx, "https://youtu.be/abc"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	cache.Put(ctx, Info{URL: "https://youtu.be/abc", Title: "Talk", Duration: 120, DurationString: "2:00"})
	got, ok := cache.Get(ctx, "https://youtu.be/abc")
	if !ok {
		t.Fatal("Get after Put missed")
	}
	if got.Title != "Talk" || got.Duration != 120 {
		t.Fatalf("got %+v", got)
	}
}

func TestEntriesExpire(t *testing.T) {
	cache, err := Open("", time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	cache.Put(ctx, Info{URL: "u", Duration: 7})

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get(ctx, "u"); ok {
		t.Fatal("expired entry reported fresh")
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.db")
	ctx := context.Background()

	cache, err := Open(path, time.Hour, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cache.Put(ctx, Info{URL: "u", Title: "Persisted", Duration: 33, DurationString: "0:33", IsLive: true})
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, time.Hour, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get(ctx, "u")
	if !ok {
		t.Fatal("entry lost across reopen")
	}
	if got.Title != "Persisted" || !got.IsLive || got.DurationString != "0:33" {
		t.Fatalf("got %+v", got)
	}
}

func TestPruneDropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.db")
	ctx := context.Background()

	cache, err := Open(path, time.Minute, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Put(ctx, Info{URL: "old"})
	now = now.Add(30 * time.Second)
	cache.Put(ctx, Info{URL: "new"})

	now = now.Add(45 * time.Second)
	cache.Prune(ctx)

	if _, ok := cache.Get(ctx, "old"); ok {
		t.Fatal("pruned entry still served")
	}
	if _, ok := cache.Get(ctx, "new"); !ok {
		t.Fatal("fresh entry lost in prune")
	}
}
