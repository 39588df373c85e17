package manifest

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"scribe/internal/ident"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/store"
)

type fixture struct {
	repo  *Repository
	store *store.Store
	now   time.Time
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		store: store.New(t.TempDir()),
		now:   time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	opts.Clock = func() time.Time { return f.now }
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = time.Hour
	}
	f.repo = NewRepository(f.store, logging.NewNop(), opts)
	return f
}

func (f *fixture) writeFile(t *testing.T, sessionID, relPath, content string) {
	t.Helper()
	if _, err := f.store.Write(sessionID, relPath, []byte(content), false); err != nil {
		t.Fatalf("Write(%s): %v", relPath, err)
	}
}

func (f *fixture) addItem(t *testing.T, sessionID, relPath, content string, spec AddSpec) Item {
	t.Helper()
	f.writeFile(t, sessionID, relPath, content)
	spec.RelPath = relPath
	if spec.Kind == "" {
		spec.Kind = KindTranscript
	}
	if spec.Format == "" {
		spec.Format = FormatTxt
	}
	item, err := f.repo.Add(sessionID, spec)
	if err != nil {
		t.Fatalf("Add(%s): %v", relPath, err)
	}
	return item
}

func TestAddRegistersItem(t *testing.T) {
	f := newFixture(t, Options{})

	item := f.addItem(t, "default", "transcripts/a.txt", "hello", AddSpec{})

	if !strings.HasPrefix(item.ID, ident.ItemIDPrefix) {
		t.Fatalf("item id %q missing %q prefix", item.ID, ident.ItemIDPrefix)
	}
	if item.Size != 5 {
		t.Fatalf("size = %d, want 5", item.Size)
	}
	if item.ExpiresAt == nil {
		t.Fatal("unpinned item has no expiry")
	}
	wantExpiry := f.now.Add(time.Hour)
	if !item.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", item.ExpiresAt, wantExpiry)
	}

	// Reload from disk through a fresh repository.
	other := NewRepository(f.store, logging.NewNop(), Options{DefaultTTL: time.Hour})
	got, err := other.Find("default", item.ID)
	if err != nil {
		t.Fatalf("Find after reload: %v", err)
	}
	if got.RelPath != "transcripts/a.txt" || got.Kind != KindTranscript {
		t.Fatalf("reloaded item = %+v", got)
	}
}

func TestAddPinnedHasNoExpiry(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{Pinned: true})
	if item.ExpiresAt != nil {
		t.Fatalf("pinned item has expiry %v", item.ExpiresAt)
	}
}

func TestAddMissingBackingFile(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.repo.Add("default", AddSpec{Kind: KindTranscript, Format: FormatTxt, RelPath: "transcripts/nope.txt"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddOverItemCapacityRollsBack(t *testing.T) {
	f := newFixture(t, Options{MaxItems: 1})
	f.addItem(t, "default", "transcripts/a.txt", "one", AddSpec{})

	f.writeFile(t, "default", "transcripts/b.txt", "two")
	_, err := f.repo.Add("default", AddSpec{Kind: KindTranscript, Format: FormatTxt, RelPath: "transcripts/b.txt"})
	if !errors.Is(err, services.ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}

	path, _ := f.store.Resolve("default", "transcripts/b.txt")
	if f.store.Exists(path) {
		t.Fatal("rejected file was not rolled back")
	}
	items, err := f.repo.List("default", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
}

func TestAddOverByteCapacityRollsBack(t *testing.T) {
	f := newFixture(t, Options{MaxBytes: 5})
	f.addItem(t, "default", "transcripts/a.txt", "1234", AddSpec{})

	f.writeFile(t, "default", "transcripts/b.txt", "56789")
	_, err := f.repo.Add("default", AddSpec{Kind: KindTranscript, Format: FormatTxt, RelPath: "transcripts/b.txt"})
	if !errors.Is(err, services.ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
}

func TestSetPinnedTogglesExpiry(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{})

	pinned, err := f.repo.SetPinned("default", item.ID, true)
	if err != nil {
		t.Fatalf("SetPinned(true): %v", err)
	}
	if !pinned.Pinned || pinned.ExpiresAt != nil {
		t.Fatalf("after pin: pinned=%v expires=%v", pinned.Pinned, pinned.ExpiresAt)
	}

	f.now = f.now.Add(10 * time.Minute)
	unpinned, err := f.repo.SetPinned("default", item.ID, false)
	if err != nil {
		t.Fatalf("SetPinned(false): %v", err)
	}
	want := f.now.Add(time.Hour)
	if unpinned.ExpiresAt == nil || !unpinned.ExpiresAt.Equal(want) {
		t.Fatalf("after unpin expiry = %v, want %v", unpinned.ExpiresAt, want)
	}
}

func TestSetTTL(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{Pinned: true})

	updated, err := f.repo.SetTTL("default", item.ID, 2*time.Hour)
	if err != nil {
		t.Fatalf("SetTTL: %v", err)
	}
	if updated.Pinned {
		t.Fatal("SetTTL left item pinned")
	}
	want := f.now.Add(2 * time.Hour)
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", updated.ExpiresAt, want)
	}

	if _, err := f.repo.SetTTL("default", item.ID, 0); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("SetTTL(0) err = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveDeletesFileAndEntry(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{})
	path, _ := f.store.Resolve("default", "transcripts/a.txt")

	if err := f.repo.Remove("default", item.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.store.Exists(path) {
		t.Fatal("backing file still exists")
	}
	if err := f.repo.Remove("default", item.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second Remove err = %v, want ErrNotFound", err)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	f := newFixture(t, Options{})
	expiring := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{TTL: time.Minute})
	kept := f.addItem(t, "default", "transcripts/b.txt", "y", AddSpec{Pinned: true})

	f.now = f.now.Add(2 * time.Minute)
	removed, err := f.repo.CleanupExpired("default")
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(removed) != 1 || removed[0] != expiring.ID {
		t.Fatalf("removed = %v, want [%s]", removed, expiring.ID)
	}

	path, _ := f.store.Resolve("default", "transcripts/a.txt")
	if f.store.Exists(path) {
		t.Fatal("expired backing file still exists")
	}
	if _, err := f.repo.Find("default", kept.ID); err != nil {
		t.Fatalf("pinned item gone: %v", err)
	}
}

func TestCleanupRemovesEntriesWithMissingFiles(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{})

	path, _ := f.store.Resolve("default", "transcripts/a.txt")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}

	removed, err := f.repo.CleanupExpired("default")
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(removed) != 1 || removed[0] != item.ID {
		t.Fatalf("removed = %v, want [%s]", removed, item.ID)
	}
}

func TestCleanupBackfillsMissingExpiry(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "x", AddSpec{})

	// Simulate an older manifest written before expiry tracking.
	m, err := f.repo.Load("default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Items[0].ExpiresAt = nil
	if err := f.repo.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := f.repo.CleanupExpired("default"); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	got, err := f.repo.Find("default", item.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := f.now.Add(time.Hour)
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(want) {
		t.Fatalf("backfilled expiry = %v, want %v", got.ExpiresAt, want)
	}
}

func TestCleanupRefreshesDriftedSize(t *testing.T) {
	f := newFixture(t, Options{})
	item := f.addItem(t, "default", "transcripts/a.txt", "short", AddSpec{})

	path, _ := f.store.Resolve("default", "transcripts/a.txt")
	if err := os.WriteFile(path, []byte("much longer content"), 0o644); err != nil {
		t.Fatalf("rewrite backing file: %v", err)
	}

	if _, err := f.repo.CleanupExpired("default"); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	got, err := f.repo.Find("default", item.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Size != int64(len("much longer content")) {
		t.Fatalf("size = %d, want %d", got.Size, len("much longer content"))
	}
}

func TestCleanupEvictsOldestUnpinnedOverCapacity(t *testing.T) {
	f := newFixture(t, Options{MaxItems: 2})

	oldest := f.addItem(t, "default", "transcripts/a.txt", "a", AddSpec{})
	f.now = f.now.Add(time.Minute)
	pinned := f.addItem(t, "default", "transcripts/b.txt", "b", AddSpec{Pinned: true})

	// Force an over-capacity state the way a lowered limit would.
	f.now = f.now.Add(time.Minute)
	f.writeFile(t, "default", "transcripts/c.txt", "c")
	m, err := f.repo.Load("default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	expires := f.now.Add(time.Hour)
	m.Items = append(m.Items, Item{
		ID:        "tr_manual",
		Kind:      KindTranscript,
		Format:    FormatTxt,
		RelPath:   "transcripts/c.txt",
		Size:      1,
		CreatedAt: f.now,
		ExpiresAt: &expires,
	})
	if err := f.repo.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	removed, err := f.repo.CleanupExpired("default")
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(removed) != 1 || removed[0] != oldest.ID {
		t.Fatalf("removed = %v, want [%s]", removed, oldest.ID)
	}
	if _, err := f.repo.Find("default", pinned.ID); err != nil {
		t.Fatalf("pinned item evicted: %v", err)
	}
}

func TestLoadCorruptManifestStartsEmpty(t *testing.T) {
	f := newFixture(t, Options{})
	path, err := f.store.ManifestPath("default")
	if err != nil {
		t.Fatalf("ManifestPath: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt manifest: %v", err)
	}

	m, err := f.repo.Load("default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Items) != 0 {
		t.Fatalf("len(items) = %d, want 0", len(m.Items))
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, Options{})
	f.addItem(t, "default", "transcripts/a.txt", "a", AddSpec{})
	f.addItem(t, "default", "derived/notes.txt", "b", AddSpec{Kind: KindDerived})
	f.addItem(t, "default", "transcripts/c.vtt", "c", AddSpec{Format: FormatVtt, Pinned: true})

	kind := KindTranscript
	items, err := f.repo.List("default", Filter{Kind: &kind})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("kind filter matched %d items, want 2", len(items))
	}

	pinned := true
	items, err = f.repo.List("default", Filter{Pinned: &pinned})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Format != FormatVtt {
		t.Fatalf("pinned filter = %+v, want the vtt item", items)
	}
}

func TestInvalidSessionID(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.repo.Load("../escape"); !errors.Is(err, services.ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
}
