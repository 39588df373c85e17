package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/ident"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/store"
)

const lockFileName = "manifest.lock"

// Options configures a Repository.
type Options struct {
	// DefaultTTL applies to unpinned items created without an explicit TTL.
	DefaultTTL time.Duration
	// MaxItems caps the number of items per session; 0 disables the limit.
	MaxItems int
	// MaxBytes caps the cumulative item size per session; 0 disables it.
	MaxBytes int64
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Repository is the single logical owner of each session's item collection.
type Repository struct {
	store      *store.Store
	logger     *slog.Logger
	defaultTTL time.Duration
	maxItems   int
	maxBytes   int64
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionLock
}

type sessionLock struct {
	mu sync.Mutex
	fl *flock.Flock
}

// NewRepository creates a repository over the given content store.
func NewRepository(st *store.Store, logger *slog.Logger, opts Options) *Repository {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Repository{
		store:      st,
		logger:     logging.NewComponentLogger(logger, "manifest"),
		defaultTTL: opts.DefaultTTL,
		maxItems:   opts.MaxItems,
		maxBytes:   opts.MaxBytes,
		now:        clock,
		sessions:   make(map[string]*sessionLock),
	}
}

// DefaultTTL returns the TTL applied to unpinned items.
func (r *Repository) DefaultTTL() time.Duration {
	return r.defaultTTL
}

// Load reads a session's manifest, creating an empty one in memory if none
// is persisted yet. A corrupt manifest file degrades to an empty manifest;
// individual malformed item records are skipped.
func (r *Repository) Load(sessionID string) (*Manifest, error) {
	sid, err := ident.ValidateSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	path, err := r.store.ManifestPath(sid)
	if err != nil {
		return nil, err
	}

	m := &Manifest{SessionID: sid, CreatedAt: r.timestamp()}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var decoded Manifest
	if err := json.Unmarshal(data, &decoded); err != nil {
		r.logger.Warn("manifest unreadable, starting empty",
			logging.String(logging.FieldSessionID, sid),
			logging.Error(err))
		return m, nil
	}

	m.Items = decoded.Items
	if !decoded.CreatedAt.IsZero() {
		m.CreatedAt = decoded.CreatedAt
	}
	return m, nil
}

// Save persists a manifest atomically: the document is written to a
// temporary file in the same directory and renamed over the previous one, so
// readers never observe a partial manifest.
func (r *Repository) Save(m *Manifest) error {
	path, err := r.store.ManifestPath(m.SessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// AddSpec describes a new item to register.
type AddSpec struct {
	Kind    Kind
	Format  Format
	RelPath string
	Pinned  bool
	// TTL overrides the repository default for this item; 0 uses default.
	TTL time.Duration
}

// Add registers an already-written file as a manifest item. The backing file
// must exist so its size can be recorded. On capacity rejection the backing
// file is rolled back (deleted) and no manifest entry remains.
func (r *Repository) Add(sessionID string, spec AddSpec) (Item, error) {
	if !spec.Kind.Valid() {
		return Item{}, services.Wrap(services.ErrInvalidInput, "manifest", "add",
			fmt.Sprintf("unknown item kind %q", spec.Kind), nil)
	}

	var added Item
	err := r.withSession(sessionID, func(m *Manifest) (bool, error) {
		r.reconcile(m)

		path, err := r.store.Resolve(m.SessionID, spec.RelPath)
		if err != nil {
			return false, err
		}
		size, err := r.store.SizeOf(path)
		if err != nil {
			return false, err
		}

		if r.maxItems > 0 && len(m.Items)+1 > r.maxItems {
			r.rollback(path)
			return true, services.Wrap(services.ErrCapacity, "manifest", "add",
				fmt.Sprintf("session holds %d of %d items", len(m.Items), r.maxItems), nil)
		}
		if r.maxBytes > 0 && m.TotalSize()+size > r.maxBytes {
			r.rollback(path)
			return true, services.Wrap(services.ErrCapacity, "manifest", "add",
				fmt.Sprintf("session would hold %d of %d bytes", m.TotalSize()+size, r.maxBytes), nil)
		}

		ttl := spec.TTL
		if ttl <= 0 {
			ttl = r.defaultTTL
		}
		now := r.timestamp()
		added = Item{
			ID:        ident.NewItemID(),
			Kind:      spec.Kind,
			Format:    spec.Format,
			RelPath:   spec.RelPath,
			Size:      size,
			CreatedAt: now,
			Pinned:    spec.Pinned,
		}
		if !spec.Pinned {
			expires := now.Add(ttl)
			added.ExpiresAt = &expires
		}
		m.Items = append(m.Items, added)
		return true, nil
	})
	if err != nil {
		return Item{}, err
	}

	r.logger.Debug("registered item",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldItemID, added.ID),
		logging.String("relpath", added.RelPath),
		logging.Int64("size", added.Size))
	return added, nil
}

// Find returns the item with the given id. The result is a snapshot valid
// only for the duration of the call.
func (r *Repository) Find(sessionID, itemID string) (Item, error) {
	iid, err := ident.ValidateItemID(itemID)
	if err != nil {
		return Item{}, err
	}
	m, err := r.Load(sessionID)
	if err != nil {
		return Item{}, err
	}
	item := m.Find(iid)
	if item == nil {
		return Item{}, services.Wrap(services.ErrNotFound, "manifest", "find",
			fmt.Sprintf("item %s", iid), nil)
	}
	return *item, nil
}

// SetPinned pins or unpins an item. Pinning clears the expiry; unpinning
// restores a concrete expiry at now + default TTL.
func (r *Repository) SetPinned(sessionID, itemID string, pinned bool) (Item, error) {
	return r.updateItem(sessionID, itemID, func(item *Item) error {
		item.Pinned = pinned
		if pinned {
			item.ExpiresAt = nil
		} else {
			expires := r.timestamp().Add(r.defaultTTL)
			item.ExpiresAt = &expires
		}
		return nil
	})
}

// SetTTL applies a custom TTL, forcing the item unpinned.
func (r *Repository) SetTTL(sessionID, itemID string, ttl time.Duration) (Item, error) {
	if ttl < time.Second {
		return Item{}, services.Wrap(services.ErrInvalidInput, "manifest", "set ttl",
			"ttl_seconds must be >= 1", nil)
	}
	return r.updateItem(sessionID, itemID, func(item *Item) error {
		item.Pinned = false
		expires := r.timestamp().Add(ttl)
		item.ExpiresAt = &expires
		return nil
	})
}

// Remove deletes the item's backing file (best-effort) and drops the
// manifest entry. An unknown item id is a typed NotFound failure.
func (r *Repository) Remove(sessionID, itemID string) error {
	iid, err := ident.ValidateItemID(itemID)
	if err != nil {
		return err
	}
	return r.withSession(sessionID, func(m *Manifest) (bool, error) {
		kept := m.Items[:0]
		found := false
		for _, item := range m.Items {
			if item.ID != iid {
				kept = append(kept, item)
				continue
			}
			found = true
			r.deleteBacking(m.SessionID, item)
		}
		if !found {
			return false, services.Wrap(services.ErrNotFound, "manifest", "remove",
				fmt.Sprintf("item %s", iid), nil)
		}
		m.Items = kept
		return true, nil
	})
}

// CleanupExpired removes every unpinned item whose expiry has lapsed,
// reconciles entries whose backing file vanished or drifted in size, and
// enforces session capacity by evicting the oldest unpinned items. Per-item
// failures are logged and skipped so one bad entry cannot block the sweep.
// Returns the ids of removed items.
func (r *Repository) CleanupExpired(sessionID string) ([]string, error) {
	var removed []string
	err := r.withSession(sessionID, func(m *Manifest) (bool, error) {
		var changed bool
		removed, changed = r.reconcile(m)
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		r.logger.Info("cleanup removed items",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Int("count", len(removed)))
	}
	return removed, nil
}

// List returns the items matching the filter, in insertion order. Filtering
// is pure and has no side effects.
func (r *Repository) List(sessionID string, filter Filter) ([]Item, error) {
	m, err := r.Load(sessionID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(m.Items))
	for _, item := range m.Items {
		if filter.Match(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

// withSession serializes a load-mutate-save sequence for one session.
// Different sessions never block each other.
func (r *Repository) withSession(sessionID string, fn func(*Manifest) (bool, error)) error {
	sid, err := ident.ValidateSessionID(sessionID)
	if err != nil {
		return err
	}
	root, err := r.store.SessionRoot(sid)
	if err != nil {
		return err
	}

	lock := r.sessionLock(sid, root)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	if err := lock.fl.Lock(); err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	defer func() {
		if unlockErr := lock.fl.Unlock(); unlockErr != nil {
			r.logger.Warn("release manifest lock",
				logging.String(logging.FieldSessionID, sid),
				logging.Error(unlockErr))
		}
	}()

	m, err := r.Load(sid)
	if err != nil {
		return err
	}
	changed, fnErr := fn(m)
	if changed {
		if saveErr := r.Save(m); saveErr != nil {
			if fnErr != nil {
				return fnErr
			}
			return saveErr
		}
	}
	return fnErr
}

func (r *Repository) sessionLock(sessionID, root string) *sessionLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.sessions[sessionID]
	if !ok {
		lock = &sessionLock{fl: flock.New(filepath.Join(root, lockFileName))}
		r.sessions[sessionID] = lock
	}
	return lock
}

func (r *Repository) updateItem(sessionID, itemID string, mutate func(*Item) error) (Item, error) {
	iid, err := ident.ValidateItemID(itemID)
	if err != nil {
		return Item{}, err
	}
	var updated Item
	err = r.withSession(sessionID, func(m *Manifest) (bool, error) {
		item := m.Find(iid)
		if item == nil {
			return false, services.Wrap(services.ErrNotFound, "manifest", "update",
				fmt.Sprintf("item %s", iid), nil)
		}
		if err := mutate(item); err != nil {
			return false, err
		}
		updated = *item
		return true, nil
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

func (r *Repository) rollback(path string) {
	if err := r.store.Delete(path); err != nil {
		r.logger.Warn("rollback of rejected item failed",
			logging.String("path", path),
			logging.Error(err))
	}
}

func (r *Repository) deleteBacking(sessionID string, item Item) {
	path, err := r.store.Resolve(sessionID, item.RelPath)
	if err != nil {
		r.logger.Warn("skip deleting item with unsafe path",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err))
		return
	}
	if err := r.store.Delete(path); err != nil {
		r.logger.Warn("delete backing file failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err))
	}
}

func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Second)
}
