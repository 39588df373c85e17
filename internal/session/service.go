package session

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/ident"
	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/services"
	"scribe/internal/store"
)

// MaxChunkBytes caps a single chunked read.
const MaxChunkBytes = 200000

// FileInfo describes a session file. Manifest fields are nil or empty when
// the target is a raw path with no manifest entry.
type FileInfo struct {
	ID        string
	SessionID string
	Path      string
	RelPath   string
	Size      int64
	Pinned    *bool
	ExpiresAt *time.Time
	Format    manifest.Format
	Kind      manifest.Kind
}

// FileChunk is one bounded read from a session file. Data is UTF-8 with
// invalid sequences replaced, which may shift apparent text boundaries
// relative to byte offsets.
type FileChunk struct {
	Data       string
	NextOffset int64
	EOF        bool
	Size       int64
	Path       string
	ID         string
}

// Service implements the session-scoped operations over the content store
// and manifest repository.
type Service struct {
	store  *store.Store
	repo   *manifest.Repository
	logger *slog.Logger
}

// NewService creates a session service.
func NewService(st *store.Store, repo *manifest.Repository, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		repo:   repo,
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

// ListItems runs cleanup and returns the surviving items matching the filter.
func (s *Service) ListItems(sessionID string, filter manifest.Filter) ([]manifest.Item, error) {
	if _, err := s.repo.CleanupExpired(sessionID); err != nil {
		return nil, err
	}
	return s.repo.List(sessionID, filter)
}

// Pin marks an item as immune to expiry.
func (s *Service) Pin(sessionID, itemID string) (manifest.Item, error) {
	if err := s.cleanupForItem(sessionID, itemID); err != nil {
		return manifest.Item{}, err
	}
	return s.repo.SetPinned(sessionID, itemID, true)
}

// Unpin restores a concrete expiry at now plus the default TTL.
func (s *Service) Unpin(sessionID, itemID string) (manifest.Item, error) {
	if err := s.cleanupForItem(sessionID, itemID); err != nil {
		return manifest.Item{}, err
	}
	return s.repo.SetPinned(sessionID, itemID, false)
}

// SetTTL applies a custom TTL in seconds, unpinning the item.
func (s *Service) SetTTL(sessionID, itemID string, ttlSeconds int64) (manifest.Item, error) {
	if err := s.cleanupForItem(sessionID, itemID); err != nil {
		return manifest.Item{}, err
	}
	return s.repo.SetTTL(sessionID, itemID, time.Duration(ttlSeconds)*time.Second)
}

// Delete removes an item and its backing file.
func (s *Service) Delete(sessionID, itemID string) error {
	if err := s.cleanupForItem(sessionID, itemID); err != nil {
		return err
	}
	return s.repo.Remove(sessionID, itemID)
}

// WriteTextFile stores caller-supplied content under the derived
// subdirectory and registers it as a derived item. The item format is taken
// from the file extension, defaulting to txt.
func (s *Service) WriteTextFile(sessionID, relPath, content string, overwrite bool) (manifest.Item, error) {
	if strings.TrimSpace(relPath) == "" {
		return manifest.Item{}, services.Wrap(services.ErrInvalidInput, "session", "write text file",
			"relpath is required", nil)
	}
	if err := checkDerivedRelPath(relPath); err != nil {
		return manifest.Item{}, err
	}
	if _, err := s.repo.CleanupExpired(sessionID); err != nil {
		return manifest.Item{}, err
	}

	rel := path.Join(store.DerivedDir, relPath)
	if !strings.HasPrefix(rel, store.DerivedDir+"/") {
		return manifest.Item{}, services.Wrap(services.ErrPathTraversal, "session", "write text file",
			fmt.Sprintf("%q leaves the derived directory", relPath), nil)
	}
	if _, err := s.store.Write(sessionID, rel, []byte(content), overwrite); err != nil {
		return manifest.Item{}, err
	}

	format := strings.TrimPrefix(path.Ext(relPath), ".")
	if format == "" {
		format = string(manifest.FormatTxt)
	}
	return s.repo.Add(sessionID, manifest.AddSpec{
		Kind:    manifest.KindDerived,
		Format:  manifest.Format(format),
		RelPath: rel,
	})
}

// checkDerivedRelPath rejects escape attempts before path.Join cleans them
// away; "../transcripts/x" would otherwise land back inside the session root
// and pass the store's containment check.
func checkDerivedRelPath(relPath string) error {
	if strings.HasPrefix(relPath, "/") || filepath.IsAbs(relPath) {
		return services.Wrap(services.ErrPathTraversal, "session", "write text file",
			fmt.Sprintf("%q must be relative", relPath), nil)
	}
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if segment == ".." {
			return services.Wrap(services.ErrPathTraversal, "session", "write text file",
				fmt.Sprintf("%q contains a parent segment", relPath), nil)
		}
	}
	return nil
}

// ReadFileInfo resolves an item id or relative path to file metadata.
// Cleanup runs first, so an item that lapsed before this access fails with
// a typed expiry error rather than a plain not-found.
func (s *Service) ReadFileInfo(sessionID, itemID, relPath string) (FileInfo, error) {
	item, absPath, err := s.resolveTarget(sessionID, itemID, relPath)
	if err != nil {
		return FileInfo{}, err
	}

	size, err := s.store.SizeOf(absPath)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{
		SessionID: sessionID,
		Path:      absPath,
		RelPath:   relPath,
		Size:      size,
	}
	if item != nil {
		info.ID = item.ID
		info.RelPath = item.RelPath
		info.Pinned = &item.Pinned
		info.ExpiresAt = item.ExpiresAt
		info.Format = item.Format
		info.Kind = item.Kind
	}
	return info, nil
}

// ReadFileChunk reads up to maxBytes from the resolved file at offset.
// maxBytes is clamped to [1, MaxChunkBytes].
func (s *Service) ReadFileChunk(sessionID, itemID, relPath string, offset int64, maxBytes int) (FileChunk, error) {
	if offset < 0 {
		return FileChunk{}, services.Wrap(services.ErrInvalidInput, "session", "read chunk",
			"offset must be >= 0", nil)
	}
	if maxBytes < 1 {
		maxBytes = 1
	}
	if maxBytes > MaxChunkBytes {
		maxBytes = MaxChunkBytes
	}

	item, absPath, err := s.resolveTarget(sessionID, itemID, relPath)
	if err != nil {
		return FileChunk{}, err
	}

	size, err := s.store.SizeOf(absPath)
	if err != nil {
		return FileChunk{}, err
	}
	data, eof, err := s.store.ReadRange(absPath, offset, maxBytes)
	if err != nil {
		return FileChunk{}, err
	}

	chunk := FileChunk{
		Data:       strings.ToValidUTF8(string(data), "�"),
		NextOffset: offset + int64(len(data)),
		EOF:        eof,
		Size:       size,
		Path:       absPath,
	}
	if item != nil {
		chunk.ID = item.ID
	}
	return chunk, nil
}

// resolveTarget maps an item id, a relative path, or both to a manifest
// item snapshot and an absolute path. Supplying both forms is valid only
// when they agree on the same item.
func (s *Service) resolveTarget(sessionID, itemID, relPath string) (*manifest.Item, string, error) {
	if itemID == "" && relPath == "" {
		return nil, "", services.Wrap(services.ErrInvalidInput, "session", "resolve target",
			"provide either item_id or relpath", nil)
	}

	before, err := s.repo.Load(sessionID)
	if err != nil {
		return nil, "", err
	}
	removed, err := s.repo.CleanupExpired(sessionID)
	if err != nil {
		return nil, "", err
	}
	after, err := s.repo.Load(sessionID)
	if err != nil {
		return nil, "", err
	}

	var item *manifest.Item
	if itemID != "" {
		iid, err := ident.ValidateItemID(itemID)
		if err != nil {
			return nil, "", err
		}
		item = after.Find(iid)
		if item == nil {
			if wasRemoved(before, removed, iid, "") {
				return nil, "", s.expired(sessionID, iid)
			}
			return nil, "", services.Wrap(services.ErrNotFound, "session", "resolve target",
				fmt.Sprintf("item %s", iid), nil)
		}
		if relPath != "" && item.RelPath != relPath {
			return nil, "", services.Wrap(services.ErrInvalidInput, "session", "resolve target",
				fmt.Sprintf("item %s does not match relpath %q", iid, relPath), nil)
		}
	} else {
		item = after.FindByRelPath(relPath)
		if item == nil && wasRemoved(before, removed, "", relPath) {
			return nil, "", s.expired(sessionID, relPath)
		}
	}

	target := relPath
	if item != nil {
		target = item.RelPath
	}
	absPath, err := s.store.Resolve(sessionID, target)
	if err != nil {
		return nil, "", err
	}
	return item, absPath, nil
}

func (s *Service) cleanupForItem(sessionID, itemID string) error {
	iid, err := ident.ValidateItemID(itemID)
	if err != nil {
		return err
	}
	before, err := s.repo.Load(sessionID)
	if err != nil {
		return err
	}
	removed, err := s.repo.CleanupExpired(sessionID)
	if err != nil {
		return err
	}
	if wasRemoved(before, removed, iid, "") {
		return s.expired(sessionID, iid)
	}
	return nil
}

// wasRemoved reports whether this access's cleanup sweep removed the item
// identified by id or relpath.
func wasRemoved(before *manifest.Manifest, removed []string, itemID, relPath string) bool {
	for _, id := range removed {
		if itemID != "" && id == itemID {
			return true
		}
		if relPath != "" {
			if item := before.Find(id); item != nil && item.RelPath == relPath {
				return true
			}
		}
	}
	return false
}

func (s *Service) expired(sessionID, target string) error {
	s.logger.Debug("access to expired item",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldItemID, target))
	return services.Wrap(services.ErrExpired, "session", "resolve target",
		fmt.Sprintf("%s expired before access", target), nil)
}
