package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/ident"
	"scribe/internal/services"
)

// Layout names within a session root.
const (
	TranscriptsDir = "transcripts"
	DerivedDir     = "derived"
	ManifestName   = "manifest.json"
)

// Store resolves and accesses session-scoped files under a single data root.
type Store struct {
	dataDir string
}

// New creates a store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// DataDir returns the configured data root.
func (s *Store) DataDir() string {
	return s.dataDir
}

// SessionRoot returns the session directory, creating it and its
// subdirectories on first use.
func (s *Store) SessionRoot(sessionID string) (string, error) {
	sid, err := ident.ValidateSessionID(sessionID)
	if err != nil {
		return "", err
	}
	root := filepath.Join(s.dataDir, sid)
	for _, dir := range []string{root, filepath.Join(root, TranscriptsDir), filepath.Join(root, DerivedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create session directory %q: %w", dir, err)
		}
	}
	return root, nil
}

// TranscriptsPath returns the transcript subdirectory for a session.
func (s *Store) TranscriptsPath(sessionID string) (string, error) {
	root, err := s.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, TranscriptsDir), nil
}

// DerivedPath returns the derived-content subdirectory for a session.
func (s *Store) DerivedPath(sessionID string) (string, error) {
	root, err := s.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DerivedDir), nil
}

// ManifestPath returns the manifest file location for a session.
func (s *Store) ManifestPath(sessionID string) (string, error) {
	root, err := s.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ManifestName), nil
}

// Resolve maps a session-relative path to an absolute path, rejecting
// anything that escapes the session root. Symlinks are resolved and checked
// against the root, so a link inside the root pointing outside is rejected
// even though the path is lexically clean.
func (s *Store) Resolve(sessionID, relPath string) (string, error) {
	if err := checkRelPath(relPath); err != nil {
		return "", err
	}
	root, err := s.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}

	target := filepath.Join(root, filepath.FromSlash(relPath))

	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve session root: %w", err)
	}
	resolvedTarget, err := resolveExisting(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !within(resolvedTarget, resolvedRoot) {
		return "", services.Wrap(services.ErrPathTraversal, "store", "resolve",
			fmt.Sprintf("%q escapes session root", relPath), nil)
	}
	return target, nil
}

// Rel converts an absolute path under the session root back into the
// manifest-relative slash form.
func (s *Store) Rel(sessionID, absPath string) (string, error) {
	root, err := s.SessionRoot(sessionID)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", services.Wrap(services.ErrPathTraversal, "store", "rel",
			fmt.Sprintf("%q is outside session root", absPath), err)
	}
	return filepath.ToSlash(rel), nil
}

// Write stores content at the session-relative path, creating parent
// directories as needed. When overwrite is false an existing file is a typed
// AlreadyExists failure. Returns the byte count written.
func (s *Store) Write(sessionID, relPath string, data []byte, overwrite bool) (int64, error) {
	target, err := s.Resolve(sessionID, relPath)
	if err != nil {
		return 0, err
	}
	if !overwrite {
		if _, statErr := os.Lstat(target); statErr == nil {
			return 0, services.Wrap(services.ErrAlreadyExists, "store", "write",
				fmt.Sprintf("%q already exists; pass overwrite to replace", relPath), nil)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %q: %w", relPath, err)
	}
	return int64(len(data)), nil
}

// ReadRange reads up to maxBytes starting at offset. An offset at or past
// end-of-file yields empty data and eof=true. The caller clamps maxBytes to
// a bounded range before reaching this layer.
func (s *Store) ReadRange(absPath string, offset int64, maxBytes int) (data []byte, eof bool, err error) {
	file, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, services.Wrap(services.ErrNotFound, "store", "read",
				fmt.Sprintf("file does not exist: %s", absPath), nil)
		}
		return nil, false, fmt.Errorf("open %q: %w", absPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, fmt.Errorf("stat %q: %w", absPath, err)
	}
	if offset >= info.Size() {
		return nil, true, nil
	}

	buf := make([]byte, maxBytes)
	n, err := file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("read %q: %w", absPath, err)
	}
	return buf[:n], offset+int64(n) >= info.Size(), nil
}

// Delete removes a file; a missing file is not an error at this layer.
func (s *Store) Delete(absPath string) error {
	err := os.Remove(absPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", absPath, err)
	}
	return nil
}

// SizeOf returns the byte size of the file at absPath.
func (s *Store) SizeOf(absPath string) (int64, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "store", "size",
				fmt.Sprintf("file does not exist: %s", absPath), nil)
		}
		return 0, fmt.Errorf("stat %q: %w", absPath, err)
	}
	return info.Size(), nil
}

// Exists reports whether a file is present at absPath.
func (s *Store) Exists(absPath string) bool {
	_, err := os.Lstat(absPath)
	return err == nil
}

func checkRelPath(relPath string) error {
	if strings.TrimSpace(relPath) == "" {
		return services.Wrap(services.ErrInvalidInput, "store", "resolve", "relative path is required", nil)
	}
	if strings.HasPrefix(relPath, "/") || filepath.IsAbs(relPath) {
		return services.Wrap(services.ErrPathTraversal, "store", "resolve",
			fmt.Sprintf("%q must be relative", relPath), nil)
	}
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if segment == ".." {
			return services.Wrap(services.ErrPathTraversal, "store", "resolve",
				fmt.Sprintf("%q contains a parent segment", relPath), nil)
		}
	}
	return nil
}

// resolveExisting evaluates symlinks on the deepest existing prefix of path
// and rejoins the not-yet-created remainder, so containment can be checked
// for paths that are about to be written.
func resolveExisting(path string) (string, error) {
	remainder := []string{}
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		remainder = append(remainder, filepath.Base(current))
		current = parent
	}
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
