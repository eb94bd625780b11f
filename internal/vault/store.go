package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store reads and writes entity records under a vault root. It is the
// only component that touches record files; everything above it works
// with parsed entities and paths.
type Store struct {
	root     string
	manifest Manifest
}

// Open creates a Store rooted at dir, loading gantry.toml if present.
// The root must already exist; type directories are created lazily on
// first write.
func Open(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	m, err := LoadManifest(abs)
	if err != nil {
		return nil, err
	}
	return &Store{root: abs, manifest: m}, nil
}

// Root returns the absolute vault root path.
func (s *Store) Root() string { return s.root }

// Manifest returns the parsed vault manifest (zero value if absent).
func (s *Store) Manifest() Manifest { return s.manifest }

// TypeDir returns the active directory for a type.
func (s *Store) TypeDir(t EntityType) string {
	return filepath.Join(s.root, s.manifest.dirFor(t))
}

// ArchiveTypeDir returns the archive directory for a type.
func (s *Store) ArchiveTypeDir(t EntityType) string {
	return filepath.Join(s.root, s.manifest.archiveDir(), s.manifest.dirFor(t))
}

// TrackedDirs returns every directory the supervisor watches: the five
// active type directories plus their archive counterparts.
func (s *Store) TrackedDirs() []string {
	dirs := make([]string, 0, len(Types)*2)
	for _, t := range Types {
		dirs = append(dirs, s.TypeDir(t))
	}
	for _, t := range Types {
		dirs = append(dirs, s.ArchiveTypeDir(t))
	}
	return dirs
}

// PathFor computes the canonical storage path for an entity given its
// archived flag: <root>/<typedir>/<ID>.md or <root>/archive/<typedir>/<ID>.md.
func (s *Store) PathFor(e *Entity) (string, error) {
	t, err := e.Type()
	if err != nil {
		return "", err
	}
	dir := s.TypeDir(t)
	if e.Archived {
		dir = s.ArchiveTypeDir(t)
	}
	return filepath.Join(dir, e.ID+".md"), nil
}

// Load reads and parses the record at path. The returned entity carries
// the path it was loaded from.
func (s *Store) Load(path string) (*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e, err := ParseEntity(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.Path = path
	return e, nil
}

// Write serializes the entity to its canonical path using an atomic
// replace (write to a temp file in the same directory, then rename).
// Returns the path written. The entity's Path field is updated.
func (s *Store) Write(e *Entity) (string, error) {
	path, err := s.PathFor(e)
	if err != nil {
		return "", err
	}
	if err := s.writeAt(e, path); err != nil {
		return "", err
	}
	e.Path = path
	return path, nil
}

// writeAt writes the record at an explicit path, atomically.
func (s *Store) writeAt(e *Entity, path string) error {
	data, err := MarshalEntity(e)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Relocate writes the entity at its new canonical path and removes the
// old file. The new file lands before the old one is deleted, so a crash
// between the two steps leaves a duplicate rather than a loss. Returns
// the new path.
func (s *Store) Relocate(e *Entity, oldPath string) (string, error) {
	newPath, err := s.PathFor(e)
	if err != nil {
		return "", err
	}
	if newPath == oldPath {
		if err := s.writeAt(e, newPath); err != nil {
			return "", err
		}
		e.Path = newPath
		return newPath, nil
	}
	if err := s.writeAt(e, newPath); err != nil {
		return "", err
	}
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("removing %s after relocation: %w", oldPath, err)
	}
	e.Path = newPath
	return newPath, nil
}

// Remove deletes the record file at path. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ModTime returns the file modification time for path, or the zero time
// if the file is gone.
func (s *Store) ModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Exists reports whether a record file is present at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WalkRecords calls fn for every .md record file under dir, recursively.
// A missing dir is skipped silently (vaults grow directories lazily).
func (s *Store) WalkRecords(dir string, fn func(path string) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsRecordFile(path) {
			return nil
		}
		return fn(path)
	})
}

// IsRecordFile reports whether a path looks like an entity record: a .md
// file that is not hidden and not a temp artifact of an atomic replace.
func IsRecordFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(base, ".md")
}
