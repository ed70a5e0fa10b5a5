package schema

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// diskVersion is bumped whenever the payload layout changes; entries from
// other versions read as misses.
const diskVersion uint16 = 1

// DiskCache persists compiled schemas across processes, keyed by document
// fingerprint. A nil *DiskCache is valid and does nothing.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache places the cache under XDG_CACHE_HOME (or ~/.cache) in a
// directory named after the application. The directory is created lazily on
// first Put.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return &DiskCache{dir: filepath.Join(base, app)}, nil
}

// OpenDiskCacheAt uses an explicit directory instead of the XDG location.
func OpenDiskCacheAt(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

// diskPayload is the on-disk form. Refs are flattened into parallel slices
// so encoding stays deterministic.
type diskPayload struct {
	Version     uint16
	Fingerprint string
	Origin      uint8
	Path        string
	Root        *Type
	RefNames    []string
	RefTypes    []*Type
}

func (c *DiskCache) pathFor(fingerprint string) string {
	return filepath.Join(c.dir, "schemas", fingerprint+".mp")
}

// Put writes the schema atomically: encode to a temp file, then rename into
// place.
func (c *DiskCache) Put(s *Schema) error {
	if c == nil || s == nil || s.Fingerprint == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := diskPayload{
		Version:     diskVersion,
		Fingerprint: s.Fingerprint,
		Origin:      uint8(s.Origin),
		Path:        s.Path,
		Root:        s.Root,
	}
	for name, def := range s.Refs {
		payload.RefNames = append(payload.RefNames, name)
		payload.RefTypes = append(payload.RefTypes, def)
	}

	dst := c.pathFor(s.Fingerprint)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	if err := msgpack.NewEncoder(tmp).Encode(&payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

// Get loads the schema with the given fingerprint. A missing, corrupt, or
// version-skewed entry is a miss, not an error.
func (c *DiskCache) Get(fingerprint string) (*Schema, bool, error) {
	if c == nil || fingerprint == "" {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(fingerprint))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		_ = os.Remove(c.pathFor(fingerprint))
		return nil, false, nil
	}
	if payload.Version != diskVersion || payload.Fingerprint != fingerprint {
		return nil, false, nil
	}

	s := &Schema{
		Root:        payload.Root,
		Refs:        make(map[string]*Type, len(payload.RefNames)),
		Fingerprint: payload.Fingerprint,
		Origin:      Origin(payload.Origin),
		Path:        payload.Path,
	}
	for i, name := range payload.RefNames {
		if i < len(payload.RefTypes) {
			s.Refs[name] = payload.RefTypes[i]
		}
	}
	if err := rehydrate(s); err != nil {
		return nil, false, nil
	}
	return s, true, nil
}

// rehydrate restores the parts the encoding drops: compiled patterns and
// the canonical numeric form of enum values.
func rehydrate(s *Schema) error {
	fix := func(t *Type) error {
		t.Constraints.Enum = normalizeEnum(t.Constraints.Enum)
		return t.Constraints.compile()
	}
	if err := s.Root.walk(fix); err != nil {
		return err
	}
	for _, def := range s.Refs {
		if err := def.walk(fix); err != nil {
			return err
		}
	}
	return nil
}

// DropAll removes every entry by renaming the directory aside first, so a
// concurrent reader never sees a half-deleted tree.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Join(c.dir, "schemas")
	trash := dir + ".drop"
	if err := os.Rename(dir, trash); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(trash)
}
