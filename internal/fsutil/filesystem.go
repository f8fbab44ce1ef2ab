// Package fsutil lets exporters write through an interface that tests can
// swap for an in-memory tree.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileSystem is the set of file operations the exporter and asset store
// perform. OSFileSystem backs it with the real disk.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	// WriteFile replaces name with data. The parent directory must exist.
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	// Remove deletes a file or an empty directory.
	Remove(name string) error
	Exists(name string) bool
}

// OSFileSystem implements FileSystem on the host filesystem.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFile goes through WriteFileAtomic, so a failed write leaves any
// previous file untouched and readers never see a truncated one.
func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return WriteFileAtomic(name, data, perm)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}

// WriteFileAtomic writes data to a temp file beside name, then renames it
// into place.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	abandon := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return abandon(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return abandon(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

var errIsDir = errors.New("is a directory")
var errNotEmpty = errors.New("directory not empty")

// MemoryFileSystem keeps files and directories in maps keyed by cleaned
// path. It is safe for concurrent use.
//
// FailWrite, when set, is consulted before every WriteFile; a non-nil
// result fails the write. With PartialOnFail the failed write still leaves
// the first half of the data behind, like an interrupted non-atomic write.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}

	FailWrite     func(name string) error
	PartialOnFail bool
}

// NewMemoryFileSystem returns an empty tree rooted at "/" and ".".
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (m *MemoryFileSystem) isDir(p string) bool {
	if p == "." || p == string(filepath.Separator) {
		return true
	}
	_, ok := m.dirs[p]
	return ok
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	p := filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, _ os.FileMode) error {
	p := filepath.Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.isDir(filepath.Dir(p)):
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrNotExist}
	case m.isDir(p):
		return &fs.PathError{Op: "write", Path: p, Err: errIsDir}
	}
	if m.FailWrite != nil {
		if err := m.FailWrite(p); err != nil {
			if m.PartialOnFail {
				m.files[p] = append([]byte(nil), data[:len(data)/2]...)
			}
			return &fs.PathError{Op: "write", Path: p, Err: err}
		}
	}
	m.files[p] = append([]byte(nil), data...)
	return nil
}

// MkdirAll creates every missing ancestor of path or none of them.
func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []string
	for p := filepath.Clean(path); !m.isDir(p); p = filepath.Dir(p) {
		if _, ok := m.files[p]; ok {
			return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
		}
		missing = append(missing, p)
	}
	for _, p := range missing {
		m.dirs[p] = struct{}{}
	}
	return nil
}

func (m *MemoryFileSystem) Remove(name string) error {
	p := filepath.Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if _, ok := m.dirs[p]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	for f := range m.files {
		if filepath.Dir(f) == p {
			return &fs.PathError{Op: "remove", Path: p, Err: errNotEmpty}
		}
	}
	for d := range m.dirs {
		if filepath.Dir(d) == p {
			return &fs.PathError{Op: "remove", Path: p, Err: errNotEmpty}
		}
	}
	delete(m.dirs, p)
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	p := filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[p]
	return ok || m.isDir(p)
}

// Files lists every stored file path, sorted.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
