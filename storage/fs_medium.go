package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FSMedium stores each key as a file in a directory of a billy filesystem.
// Writes go to a temporary file first and are renamed into place, so a
// reader never observes a partially written value.
type FSMedium struct {
	bfs      billy.Filesystem
	root     string
	tempDir  string
	maxBytes int64

	mu  sync.RWMutex
	seq atomic.Uint64
}

// NewFSMedium creates a medium on top of an existing billy filesystem.
func NewFSMedium(bfs billy.Filesystem, opts ...MediumOption) *FSMedium {
	cfg := newMediumConfig(opts)
	return &FSMedium{
		bfs:      bfs,
		root:     cfg.root,
		tempDir:  path.Join(cfg.root, ".tmp"),
		maxBytes: cfg.maxBytes,
	}
}

// NewMemoryMedium creates an FSMedium backed by an in-memory filesystem.
// The medium is initially empty.
func NewMemoryMedium(opts ...MediumOption) *FSMedium {
	return NewFSMedium(memfs.New(), opts...)
}

// NewLocalMedium creates an FSMedium backed by the local filesystem under baseDir.
func NewLocalMedium(baseDir string, opts ...MediumOption) *FSMedium {
	return NewFSMedium(osfs.New(baseDir), opts...)
}

// Unwrap returns the underlying billy.Filesystem.
func (m *FSMedium) Unwrap() billy.Filesystem {
	return m.bfs
}

// fileName maps a key onto a file name that cannot escape the root directory
// and never collides with the hidden temp directory.
func fileName(key string) string {
	name := url.PathEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name
}

func (m *FSMedium) entryPath(key string) string {
	return path.Join(m.root, fileName(key))
}

// Read returns the value stored under key.
func (m *FSMedium) Read(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := util.ReadFile(m.bfs, m.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(data), true, nil
}

// Write stores value under key atomically.
func (m *FSMedium) Write(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		used, err := m.sizeLocked(key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > m.maxBytes {
			return fmt.Errorf("%w: writing %d bytes to %q with %d of %d bytes used",
				ErrQuotaExceeded, len(value), key, used, m.maxBytes)
		}
	}

	if err := m.bfs.MkdirAll(m.tempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", m.tempDir, err)
	}

	// The ".tmp" suffix keeps temp names from being prefixes of one another.
	tempFile := path.Join(m.tempDir, fmt.Sprintf("%s.%d.tmp", fileName(key), m.seq.Add(1)))
	if err := util.WriteFile(m.bfs, tempFile, []byte(value), 0o644); err != nil {
		_ = m.bfs.Remove(tempFile)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	target := m.entryPath(key)
	if err := m.bfs.Rename(tempFile, target); err != nil {
		_ = m.bfs.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file to %q: %w", target, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *FSMedium) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.bfs.Remove(m.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Enumerate returns every stored key.
func (m *FSMedium) Enumerate(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	infos, err := m.entries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		key, err := url.PathUnescape(info.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes every key.
func (m *FSMedium) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := util.RemoveAll(m.bfs, m.root); err != nil {
		return fmt.Errorf("failed to clear %q: %w", m.root, err)
	}
	return nil
}

// Size returns the total number of key and value bytes stored.
func (m *FSMedium) Size(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sizeLocked("")
}

// sizeLocked sums key and value bytes of every entry except skip.
func (m *FSMedium) sizeLocked(skip string) (int64, error) {
	infos, err := m.entries()
	if err != nil {
		return 0, err
	}
	skipName := ""
	if skip != "" {
		skipName = fileName(skip)
	}

	var total int64
	for _, info := range infos {
		if info.Name() == skipName {
			continue
		}
		key, err := url.PathUnescape(info.Name())
		if err != nil {
			key = info.Name()
		}
		total += int64(len(key)) + info.Size()
	}
	return total, nil
}

// entries lists regular entry files, skipping the temp directory.
func (m *FSMedium) entries() ([]os.FileInfo, error) {
	infos, err := m.bfs.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %q: %w", m.root, err)
	}

	out := infos[:0]
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}
