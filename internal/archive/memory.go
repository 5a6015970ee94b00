package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"wp-migrate/internal/migrate"
)

// MemoryArchive keeps artifacts in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryArchive struct {
	name      string
	artifacts map[string][]byte // "runID/name" -> data
	mu        sync.RWMutex
}

// NewMemoryArchive creates a new in-memory archive with the given name.
func NewMemoryArchive(name string) *MemoryArchive {
	return &MemoryArchive{
		name:      name,
		artifacts: make(map[string][]byte),
	}
}

// Put stores an artifact, replacing any previous one of the same name.
func (m *MemoryArchive) Put(_ context.Context, runID, name string, r io.Reader, size int64) error {
	k, err := key(runID, name)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[k] = data
	return nil
}

// Get writes a stored artifact to w.
func (m *MemoryArchive) Get(_ context.Context, runID, name string, w io.Writer) error {
	k, err := key(runID, name)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.artifacts[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Keys returns the stored "runID/name" keys, sorted.
func (m *MemoryArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.artifacts))
	for k := range m.artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for in-memory archive.
func (m *MemoryArchive) ValidateSetup(context.Context) error {
	return nil
}

var _ migrate.Archive = (*MemoryArchive)(nil)
