package mediapick

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Document keys used by this package on any injected Storage.
const (
	cacheDocument      = "cache"
	engagementDocument = "engagement"
)

// MemoryStorage is an in-memory Storage for tests and single-run use.
// Safe for concurrent use.
type MemoryStorage struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{docs: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	data, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = data
	m.mu.Unlock()
	return nil
}

// FileStorage persists each document as a JSON file under Dir. A missing or
// unparseable file reads as an absent document, so a corrupted store is
// equivalent to a first run.
type FileStorage struct {
	Dir string

	mu sync.Mutex
}

func (f *FileStorage) Get(_ context.Context, key string, dest any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("mediapick: unreadable storage document, treating as empty", "key", key, "error", err.Error())
		return false
	}
	return true
}

func (f *FileStorage) Set(_ context.Context, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	// Write-then-rename so a crash mid-write never corrupts the document.
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}
