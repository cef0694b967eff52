package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createMemoryStore creates a session-scoped in-memory store for testing.
func createMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestLocal(id, name string) LocalRecord {
	return LocalRecord{
		ID:        id,
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: "09:00:00",
		RunID:     "run-" + id,
	}
}

func createTestSynced(userID, name string) SyncedRecord {
	return SyncedRecord{
		UserID:   userID,
		Name:     name,
		Email:    name + "@example.com",
		SyncedAt: "09:00:05",
		RunID:    "run-" + userID,
	}
}
