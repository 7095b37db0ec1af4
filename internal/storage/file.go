package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"futarchy-alerts/internal/proposal"
)

// FileStore persists the history as one JSON record with atomic
// temp-file + rename writes. It is designed for single-process,
// single-scheduler use: the load-modify-persist in Append is not locked, and
// two concurrent writers could lose an entry.
type FileStore struct {
	path     string
	filePerm os.FileMode
	dirPerm  os.FileMode
}

// NewFileStore builds a file-backed history store. An empty path falls back
// to an OS-appropriate tmp location.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join(os.TempDir(), "futarchywatcher", "history.json")
	}
	return &FileStore{
		path:     path,
		filePerm: 0o600,
		dirPerm:  0o755,
	}
}

// Load reads the persisted record. A missing or unparseable file yields an
// empty history.
func (s *FileStore) Load(_ context.Context) (*proposal.History, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return &proposal.History{}, nil
	}

	var hist proposal.History
	if err := json.Unmarshal(data, &hist); err != nil {
		// Corrupt storage is treated as no history.
		return &proposal.History{}, nil
	}
	return &hist, nil
}

// Append folds the snapshot into the stored history and persists the result.
func (s *FileStore) Append(ctx context.Context, snap proposal.Snapshot) (*proposal.History, error) {
	hist, _ := s.Load(ctx)
	hist.Apply(snap)

	if err := s.save(hist); err != nil {
		return nil, err
	}
	return hist, nil
}

func (s *FileStore) save(hist *proposal.History) error {
	if err := os.MkdirAll(filepath.Dir(s.path), s.dirPerm); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, s.filePerm); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename history file: %w", err)
	}
	return nil
}

var _ HistoryStore = (*FileStore)(nil)
