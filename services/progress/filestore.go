package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"phimstream/models"
)

const fileStoreName = "watch_progress.json"

// FileStore keeps watch-progress documents in a single JSON file, loaded into
// memory at open and rewritten on every mutation.
type FileStore struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	records map[string]models.WatchProgressRecord
}

// NewFileStore opens (creating if needed) the JSON store under dir on fsys.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}

	s := &FileStore{
		fs:      fsys,
		path:    filepath.Join(dir, fileStoreName),
		records: make(map[string]models.WatchProgressRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("stat progress store: %w", err)
	}
	if !exists {
		return nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("read progress store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var decoded map[string]models.WatchProgressRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode progress store: %w", err)
	}
	s.records = decoded
	return nil
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress store: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write progress store: %w", err)
	}
	return nil
}

func (s *FileStore) Upsert(_ context.Context, rec models.WatchProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	return s.saveLocked()
}

func (s *FileStore) Get(_ context.Context, id string) (*models.WatchProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) ListByUser(_ context.Context, userID string) ([]models.WatchProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.WatchProgressRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			items = append(items, rec)
		}
	}
	return items, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	return s.saveLocked()
}

func (s *FileStore) Close() error { return nil }
