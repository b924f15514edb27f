package universe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"BreakoutScreener/internal/model"
)

// FileStore keeps snapshots in a single JSON file, keyed by cache key.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

func (f *FileStore) Get(_ context.Context, key string) (*model.UniverseSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return nil, err
	}
	snap, ok := all[key]
	if !ok {
		return nil, nil
	}
	return snap, nil
}

func (f *FileStore) Put(_ context.Context, key string, snap *model.UniverseSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		// unreadable file is replaced rather than blocking refreshes
		all = map[string]*model.UniverseSnapshot{}
	}
	all[key] = snap
	return f.save(all)
}

// load reads the snapshot file. Returns an empty map if the file doesn't exist.
func (f *FileStore) load() (map[string]*model.UniverseSnapshot, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*model.UniverseSnapshot{}, nil
		}
		return nil, err
	}
	all := map[string]*model.UniverseSnapshot{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (f *FileStore) save(all map[string]*model.UniverseSnapshot) error {
	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.filePath, data, 0644)
}
