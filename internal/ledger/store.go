package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ZucchiniBot/internal/model"
)

// Persister loads and saves the whole ledger state.
type Persister interface {
	Load() (*model.LedgerState, error)
	Save(state *model.LedgerState) error
}

// FileStore keeps the ledger state in a single JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the ledger state. Returns an empty state if the file doesn't exist.
func (f *FileStore) Load() (*model.LedgerState, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			state := &model.LedgerState{}
			state.Normalize()
			return state, nil
		}
		return nil, err
	}
	var state model.LedgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	state.Normalize()
	return &state, nil
}

// Save writes the state to a temp file and renames it over the old one.
func (f *FileStore) Save(state *model.LedgerState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
