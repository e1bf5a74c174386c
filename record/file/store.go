// Package file persists final session records as one JSON document per
// session in a directory. It suits demos and local inspection; anything
// multi-writer should use the sqlite store.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/itzneel05/voxagent"
)

// Store writes records under dir as <session-id>.json.
type Store struct {
	dir string
}

// Open ensures dir exists and returns the store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record atomically via a temp file rename. Retried saves
// simply overwrite the previous document.
func (s *Store) Save(ctx context.Context, rec *voxagent.FinalRecord) error {
	data, err := sonic.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	final := filepath.Join(s.dir, rec.ID+".json")
	tmp, err := os.CreateTemp(s.dir, rec.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename record file: %w", err)
	}
	return nil
}

// Load reads one record by session id, or nil when absent.
func (s *Store) Load(id string) (*voxagent.FinalRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}
	var rec voxagent.FinalRecord
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record file: %w", err)
	}
	return &rec, nil
}
