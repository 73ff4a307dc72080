package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes one timestamp-named JSON file per record into a configured
// directory, creating the directory if absent.
type FileStore struct {
	dir string
}

// NewFileStore builds a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes the record to its own file. Filenames carry the recording
// timestamp and a slice of the record ID so two attempts in the same
// millisecond cannot collide.
func (s *FileStore) Save(rec Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}

	name := fmt.Sprintf("txn-%s-%s.json",
		rec.RecordedAt.Format("20060102-150405.000"), rec.ID[:8])

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write record file: %w", err)
	}
	return nil
}
