package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Ensure FileStore implements db.Store interface
var _ db.Store = (*FileStore)(nil)

// FileStore keeps the snapshot as a single JSON document on local disk
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to path, creating its directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// DefaultPath returns ~/.mindmeld/<name>.json
func DefaultPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error resolving home directory: %w", err)
	}
	return filepath.Join(home, ".mindmeld", name+".json"), nil
}

// Path returns the file the snapshot is stored in
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot file. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context) (*db.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	var snapshot db.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"path":          s.path,
		"conversations": len(snapshot.Conversations),
	}).Debug("Loaded snapshot")

	return &snapshot, nil
}

// Save overwrites the snapshot file atomically
func (s *FileStore) Save(ctx context.Context, snapshot *db.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory, syncs and renames it over path
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-")
	if err != nil {
		return err
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return err
	}

	success = true
	return nil
}
