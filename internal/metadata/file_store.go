package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one <id>.json file per transcription in a directory.
type FileStore struct {
	rootDir string
	mu      sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(directory string) *FileStore {
	return &FileStore{
		rootDir: directory,
	}
}

func (store *FileStore) filePath(id string) string {
	return filepath.Join(store.rootDir, id+".json")
}

func (store *FileStore) GetMetadata(_ context.Context, id string) (Metadata, error) {
	if err := validateID(id); err != nil {
		return Metadata{}, &OperationFailedError{Op: "get", ID: id, Err: err}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	m, err := store.read(id)
	if err != nil {
		return Metadata{}, &OperationFailedError{Op: "get", ID: id, Err: err}
	}
	return m, nil
}

func (store *FileStore) UpdateMetadata(_ context.Context, id string, update Metadata) error {
	if err := validateID(id); err != nil {
		return &OperationFailedError{Op: "update", ID: id, Err: err}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	existing, err := store.read(id)
	if err != nil {
		return &OperationFailedError{Op: "update", ID: id, Err: err}
	}
	if err := store.write(id, existing.Merge(update)); err != nil {
		return &OperationFailedError{Op: "update", ID: id, Err: err}
	}
	return nil
}

func (store *FileStore) DeleteMetadata(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return &OperationFailedError{Op: "delete", ID: id, Err: err}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.filePath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &OperationFailedError{Op: "delete", ID: id, Err: fmt.Errorf("os.Remove > %w", err)}
	}
	return nil
}

func (store *FileStore) read(id string) (Metadata, error) {
	file, err := os.Open(store.filePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return Metadata{}, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("os.Open > %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	contents, err := io.ReadAll(file)
	if err != nil {
		return Metadata{}, fmt.Errorf("io.ReadAll > %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(contents, &m); err != nil {
		return Metadata{}, fmt.Errorf("json.Unmarshal > %w", err)
	}
	return m, nil
}

func (store *FileStore) write(id string, m Metadata) error {
	if err := os.MkdirAll(store.rootDir, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}

	contents, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}

	// Written to a temporary file first so a failed write never leaves a torn record.
	path := store.filePath(id)
	file, err := os.CreateTemp(store.rootDir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp > %w", err)
	}
	tmpPath := file.Name()
	if _, err := file.Write(contents); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file.Write > %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file.Close > %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Rename(%s) > %w", path, err)
	}
	return nil
}
