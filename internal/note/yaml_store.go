package note

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:generate mockgen -source=yaml_store.go -destination=../mocks/note/mock_store.go -package=mock_note

// Store persists the notes of a repository between runs.
type Store interface {
	FindAll(ctx context.Context) ([]Note, error)
	// ReplaceAll stores notes in the given order, replacing everything stored before.
	ReplaceAll(ctx context.Context, notes []Note) error
}

type notesFile struct {
	Notes []Note `yaml:"notes"`
}

// YAMLStore keeps notes in a single YAML file.
type YAMLStore struct {
	path string
}

var _ Store = (*YAMLStore)(nil)

func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// FindAll returns no notes when the file does not exist yet.
func (s *YAMLStore) FindAll(_ context.Context) ([]Note, error) {
	contents, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", s.path, err)
	}

	var file notesFile
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(%s) > %w", s.path, err)
	}
	if file.Notes == nil {
		return []Note{}, nil
	}
	for _, n := range file.Notes {
		if err := Validate(n); err != nil {
			return nil, fmt.Errorf("%s > %w", s.path, err)
		}
	}
	return file.Notes, nil
}

func (s *YAMLStore) ReplaceAll(_ context.Context, notes []Note) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}

	contents, err := yaml.Marshal(notesFile{Notes: notes})
	if err != nil {
		return fmt.Errorf("yaml.Marshal > %w", err)
	}

	// Write to a sibling file first so a failed write never truncates the notes.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, contents, 0o644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", s.path, err)
	}
	return nil
}
