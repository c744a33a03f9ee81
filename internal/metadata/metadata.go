// Package metadata keeps user edits of transcriptions (title, summary, tags)
// locally, keyed by transcription id. It is a cache, not the source of truth.
package metadata

import (
	"context"
	"fmt"
	"strings"
)

// Metadata holds the locally edited fields of a transcription.
// A nil field is absent and does not override the backend value.
type Metadata struct {
	Title   *string  `json:"title,omitempty"`
	Summary *string  `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Merge returns m with the fields present in update applied.
func (m Metadata) Merge(update Metadata) Metadata {
	if update.Title != nil {
		m.Title = update.Title
	}
	if update.Summary != nil {
		m.Summary = update.Summary
	}
	if update.Tags != nil {
		m.Tags = update.Tags
	}
	return m
}

// Store persists metadata records.
type Store interface {
	// GetMetadata returns an empty Metadata when nothing is stored.
	GetMetadata(ctx context.Context, id string) (Metadata, error)
	// UpdateMetadata merges update into the stored record.
	UpdateMetadata(ctx context.Context, id string, update Metadata) error
	DeleteMetadata(ctx context.Context, id string) error
}

// OperationFailedError reports a failed read or write of a metadata record.
type OperationFailedError struct {
	Op  string
	ID  string
	Err error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("metadata %s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid transcription id %q", id)
	}
	return nil
}

// Ptr returns a pointer to value, for building partial updates.
func Ptr(value string) *string {
	return &value
}
