// Package datasync copies notes between note stores, such as a YAML file and a database.
package datasync

import (
	"context"
	"fmt"
	"io"

	"github.com/at-ishikawa/preppal/internal/note"
)

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	New     int
	Updated int
	Skipped int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer writes notes into a destination store.
type Importer struct {
	destination note.Store
	writer      io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(destination note.Store, writer io.Writer) *Importer {
	return &Importer{
		destination: destination,
		writer:      writer,
	}
}

// ImportFrom imports every note of the source store.
func (imp *Importer) ImportFrom(ctx context.Context, source note.Store, opts ImportOptions) (*ImportResult, error) {
	notes, err := source.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("source.FindAll() > %w", err)
	}
	return imp.Import(ctx, notes, opts)
}

// Import merges notes into the destination by ID.
// Existing notes keep their position, and new notes are appended in the given order.
func (imp *Importer) Import(ctx context.Context, notes []note.Note, opts ImportOptions) (*ImportResult, error) {
	existing, err := imp.destination.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("destination.FindAll() > %w", err)
	}

	merged := make([]note.Note, len(existing))
	copy(merged, existing)
	positions := make(map[string]int, len(existing))
	for i, n := range existing {
		positions[n.ID] = i
	}

	var result ImportResult
	for _, n := range notes {
		if err := note.Validate(n); err != nil {
			return nil, fmt.Errorf("note.Validate(%s) > %w", n.ID, err)
		}

		position, found := positions[n.ID]
		if !found {
			positions[n.ID] = len(merged)
			merged = append(merged, n)
			fmt.Fprintf(imp.writer, "  [NEW]  %q (%s)\n", n.Title, n.ID)
			result.New++
			continue
		}
		if !opts.UpdateExisting {
			fmt.Fprintf(imp.writer, "  [SKIP]  %q (%s)\n", n.Title, n.ID)
			result.Skipped++
			continue
		}
		merged[position] = n
		fmt.Fprintf(imp.writer, "  [UPDATE]  %q (%s)\n", n.Title, n.ID)
		result.Updated++
	}

	if opts.DryRun || result.New+result.Updated == 0 {
		return &result, nil
	}
	if err := imp.destination.ReplaceAll(ctx, merged); err != nil {
		return nil, fmt.Errorf("destination.ReplaceAll() > %w", err)
	}
	return &result, nil
}
