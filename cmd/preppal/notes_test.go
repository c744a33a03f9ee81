package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/preppal/internal/config"
	"github.com/at-ishikawa/preppal/internal/database"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/testutil"
)

func setupNotes(t *testing.T, notes ...note.Note) (string, string) {
	t.Helper()
	t.Setenv("PREPPAL_API_URL", "")
	tmpDir := t.TempDir()
	cfgPath := testutil.SetupTestConfig(t, tmpDir, "http://localhost:9000")
	if len(notes) > 0 {
		testutil.WriteNotes(t, filepath.Join(tmpDir, "notes.yml"), notes)
	}
	return cfgPath, tmpDir
}

func readNotes(t *testing.T, tmpDir string) []note.Note {
	t.Helper()
	notes, err := note.NewYAMLStore(filepath.Join(tmpDir, "notes.yml")).FindAll(context.Background())
	require.NoError(t, err)
	return notes
}

func TestNotesCommands(t *testing.T) {
	limits := testutil.NewNote("n1", "Limits", "Mathematics")
	limits.Tags = []string{"calculus"}
	atoms := testutil.NewNote("n2", "Atoms", "Chemistry")
	atoms.Date = "2024-03-05"
	cfgPath, tmpDir := setupNotes(t, limits, atoms)

	t.Run("add", func(t *testing.T) {
		output, err := executeCommand(t, "", "notes", "add", "--config", cfgPath,
			"--title", "Derivatives", "--content", "Rates of change", "--subject", "Mathematics", "--tags", "calculus, exam")
		require.NoError(t, err)
		assert.Contains(t, output, "Note added")

		notes := readNotes(t, tmpDir)
		require.Len(t, notes, 3)
		assert.Equal(t, "Derivatives", notes[0].Title)
		assert.Equal(t, []string{"calculus", "exam"}, notes[0].Tags)
		assert.Equal(t, note.SourceManual, notes[0].Source)
		assert.Equal(t, "Rates of change...", notes[0].Summary)
	})

	t.Run("add requires title and content", func(t *testing.T) {
		_, err := executeCommand(t, "", "notes", "add", "--config", cfgPath, "--title", "Only a title")
		assert.ErrorIs(t, err, note.ErrTitleAndContentRequired)
		assert.Len(t, readNotes(t, tmpDir), 3)
	})

	t.Run("list filters", func(t *testing.T) {
		output, err := executeCommand(t, "", "notes", "list", "--config", cfgPath, "--query", "CALCULUS")
		require.NoError(t, err)
		assert.Contains(t, output, "Derivatives")
		assert.Contains(t, output, "Limits")
		assert.NotContains(t, output, "Atoms")

		output, err = executeCommand(t, "", "notes", "list", "--config", cfgPath, "--subject", "Chemistry")
		require.NoError(t, err)
		assert.Contains(t, output, "Atoms")
		assert.NotContains(t, output, "Limits")
	})

	t.Run("star", func(t *testing.T) {
		output, err := executeCommand(t, "", "notes", "star", "--config", cfgPath, "n2")
		require.NoError(t, err)
		assert.Contains(t, output, "Note starred")

		output, err = executeCommand(t, "", "notes", "list", "--config", cfgPath, "--starred")
		require.NoError(t, err)
		assert.Contains(t, output, "Atoms")
		assert.NotContains(t, output, "Limits")
	})

	t.Run("edit changes only the given fields", func(t *testing.T) {
		_, err := executeCommand(t, "", "notes", "edit", "--config", cfgPath, "n1",
			"--title", "Limits and continuity", "--key-point", "epsilon-delta", "--key-point", "squeeze theorem")
		require.NoError(t, err)

		output, err := executeCommand(t, "", "notes", "show", "--config", cfgPath, "n1")
		require.NoError(t, err)
		assert.Contains(t, output, "Limits and continuity")
		assert.Contains(t, output, "Limits content")
		assert.Contains(t, output, "  - squeeze theorem")
		assert.Contains(t, output, "Tags: calculus")
	})

	t.Run("edit without fields", func(t *testing.T) {
		_, err := executeCommand(t, "", "notes", "edit", "--config", cfgPath, "n1")
		assert.ErrorContains(t, err, "nothing to change")
	})

	t.Run("edit rejects an empty title", func(t *testing.T) {
		_, err := executeCommand(t, "", "notes", "edit", "--config", cfgPath, "n1", "--title", "")
		assert.Error(t, err)
		n, _ := findNote(readNotes(t, tmpDir), "n1")
		assert.Equal(t, "Limits and continuity", n.Title)
	})

	t.Run("subjects", func(t *testing.T) {
		output, err := executeCommand(t, "", "subjects", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, output, "math\tMathematics\t2\n")
		assert.Contains(t, output, "chemistry\tChemistry\t1\n")
		assert.Contains(t, output, "physics\tPhysics\t0\n")
	})

	t.Run("delete", func(t *testing.T) {
		_, err := executeCommand(t, "", "notes", "delete", "--config", cfgPath, "n2")
		require.NoError(t, err)
		_, found := findNote(readNotes(t, tmpDir), "n2")
		assert.False(t, found)

		_, err = executeCommand(t, "", "notes", "delete", "--config", cfgPath, "n2")
		assert.ErrorContains(t, err, "not found")
	})
}

func findNote(notes []note.Note, id string) (note.Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n, true
		}
	}
	return note.Note{}, false
}

func TestSortNotes(t *testing.T) {
	notes := func() []note.Note {
		a := testutil.NewNote("a", "A", "Math")
		a.Date = "2024-03-02"
		b := testutil.NewNote("b", "B", "Math")
		b.Date = "2024-03-03"
		c := testutil.NewNote("c", "C", "Math")
		c.Date = "2024-03-01"
		return []note.Note{a, b, c}
	}
	ids := func(notes []note.Note) []string {
		result := []string{}
		for _, n := range notes {
			result = append(result, n.ID)
		}
		return result
	}

	tests := []struct {
		order SortFlag
		want  []string
	}{
		{order: SortNone, want: []string{"a", "b", "c"}},
		{order: SortDescending, want: []string{"b", "a", "c"}},
		{order: SortAscending, want: []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			sorted := notes()
			sortNotes(sorted, tt.order)
			assert.Equal(t, tt.want, ids(sorted))
		})
	}
}

func TestNotesSyncCommand(t *testing.T) {
	cfgPath, tmpDir := setupNotes(t,
		testutil.NewNote("n1", "Limits", "Mathematics"),
		testutil.NewNote("n2", "Atoms", "Chemistry"),
	)

	output, err := executeCommand(t, "", "notes", "sync", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, output, "[DRY RUN] Notes: 2 new, 0 updated, 0 skipped")

	output, err = executeCommand(t, "", "notes", "sync", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Notes: 2 new, 0 updated, 0 skipped")

	output, err = executeCommand(t, "", "notes", "sync", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Notes: 0 new, 0 updated, 2 skipped")

	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, Path: filepath.Join(tmpDir, "notes.db")})
	require.NoError(t, err)
	defer db.Close()
	stored, err := note.NewDBStore(db).FindAll(context.Background())
	require.NoError(t, err)
	var titles []string
	for _, n := range stored {
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{"Limits", "Atoms"}, titles)

	_, err = executeCommand(t, "", "notes", "sync", "--config", cfgPath, "--from", "yaml", "--to", "yaml")
	assert.ErrorContains(t, err, "must differ")
}
