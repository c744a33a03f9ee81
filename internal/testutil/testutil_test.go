package testutil

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/preppal/internal/config"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

func TestSetupTestConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PREPPAL_API_URL", "")
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir, "http://localhost:9000")
	assert.Equal(t, filepath.Join(tmpDir, "config.yml"), got)

	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	assert.Equal(t, filepath.Join(tmpDir, "notes.yml"), cfg.Notes.File)
	assert.Equal(t, filepath.Join(tmpDir, "session.yml"), cfg.Auth.SessionFile)
	assert.Empty(t, cfg.OpenAI.APIKey)

	info, err := os.Stat(filepath.Join(tmpDir, "metadata"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSetupTestConfigWithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	tmpDir := t.TempDir()
	got := SetupTestConfigWithAPIKey(t, tmpDir, "http://localhost:9000")

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Contains(t, string(content), "api_key: fake-key-for-testing")
	assert.Contains(t, string(content), "notes:")
}

func TestWriteNotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notes.yml")
	want := []note.Note{NewNote("1", "Limits", "Mathematics"), NewNote("2", "Atoms", "Chemistry")}
	WriteNotes(t, path, want)

	got, err := note.NewYAMLStore(path).FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTranscriptionBackend(t *testing.T) {
	backend := NewTranscriptionBackend(t, "token-1", transcription.Record{
		ID: "1", Text: "first lecture", Duration: 60, Created: "2024-03-01T10:00:00Z", UID: "uid-1",
	})
	client := transcription.NewClient(backend.URL, staticToken("token-1"))
	defer client.Close()
	ctx := context.Background()

	created, err := client.CreateTranscription(ctx, "second lecture", 90)
	require.NoError(t, err)
	assert.Equal(t, "2", created.ID)

	text := "updated lecture"
	updated, err := client.UpdateTranscription(ctx, "2", transcription.UpdateRequest{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "updated lecture", updated.Text)

	require.NoError(t, client.DeleteTranscription(ctx, "1"))
	all, err := client.GetTranscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID)
	assert.Len(t, backend.Records(), 1)

	_, err = client.GetTranscription(ctx, "1")
	var requestErr *transcription.RequestFailedError
	require.True(t, errors.As(err, &requestErr))
	assert.Equal(t, http.StatusNotFound, requestErr.StatusCode)
	assert.Equal(t, "Transcription not found", requestErr.Detail)

	unauthorized := transcription.NewClient(backend.URL, staticToken("wrong"))
	defer unauthorized.Close()
	_, err = unauthorized.GetTranscriptions(ctx)
	require.True(t, errors.As(err, &requestErr))
	assert.Equal(t, http.StatusUnauthorized, requestErr.StatusCode)
}
