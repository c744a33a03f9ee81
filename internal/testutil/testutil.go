// Package testutil provides shared test helpers for config files, note fixtures and a
// fake transcription backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

// SetupTestConfig creates a config file whose local state lives under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir, apiURL string) string {
	t.Helper()

	dirs := []string{"metadata", "transcripts"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`api:
  base_url: %s
auth:
  session_file: %s
notes:
  storage: yaml
  file: %s
metadata:
  backend: file
  directory: %s
  bolt_file: %s
database:
  driver: sqlite
  path: %s
outputs:
  transcript_directory: %s
`,
		apiURL,
		filepath.Join(tmpDir, "session.yml"),
		filepath.Join(tmpDir, "notes.yml"),
		filepath.Join(tmpDir, "metadata"),
		filepath.Join(tmpDir, "metadata.db"),
		filepath.Join(tmpDir, "notes.db"),
		filepath.Join(tmpDir, "transcripts"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAPIKey creates a config file with a fake OpenAI API key for tests
// that require API key validation to pass.
func SetupTestConfigWithAPIKey(t *testing.T, tmpDir, apiURL string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir, apiURL)

	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = append(content, []byte("openai:\n  api_key: fake-key-for-testing\n  model: gpt-4o-mini\n")...)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	return cfgPath
}

// WriteSession stores a signed-in session that does not expire during the test.
func WriteSession(t *testing.T, tmpDir, uid, idToken string) {
	t.Helper()
	content := fmt.Sprintf(`user:
  uid: %s
  email: %s@example.com
id_token: %s
refresh_token: refresh-%s
expires_at: 2999-01-01T00:00:00Z
`, uid, uid, idToken, uid)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "session.yml"), []byte(content), 0600))
}

// WriteNotes writes a notes YAML file.
func WriteNotes(t *testing.T, path string, notes []note.Note) {
	t.Helper()
	content, err := yaml.Marshal(map[string][]note.Note{"notes": notes})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

// NewNote returns a valid manual note fixture.
func NewNote(id, title, subject string) note.Note {
	return note.Note{
		ID:        id,
		Title:     title,
		Content:   title + " content",
		Subject:   subject,
		Tags:      []string{},
		Date:      "2024-03-04",
		KeyPoints: []string{},
		Source:    note.SourceManual,
	}
}

// TranscriptionBackend is an in-memory transcription REST backend.
type TranscriptionBackend struct {
	*httptest.Server

	token string

	mu      sync.Mutex
	records []transcription.Record
	nextID  int
}

// NewTranscriptionBackend starts a backend that accepts requests with the bearer token.
func NewTranscriptionBackend(t *testing.T, token string, records ...transcription.Record) *TranscriptionBackend {
	t.Helper()
	backend := &TranscriptionBackend{
		token:   token,
		records: append([]transcription.Record{}, records...),
		nextID:  len(records) + 1,
	}
	backend.Server = httptest.NewServer(http.HandlerFunc(backend.serve))
	t.Cleanup(backend.Close)
	return backend
}

// Records returns the stored records.
func (b *TranscriptionBackend) Records() []transcription.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transcription.Record{}, b.records...)
}

func (b *TranscriptionBackend) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+b.token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid authentication credentials"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := strings.TrimPrefix(r.URL.Path, "/transcriptions/")
	switch {
	case r.URL.Path == "/transcriptions" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, b.records)
	case r.URL.Path == "/transcriptions" && r.Method == http.MethodPost:
		var request transcription.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
			return
		}
		record := transcription.Record{
			ID:       strconv.Itoa(b.nextID),
			Text:     request.Text,
			Duration: request.Duration,
			Created:  "2024-03-04T10:00:00Z",
			UID:      "uid-1",
		}
		b.nextID++
		b.records = append(b.records, record)
		writeJSON(w, http.StatusOK, record)
	case id != r.URL.Path:
		index := b.indexOf(id)
		if index < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Transcription not found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, b.records[index])
		case http.MethodPut:
			var request transcription.UpdateRequest
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
				return
			}
			if request.Text != nil {
				b.records[index].Text = *request.Text
			}
			if request.Duration != nil {
				b.records[index].Duration = *request.Duration
			}
			writeJSON(w, http.StatusOK, b.records[index])
		case http.MethodDelete:
			b.records = append(b.records[:index], b.records[index+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"message": "Transcription deleted"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *TranscriptionBackend) indexOf(id string) int {
	for i, record := range b.records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
