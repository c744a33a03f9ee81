package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/preppal/internal/auth"
	"github.com/at-ishikawa/preppal/internal/config"
	"github.com/at-ishikawa/preppal/internal/database"
	"github.com/at-ishikawa/preppal/internal/inference"
	"github.com/at-ishikawa/preppal/internal/inference/openai"
	"github.com/at-ishikawa/preppal/internal/metadata"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

const (
	storageYAML     = "yaml"
	storageDatabase = "database"

	metadataBolt = "bolt"

	defaultRetryAttempts = 3
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openNoteStore opens the store named by storage. The returned function releases it.
func openNoteStore(ctx context.Context, cfg *config.Config, storage string) (note.Store, func(), error) {
	switch storage {
	case storageYAML:
		return note.NewYAMLStore(cfg.Notes.File), func() {}, nil
	case storageDatabase:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("database.Open() > %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("database.Migrate() > %w", err)
		}
		return note.NewDBStore(db), func() {
			if err := db.Close(); err != nil {
				slog.Default().Warn("failed to close the database", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown note storage %q", storage)
	}
}

// notesWorkspace is the notes repository loaded from its store.
// Save writes the notes back only when a mutation took effect.
type notesWorkspace struct {
	repository  *note.Repository
	store       note.Store
	close       func()
	unsubscribe func()
	dirty       bool
}

func openNotes(ctx context.Context, cfg *config.Config) (*notesWorkspace, error) {
	store, closeStore, err := openNoteStore(ctx, cfg, cfg.Notes.Storage)
	if err != nil {
		return nil, err
	}
	notes, err := store.FindAll(ctx)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("store.FindAll() > %w", err)
	}

	workspace := &notesWorkspace{
		repository: note.NewRepository(notes, subjectsFromConfig(cfg.Notes.Subjects)),
		store:      store,
		close:      closeStore,
	}
	workspace.unsubscribe = workspace.repository.Subscribe(func() {
		workspace.dirty = true
	})
	return workspace, nil
}

func (w *notesWorkspace) Save(ctx context.Context) error {
	if !w.dirty {
		return nil
	}
	if err := w.store.ReplaceAll(ctx, w.repository.Notes()); err != nil {
		return fmt.Errorf("store.ReplaceAll() > %w", err)
	}
	w.dirty = false
	return nil
}

func (w *notesWorkspace) Close() {
	w.unsubscribe()
	w.close()
}

func subjectsFromConfig(subjects []config.SubjectConfig) []note.Subject {
	result := make([]note.Subject, 0, len(subjects))
	for _, s := range subjects {
		result = append(result, note.Subject{ID: s.ID, Name: s.Name, Color: s.Color})
	}
	return result
}

// metadataStore returns the configured store and a function that releases it.
func openMetadataStore(cfg *config.Config) (metadata.Store, func(), error) {
	if cfg.Metadata.Backend != metadataBolt {
		return metadata.NewFileStore(cfg.Metadata.Directory), func() {}, nil
	}
	store, err := metadata.OpenBoltStore(cfg.Metadata.BoltFile)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata.OpenBoltStore() > %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Default().Warn("failed to close the metadata store", "error", err)
		}
	}, nil
}

func newAuthClient(cfg *config.Config) (*auth.Client, error) {
	client, err := auth.NewClient(auth.Config{
		APIKey:           cfg.Auth.APIKey,
		IdentityURL:      cfg.Auth.IdentityURL,
		TokenURL:         cfg.Auth.TokenURL,
		SessionFile:      cfg.Auth.SessionFile,
		MaxRetryAttempts: defaultRetryAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("auth.NewClient() > %w", err)
	}
	return client, nil
}

// openTranscriptions wires the backend client, the identity provider and the metadata store.
func openTranscriptions(cfg *config.Config) (*transcription.Service, func(), error) {
	authClient, err := newAuthClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := openMetadataStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	client := transcription.NewClient(cfg.API.BaseURL, authClient)
	return transcription.NewService(client, store), func() {
		if err := client.Close(); err != nil {
			slog.Default().Warn("failed to close the transcription client", "error", err)
		}
		closeStore()
	}, nil
}

func newInferenceClient(cfg *config.Config) (*openai.Client, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for summarization")
	}
	return openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, inference.DefaultMaxRetryAttempts), nil
}
