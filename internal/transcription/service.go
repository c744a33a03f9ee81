package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/preppal/internal/metadata"
)

// Service combines the backend with locally stored metadata.
// Metadata values win over values derived from the backend.
type Service struct {
	gateway  Gateway
	metadata metadata.Store
}

func NewService(gateway Gateway, store metadata.Store) *Service {
	return &Service{
		gateway:  gateway,
		metadata: store,
	}
}

func (s *Service) List(ctx context.Context) ([]Transcription, error) {
	transcriptions, err := s.gateway.GetTranscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway.GetTranscriptions > %w", err)
	}
	for i := range transcriptions {
		merged, err := s.overlay(ctx, transcriptions[i])
		if err != nil {
			return nil, err
		}
		transcriptions[i] = merged
	}
	return transcriptions, nil
}

func (s *Service) Get(ctx context.Context, id string) (Transcription, error) {
	t, err := s.gateway.GetTranscription(ctx, id)
	if err != nil {
		return Transcription{}, fmt.Errorf("gateway.GetTranscription(%s) > %w", id, err)
	}
	return s.overlay(ctx, t)
}

func (s *Service) Create(ctx context.Context, text string, duration float64) (Transcription, error) {
	t, err := s.gateway.CreateTranscription(ctx, text, duration)
	if err != nil {
		return Transcription{}, fmt.Errorf("gateway.CreateTranscription > %w", err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, updates UpdateRequest) (Transcription, error) {
	t, err := s.gateway.UpdateTranscription(ctx, id, updates)
	if err != nil {
		return Transcription{}, fmt.Errorf("gateway.UpdateTranscription(%s) > %w", id, err)
	}
	return s.overlay(ctx, t)
}

// Delete removes the transcription from the backend and then its local metadata.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.gateway.DeleteTranscription(ctx, id); err != nil {
		return fmt.Errorf("gateway.DeleteTranscription(%s) > %w", id, err)
	}
	if err := s.metadata.DeleteMetadata(ctx, id); err != nil {
		return fmt.Errorf("metadata.DeleteMetadata(%s) > %w", id, err)
	}
	return nil
}

// UpdateMetadata stores local edits and returns the merged view.
func (s *Service) UpdateMetadata(ctx context.Context, id string, update metadata.Metadata) (Transcription, error) {
	t, err := s.gateway.GetTranscription(ctx, id)
	if err != nil {
		return Transcription{}, fmt.Errorf("gateway.GetTranscription(%s) > %w", id, err)
	}
	if err := s.metadata.UpdateMetadata(ctx, id, update); err != nil {
		return Transcription{}, fmt.Errorf("metadata.UpdateMetadata(%s) > %w", id, err)
	}
	return s.overlay(ctx, t)
}

// AddTag appends a trimmed tag. Blank tags are ignored.
func (s *Service) AddTag(ctx context.Context, id, tag string) (Transcription, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Transcription{}, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return t, nil
	}

	tags := append(append([]string{}, t.Tags...), tag)
	if err := s.metadata.UpdateMetadata(ctx, id, metadata.Metadata{Tags: tags}); err != nil {
		return Transcription{}, fmt.Errorf("metadata.UpdateMetadata(%s) > %w", id, err)
	}
	t.Tags = tags
	return t, nil
}

// RemoveTag removes every occurrence of tag.
func (s *Service) RemoveTag(ctx context.Context, id, tag string) (Transcription, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Transcription{}, err
	}

	tags := make([]string, 0, len(t.Tags))
	for _, existing := range t.Tags {
		if existing != tag {
			tags = append(tags, existing)
		}
	}
	if err := s.metadata.UpdateMetadata(ctx, id, metadata.Metadata{Tags: tags}); err != nil {
		return Transcription{}, fmt.Errorf("metadata.UpdateMetadata(%s) > %w", id, err)
	}
	t.Tags = tags
	return t, nil
}

func (s *Service) overlay(ctx context.Context, t Transcription) (Transcription, error) {
	m, err := s.metadata.GetMetadata(ctx, t.ID)
	if err != nil {
		return Transcription{}, fmt.Errorf("metadata.GetMetadata(%s) > %w", t.ID, err)
	}
	slog.Default().Debug("merging transcription metadata", "id", t.ID, "metadata", m)

	if m.Title != nil {
		t.Title = *m.Title
	}
	if m.Summary != nil {
		t.Summary = *m.Summary
	}
	if m.Tags != nil {
		t.Tags = append([]string{}, m.Tags...)
	}
	return t, nil
}
