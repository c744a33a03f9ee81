// Package inference asks a language model to study transcripts.
package inference

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client summarizes lecture transcripts
type Client interface {
	Summarize(ctx context.Context, params SummarizeRequest) (SummarizeResponse, error)
}

type SummarizeRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// SummarizeResponse is what the model extracted from a transcript
type SummarizeResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Tags      []string `json:"tags"`
}

const (
	DefaultMaxRetryAttempts = 3
)
