package transcription

import "context"

//go:generate mockgen -source=gateway.go -destination=../mocks/transcription/mock_gateway.go -package=mock_transcription

// TokenSource provides the bearer token of the signed-in user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Gateway is the set of backend operations on transcriptions.
type Gateway interface {
	GetTranscriptions(ctx context.Context) ([]Transcription, error)
	GetTranscription(ctx context.Context, id string) (Transcription, error)
	CreateTranscription(ctx context.Context, text string, duration float64) (Transcription, error)
	UpdateTranscription(ctx context.Context, id string, updates UpdateRequest) (Transcription, error)
	DeleteTranscription(ctx context.Context, id string) error
}
