// Package transcription talks to the transcription REST backend and builds the
// merged transcription view used by the CLI.
package transcription

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Segment is a piece of transcribed text. Timestamp is in whole seconds from the start.
type Segment struct {
	ID         string   `json:"id" yaml:"id"`
	Timestamp  int      `json:"timestamp" yaml:"timestamp"`
	Text       string   `json:"text" yaml:"text"`
	IsFinal    bool     `json:"isFinal" yaml:"is_final"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Transcription is the view of a stored transcription.
// Title, Summary and Tags may be overridden by locally stored metadata.
type Transcription struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration"`
	Segments  []Segment `json:"segments"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags"`
	Status    Status    `json:"status"`
	Created   string    `json:"created"`
	UID       string    `json:"uid"`
	Date      string    `json:"date"`
	AudioURL  string    `json:"audioUrl,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// Record is a transcription as returned by the backend.
type Record struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Created  string  `json:"created"`
	UID      string  `json:"uid"`
}

// CreateRequest is the body of POST /transcriptions.
type CreateRequest struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// UpdateRequest is the body of PUT /transcriptions/{id}. Nil fields are not sent.
type UpdateRequest struct {
	Text     *string  `json:"text,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}
