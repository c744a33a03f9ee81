package transcription

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	wordsPerSegment = 20
	titleWords      = 6
)

var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Transformer converts backend records into transcriptions.
type Transformer struct {
	confidence *float64
}

type TransformerOption func(*Transformer)

// WithConfidence sets the confidence reported on every derived segment.
// Without it segments carry no confidence.
func WithConfidence(value float64) TransformerOption {
	return func(t *Transformer) {
		t.confidence = &value
	}
}

func NewTransformer(options ...TransformerOption) Transformer {
	var t Transformer
	for _, option := range options {
		option(&t)
	}
	return t
}

// Transform splits the text into segments of 20 words and derives the title and date.
func (t Transformer) Transform(record Record) Transcription {
	return Transcription{
		ID:        record.ID,
		Title:     Title(record.Text),
		Text:      record.Text,
		Duration:  record.Duration,
		Segments:  t.Segments(record.Text, record.Duration),
		Tags:      []string{},
		Status:    StatusCompleted,
		Created:   record.Created,
		UID:       record.UID,
		Date:      FormatDate(record.Created),
		UpdatedAt: record.Created,
	}
}

// Segments splits text into chunks of 20 words. The timestamp of a chunk is
// proportional to the position of its first word within the whole text.
func (t Transformer) Segments(text string, duration float64) []Segment {
	words := strings.Fields(text)
	segments := make([]Segment, 0, (len(words)+wordsPerSegment-1)/wordsPerSegment)
	for i := 0; i < len(words); i += wordsPerSegment {
		end := min(i+wordsPerSegment, len(words))
		segment := Segment{
			ID:        strconv.Itoa(len(segments) + 1),
			Timestamp: int(math.Floor(float64(i) / float64(len(words)) * duration)),
			Text:      strings.Join(words[i:end], " "),
			IsFinal:   true,
		}
		if t.confidence != nil {
			confidence := *t.confidence
			segment.Confidence = &confidence
		}
		segments = append(segments, segment)
	}
	return segments
}

// Title returns the first six words followed by "...".
func Title(text string) string {
	words := strings.Fields(text)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	return strings.Join(words, " ") + "..."
}

// FormatDate formats the backend creation time as YYYY-MM-DD.
// Unparseable values are returned unchanged.
func FormatDate(created string) string {
	for _, layout := range createdLayouts {
		if parsed, err := time.Parse(layout, created); err == nil {
			return parsed.Format(time.DateOnly)
		}
	}
	return created
}
