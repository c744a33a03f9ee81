package note

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/preppal/internal/transcription"
	"github.com/at-ishikawa/preppal/internal/validation"
)

const summaryLength = 100

// ErrTitleAndContentRequired is returned when a manual note lacks a title or content.
var ErrTitleAndContentRequired = errors.New("Please fill in both title and content")

// ManualInput is what a user types to create a note.
type ManualInput struct {
	Title   string
	Content string
	Subject string
	// Tags is a comma separated list.
	Tags string
}

// NewManualNote builds a note from user input dated on now.
func NewManualNote(input ManualInput, now time.Time) (Note, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return Note{}, ErrTitleAndContentRequired
	}

	subject := input.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	n := Note{
		ID:        uuid.NewString(),
		Title:     input.Title,
		Content:   input.Content,
		Subject:   subject,
		Tags:      ParseTags(input.Tags),
		Date:      now.Format(DateLayout),
		IsStarred: false,
		KeyPoints: []string{},
		Summary:   Summarize(input.Content),
		Source:    SourceManual,
	}
	if err := Validate(n); err != nil {
		return Note{}, err
	}
	return n, nil
}

// FromTranscription derives a note from the merged view of a transcription.
func FromTranscription(t transcription.Transcription, subject string, keyPoints []string) Note {
	if subject == "" {
		subject = DefaultSubject
	}
	if keyPoints == nil {
		keyPoints = []string{}
	}
	summary := t.Summary
	if summary == "" {
		summary = Summarize(t.Text)
	}

	return Note{
		ID:              uuid.NewString(),
		Title:           t.Title,
		Content:         t.Text,
		Subject:         subject,
		Tags:            cloneStrings(t.Tags),
		Date:            t.Date,
		KeyPoints:       cloneStrings(keyPoints),
		Summary:         summary,
		Source:          SourceTranscription,
		TranscriptionID: t.ID,
	}
}

// ParseTags splits a comma separated list, trimming entries and dropping empty ones.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, tag := range strings.Split(csv, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Summarize returns the first 100 characters of content followed by "...".
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) > summaryLength {
		runes = runes[:summaryLength]
	}
	return string(runes) + "..."
}

var noteValidator *validation.Validator

func init() {
	v, err := validation.New("yaml")
	if err != nil {
		panic(fmt.Sprintf("validation.New > %v", err))
	}
	noteValidator = v
}

// Validate checks the required fields of a note.
func Validate(n Note) error {
	if err := noteValidator.Struct(n); err != nil {
		return fmt.Errorf("invalid note %s: %w", n.ID, err)
	}
	return nil
}
