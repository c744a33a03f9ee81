// Package note provides the study note model, the in-memory notes repository and
// the stores that persist notes between runs.
package note

// Source tells how a note was created.
type Source string

const (
	SourceTranscription Source = "transcription"
	SourceManual        Source = "manual"
)

// DefaultSubject is assigned to manual notes created without a subject.
const DefaultSubject = "General"

// DateLayout is the layout of Note.Date.
const DateLayout = "2006-01-02"

// Note is a study note.
type Note struct {
	ID              string   `yaml:"id" json:"id" validate:"required"`
	Title           string   `yaml:"title" json:"title" validate:"required"`
	Content         string   `yaml:"content" json:"content" validate:"required"`
	Subject         string   `yaml:"subject" json:"subject"`
	Tags            []string `yaml:"tags" json:"tags"`
	Date            string   `yaml:"date" json:"date"`
	IsStarred       bool     `yaml:"is_starred" json:"isStarred"`
	KeyPoints       []string `yaml:"key_points" json:"keyPoints"`
	Summary         string   `yaml:"summary" json:"summary"`
	Source          Source   `yaml:"source" json:"source" validate:"oneof=transcription manual"`
	TranscriptionID string   `yaml:"transcription_id,omitempty" json:"transcriptionId,omitempty"`
}

// Subject groups notes. NoteCount is derived from the notes whose Subject equals Name.
type Subject struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Color     string `yaml:"color" json:"color"`
	NoteCount int    `yaml:"note_count" json:"noteCount"`
}

// Update is a partial update of a note. Nil fields are left unchanged.
type Update struct {
	Title           *string
	Content         *string
	Subject         *string
	Tags            *[]string
	Date            *string
	IsStarred       *bool
	KeyPoints       *[]string
	Summary         *string
	Source          *Source
	TranscriptionID *string
}

// Apply returns n with the non-nil fields of u merged in.
func (u Update) Apply(n Note) Note {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.Subject != nil {
		n.Subject = *u.Subject
	}
	if u.Tags != nil {
		n.Tags = cloneStrings(*u.Tags)
	}
	if u.Date != nil {
		n.Date = *u.Date
	}
	if u.IsStarred != nil {
		n.IsStarred = *u.IsStarred
	}
	if u.KeyPoints != nil {
		n.KeyPoints = cloneStrings(*u.KeyPoints)
	}
	if u.Summary != nil {
		n.Summary = *u.Summary
	}
	if u.Source != nil {
		n.Source = *u.Source
	}
	if u.TranscriptionID != nil {
		n.TranscriptionID = *u.TranscriptionID
	}
	return n
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u == Update{}
}

func (n Note) clone() Note {
	n.Tags = cloneStrings(n.Tags)
	n.KeyPoints = cloneStrings(n.KeyPoints)
	return n
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	result := make([]string, len(values))
	copy(result, values)
	return result
}
