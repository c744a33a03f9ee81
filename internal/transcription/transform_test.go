package transcription

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	result := make([]string, n)
	for i := range result {
		result[i] = "w"
	}
	return strings.Join(result, " ")
}

func TestTransformer_Segments(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		duration       float64
		wantTexts      []string
		wantTimestamps []int
	}{
		{
			name:           "40 words over 100 seconds",
			text:           words(40),
			duration:       100,
			wantTexts:      []string{words(20), words(20)},
			wantTimestamps: []int{0, 50},
		},
		{
			name:           "partial last chunk",
			text:           words(45),
			duration:       90,
			wantTexts:      []string{words(20), words(20), words(5)},
			wantTimestamps: []int{0, 40, 80},
		},
		{
			name:           "timestamps are floored",
			text:           words(30),
			duration:       10,
			wantTexts:      []string{words(20), words(10)},
			wantTimestamps: []int{0, 6},
		},
		{
			name:           "extra whitespace is collapsed",
			text:           "  hello   world \n again ",
			duration:       3,
			wantTexts:      []string{"hello world again"},
			wantTimestamps: []int{0},
		},
		{
			name:           "empty text has no segments",
			text:           "",
			duration:       30,
			wantTexts:      []string{},
			wantTimestamps: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTransformer().Segments(tt.text, tt.duration)

			gotTexts := make([]string, 0, len(got))
			gotTimestamps := make([]int, 0, len(got))
			for i, segment := range got {
				assert.Equal(t, strconv.Itoa(i+1), segment.ID)
				assert.True(t, segment.IsFinal)
				assert.Nil(t, segment.Confidence)
				gotTexts = append(gotTexts, segment.Text)
				gotTimestamps = append(gotTimestamps, segment.Timestamp)
			}
			assert.Equal(t, tt.wantTexts, gotTexts)
			assert.Equal(t, tt.wantTimestamps, gotTimestamps)
		})
	}
}

func TestTransformer_WithConfidence(t *testing.T) {
	got := NewTransformer(WithConfidence(0.95)).Segments(words(25), 10)
	require.Len(t, got, 2)
	for _, segment := range got {
		require.NotNil(t, segment.Confidence)
		assert.Equal(t, 0.95, *segment.Confidence)
	}
	// Each segment owns its value.
	*got[0].Confidence = 0.1
	assert.Equal(t, 0.95, *got[1].Confidence)
}

func TestTransformer_Transform(t *testing.T) {
	record := Record{
		ID:       "abc",
		Text:     "Today we will discuss machine learning and its applications",
		Duration: 120,
		Created:  "2024-01-15T10:30:00.123456",
		UID:      "user-1",
	}

	got := NewTransformer().Transform(record)

	assert.Equal(t, Transcription{
		ID:       "abc",
		Title:    "Today we will discuss machine learning...",
		Text:     record.Text,
		Duration: 120,
		Segments: []Segment{
			{ID: "1", Timestamp: 0, Text: record.Text, IsFinal: true},
		},
		Tags:      []string{},
		Status:    StatusCompleted,
		Created:   "2024-01-15T10:30:00.123456",
		UID:       "user-1",
		Date:      "2024-01-15",
		UpdatedAt: "2024-01-15T10:30:00.123456",
	}, got)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "long text", text: "one two three four five six seven", want: "one two three four five six..."},
		{name: "short text", text: "one two", want: "one two..."},
		{name: "empty text", text: "", want: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.text))
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name    string
		created string
		want    string
	}{
		{name: "RFC3339", created: "2024-03-01T23:59:59Z", want: "2024-03-01"},
		{name: "ISO without zone", created: "2024-03-01T08:00:00", want: "2024-03-01"},
		{name: "space separated", created: "2024-03-01 08:00:00.5", want: "2024-03-01"},
		{name: "unparseable", created: "yesterday", want: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.created))
		})
	}
}
