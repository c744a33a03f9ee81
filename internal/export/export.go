// Package export renders transcriptions as downloadable documents.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/preppal/internal/transcription"
)

// Timestamp formats seconds as m:ss.
func Timestamp(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Clock formats seconds as mm:ss, the format of the live recorder.
func Clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Duration formats seconds as "1h 5m" or "5m".
func Duration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// PlainText is the downloadable text format of a saved transcription.
func PlainText(t transcription.Transcription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	fmt.Fprintf(&b, "Date: %s\n", t.Date)
	fmt.Fprintf(&b, "Duration: %s\n", Duration(t.Duration))
	b.WriteString("\n")

	lines := make([]string, 0, len(t.Segments))
	for _, segment := range t.Segments {
		lines = append(lines, fmt.Sprintf("[%s] %s", Timestamp(segment.Timestamp), segment.Text))
	}
	b.WriteString(strings.Join(lines, "\n\n"))
	return b.String()
}

// LiveText is one "[mm:ss] text" line per segment.
func LiveText(segments []transcription.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, segment := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s", Clock(segment.Timestamp), segment.Text))
	}
	return strings.Join(lines, "\n")
}

// FullText joins the segment texts with a space.
func FullText(segments []transcription.Segment) string {
	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Text)
	}
	return strings.Join(texts, " ")
}

func Markdown(t transcription.Transcription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- Date: %s\n", t.Date)
	fmt.Fprintf(&b, "- Duration: %s\n", Duration(t.Duration))
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(t.Tags, ", "))
	}

	if t.Summary != "" {
		fmt.Fprintf(&b, "\n## Summary\n\n%s\n", t.Summary)
	}

	b.WriteString("\n## Transcript\n")
	for _, segment := range t.Segments {
		fmt.Fprintf(&b, "\n**[%s]** %s\n", Timestamp(segment.Timestamp), segment.Text)
	}
	return b.String()
}

// WritePDF renders markdown into a PDF file and returns its absolute path.
func WritePDF(markdown, pdfPath string) (string, error) {
	if !strings.HasSuffix(pdfPath, ".pdf") {
		return "", fmt.Errorf("output file must have .pdf extension: %s", pdfPath)
	}
	if dir := filepath.Dir(pdfPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
		}
	}

	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process([]byte(markdown)); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}

var unsafeFileNameCharacters = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName builds a download file name from a title, e.g. "Week 1: Limits" and "txt" give "week_1__limits.txt".
func FileName(title, ext string) string {
	return strings.ToLower(unsafeFileNameCharacters.ReplaceAllString(title, "_")) + "." + ext
}
