// Package notify turns results and errors into short notifications for the user.
package notify

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/at-ishikawa/preppal/internal/auth"
	"github.com/at-ishikawa/preppal/internal/metadata"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/recording"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notification is a title with a short description.
type Notification struct {
	Level       Level
	Title       string
	Description string
}

func Info(title, description string) Notification {
	return Notification{Level: LevelInfo, Title: title, Description: description}
}

func Warning(title, description string) Notification {
	return Notification{Level: LevelWarning, Title: title, Description: description}
}

// FromError maps an error to the notification shown for it.
func FromError(err error) Notification {
	var authErr *auth.Error
	var requestErr *transcription.RequestFailedError
	var metadataErr *metadata.OperationFailedError

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return Notification{Level: LevelError, Title: "Not signed in", Description: "Please sign in to continue"}
	case errors.As(err, &authErr):
		return Notification{Level: LevelError, Title: "Authentication failed", Description: authErr.Error()}
	case errors.As(err, &requestErr):
		return Notification{Level: LevelError, Title: "Request failed", Description: requestErr.Error()}
	case errors.As(err, &metadataErr):
		return Notification{Level: LevelError, Title: "Could not save changes", Description: metadataErr.Err.Error()}
	case errors.Is(err, recording.ErrPermissionDenied):
		return Notification{Level: LevelError, Title: "Microphone access denied", Description: "Please allow microphone access to record lectures"}
	case errors.Is(err, recording.ErrDeviceUnavailable):
		return Notification{Level: LevelError, Title: "Microphone unavailable", Description: "No audio capture device could be opened"}
	case errors.Is(err, recording.ErrRecognitionUnavailable):
		return Notification{Level: LevelWarning, Title: "Live transcription unavailable", Description: "Recording continues without live transcription"}
	case errors.Is(err, note.ErrTitleAndContentRequired):
		return Notification{Level: LevelError, Title: "Missing fields", Description: err.Error()}
	default:
		return Notification{Level: LevelError, Title: "Something went wrong", Description: err.Error()}
	}
}

// Printer writes notifications to a terminal.
type Printer struct {
	writer io.Writer
	titles map[Level]*color.Color
}

func NewPrinter(writer io.Writer) *Printer {
	return &Printer{
		writer: writer,
		titles: map[Level]*color.Color{
			LevelInfo:    color.New(color.FgGreen, color.Bold),
			LevelWarning: color.New(color.FgYellow, color.Bold),
			LevelError:   color.New(color.FgRed, color.Bold),
		},
	}
}

func (p *Printer) Print(n Notification) {
	title := p.titles[n.Level]
	if title == nil {
		title = p.titles[LevelInfo]
	}
	if n.Description == "" {
		_, _ = title.Fprintln(p.writer, n.Title)
		return
	}
	_, _ = title.Fprint(p.writer, n.Title)
	_, _ = fmt.Fprintf(p.writer, ": %s\n", n.Description)
}

// Error prints the notification for err.
func (p *Printer) Error(err error) {
	p.Print(FromError(err))
}
