package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/preppal/internal/bootstrap"
	"github.com/at-ishikawa/preppal/internal/export"
	"github.com/at-ishikawa/preppal/internal/notify"
	"github.com/at-ishikawa/preppal/internal/recording"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

const (
	commandPause  = "/pause"
	commandResume = "/resume"
	commandStop   = "/stop"
	interimPrefix = "~"
)

func newRecordCommand() *cobra.Command {
	var pcmPath string
	var noSpeech, save, download bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a lecture with live transcription",
		Long: `Record a lecture. Recognized speech is read from stdin, one line per result:
a line starting with "~" is an interim result, any other line is final.
Type /pause, /resume or /stop to control the recording. Ctrl-C stops and keeps the recording.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var source recording.AudioSource = recording.SilentSource{}
			if pcmPath != "" {
				source = recording.PCMFileSource{Path: pcmPath}
			}
			var recognizer *recording.ManualRecognizer
			speech := recording.Unavailable()
			if !noSpeech {
				recognizer = recording.NewManualRecognizer()
				speech = recording.Available(recognizer)
			}

			var service *transcription.Service
			if save {
				var closeService func()
				service, closeService, err = openTranscriptions(cfg)
				if err != nil {
					return err
				}
				defer closeService()
			}

			out := cmd.OutOrStdout()
			session := newRecordSession(out, recognizer)
			var completeErr error
			session.onComplete = func(segments []transcription.Segment, elapsed int) {
				completeErr = completeRecording(cmd.Context(), out, service, download, cfg.Outputs.TranscriptDirectory, segments, elapsed)
			}
			session.engine = recording.NewEngine(source, speech, recording.Options{
				Language:       cfg.Recording.Language,
				SampleInterval: time.Duration(cfg.Recording.SampleIntervalMillis) * time.Millisecond,
				Callbacks:      session.callbacks(),
			})

			app := bootstrap.New()
			app.AddShutdownHook(func(ctx context.Context) error {
				if _, err := session.engine.Stop(); err != nil && !errors.Is(err, recording.ErrNotRecording) {
					return err
				}
				return nil
			})
			if err := app.Run(cmd.Context(), func(ctx context.Context) error {
				return session.Run(ctx, cmd.InOrStdin())
			}); err != nil {
				return err
			}
			return completeErr
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&pcmPath, "pcm", "", "Capture 16-bit mono PCM from this file or pipe instead of silence")
	flags.BoolVar(&noSpeech, "no-speech", false, "Record without live transcription")
	flags.BoolVar(&save, "save", false, "Upload the transcript when the recording stops")
	flags.BoolVar(&download, "download", false, "Write the transcript to the transcript directory when the recording stops")
	return cmd
}

// recordSession drives a recording engine from text commands.
type recordSession struct {
	engine     *recording.Engine
	recognizer *recording.ManualRecognizer
	out        io.Writer
	printer    *notify.Printer
	onComplete func(segments []transcription.Segment, elapsed int)
}

func newRecordSession(out io.Writer, recognizer *recording.ManualRecognizer) *recordSession {
	return &recordSession{
		recognizer: recognizer,
		out:        out,
		printer:    notify.NewPrinter(out),
	}
}

func (s *recordSession) callbacks() recording.Callbacks {
	return recording.Callbacks{
		OnSegment: func(segment transcription.Segment) {
			fmt.Fprintf(s.out, "%s %s\n", color.CyanString("[%s]", export.Clock(segment.Timestamp)), segment.Text)
		},
		OnInterim: func(text string) {
			if text != "" {
				fmt.Fprintln(s.out, color.New(color.Faint).Sprint("... "+text))
			}
		},
		OnWarning: func(err error) {
			s.printer.Error(err)
		},
		OnTranscribing: func(transcribing bool) {
			slog.Default().Debug("transcribing", "active", transcribing)
		},
		OnComplete: func(segments []transcription.Segment) {
			if s.onComplete != nil {
				s.onComplete(segments, s.engine.Elapsed())
			}
		},
	}
}

// Run starts recording and reads commands until /stop or the end of the input.
func (s *recordSession) Run(ctx context.Context, in io.Reader) error {
	if err := s.engine.Start(ctx); err != nil {
		return err
	}
	s.printer.Print(notify.Info("Recording", "type /pause, /resume or /stop"))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == commandPause:
			if err := s.engine.Pause(); err != nil {
				return err
			}
			s.printer.Print(notify.Warning("Recording paused", ""))
		case line == commandResume:
			if err := s.engine.Resume(ctx); err != nil {
				return err
			}
			s.printer.Print(notify.Info("Recording resumed", ""))
		case line == commandStop:
			return s.stop()
		case s.recognizer == nil:
			slog.Default().Debug("ignoring speech without recognition", "text", line)
		case strings.HasPrefix(line, interimPrefix):
			s.recognizer.Push(strings.TrimPrefix(line, interimPrefix), false)
		default:
			if !s.recognizer.Push(line, true) {
				slog.Default().Debug("no active recognition session", "text", line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = s.engine.Close()
		return fmt.Errorf("scanner.Scan() > %w", err)
	}
	return s.stop()
}

func (s *recordSession) stop() error {
	_, err := s.engine.Stop()
	if errors.Is(err, recording.ErrNotRecording) {
		return nil
	}
	return err
}

// completeRecording uploads and downloads the transcript of a finished recording.
func completeRecording(
	ctx context.Context,
	out io.Writer,
	service *transcription.Service,
	download bool,
	directory string,
	segments []transcription.Segment,
	elapsed int,
) error {
	printer := notify.NewPrinter(out)
	printer.Print(notify.Info("Recording stopped", fmt.Sprintf("%d segments, %s", len(segments), export.Clock(elapsed))))
	if len(segments) == 0 {
		return nil
	}

	var errs []error
	if download {
		path := filepath.Join(directory, fmt.Sprintf("lecture-transcript-%s.txt", time.Now().Format("2006-01-02")))
		if err := writeFile(path, export.LiveText(segments)); err != nil {
			errs = append(errs, err)
		} else {
			printer.Print(notify.Info("Download started", path))
		}
	}
	if service != nil {
		t, err := service.Create(context.WithoutCancel(ctx), export.FullText(segments), float64(elapsed))
		if err != nil {
			errs = append(errs, err)
		} else {
			printer.Print(notify.Info("Transcription saved", t.ID))
		}
	}
	return errors.Join(errs...)
}
