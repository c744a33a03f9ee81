package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/preppal/internal/export"
	"github.com/at-ishikawa/preppal/internal/inference"
	"github.com/at-ishikawa/preppal/internal/metadata"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/notify"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

type ExportFormat string

// Set implements pflag.Value.
func (f *ExportFormat) Set(v string) error {
	switch ExportFormat(v) {
	case ExportText, ExportMarkdown, ExportPDF:
		*f = ExportFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid value %q, valid values are %q, %q or %q", v, ExportText, ExportMarkdown, ExportPDF)
	}
}

// String implements pflag.Value.
func (f *ExportFormat) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Type implements pflag.Value.
func (f *ExportFormat) Type() string {
	return "ExportFormat"
}

const (
	ExportText     ExportFormat = "txt"
	ExportMarkdown ExportFormat = "md"
	ExportPDF      ExportFormat = "pdf"
)

func newTranscriptionsCommand() *cobra.Command {
	transcriptionsCommand := &cobra.Command{
		Use:     "transcriptions",
		Aliases: []string{"tr"},
		Short:   "Manage recorded transcriptions",
	}
	transcriptionsCommand.AddCommand(
		newTranscriptionsListCommand(),
		newTranscriptionsShowCommand(),
		newTranscriptionsCreateCommand(),
		newTranscriptionsUpdateCommand(),
		newTranscriptionsDeleteCommand(),
		newTranscriptionsExportCommand(),
		newTranscriptionsMetaCommand(),
		newTranscriptionsTagCommand(),
		newTranscriptionsSummarizeCommand(),
	)
	return transcriptionsCommand
}

// withTranscriptions loads the config and runs fn with the transcription service.
func withTranscriptions(cmd *cobra.Command, fn func(service *transcription.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	service, closeService, err := openTranscriptions(cfg)
	if err != nil {
		return err
	}
	defer closeService()
	return fn(service)
}

func printTranscriptionLine(out io.Writer, t transcription.Transcription) {
	tags := ""
	if len(t.Tags) > 0 {
		tags = "  #" + strings.Join(t.Tags, " #")
	}
	fmt.Fprintf(out, "%s  %s  %s  %s%s\n", t.ID, color.New(color.Bold).Sprint(t.Title), t.Date, export.Duration(t.Duration), tags)
}

func newTranscriptionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transcriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTranscriptions(cmd, func(service *transcription.Service) error {
				transcriptions, err := service.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(transcriptions) == 0 {
					fmt.Fprintln(out, "No transcriptions found")
					return nil
				}
				for _, t := range transcriptions {
					printTranscriptionLine(out, t)
				}
				return nil
			})
		},
	}
}

func newTranscriptionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <transcription id>",
		Short: "Show a transcription with its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTranscriptions(cmd, func(service *transcription.Service) error {
				t, err := service.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(t.Tags) > 0 {
					fmt.Fprintf(out, "Tags: %s\n", strings.Join(t.Tags, ", "))
				}
				if t.Summary != "" {
					fmt.Fprintf(out, "Summary: %s\n", t.Summary)
				}
				fmt.Fprintln(out, export.PlainText(t))
				return nil
			})
		},
	}
}

func newTranscriptionsCreateCommand() *cobra.Command {
	var text, file string
	var duration float64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Upload a transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("os.ReadFile(%s) > %w", file, err)
				}
				text = string(content)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("either --text or --file is required")
			}

			return withTranscriptions(cmd, func(service *transcription.Service) error {
				t, err := service.Create(cmd.Context(), text, duration)
				if err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Transcription saved", t.ID))
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&text, "text", "", "Transcript text")
	flags.StringVar(&file, "file", "", "Read the transcript from a file")
	flags.Float64Var(&duration, "duration", 0, "Duration of the recording in seconds")
	return cmd
}

func newTranscriptionsUpdateCommand() *cobra.Command {
	var text string
	var duration float64

	cmd := &cobra.Command{
		Use:   "update <transcription id>",
		Short: "Change the text or duration stored on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var request transcription.UpdateRequest
			if cmd.Flags().Changed("text") {
				request.Text = &text
			}
			if cmd.Flags().Changed("duration") {
				request.Duration = &duration
			}
			if request.Text == nil && request.Duration == nil {
				return fmt.Errorf("nothing to change")
			}

			return withTranscriptions(cmd, func(service *transcription.Service) error {
				if _, err := service.Update(cmd.Context(), args[0], request); err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Transcription updated", "Your changes have been saved successfully."))
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&text, "text", "", "New transcript text")
	flags.Float64Var(&duration, "duration", 0, "New duration in seconds")
	return cmd
}

func newTranscriptionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transcription id>",
		Short: "Delete a transcription and its local metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTranscriptions(cmd, func(service *transcription.Service) error {
				if err := service.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Transcription deleted", args[0]))
				return nil
			})
		},
	}
}

func newTranscriptionsExportCommand() *cobra.Command {
	format := ExportText
	var output string

	cmd := &cobra.Command{
		Use:   "export <transcription id>",
		Short: "Write a transcription to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			service, closeService, err := openTranscriptions(cfg)
			if err != nil {
				return err
			}
			defer closeService()

			t, err := service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = filepath.Join(cfg.Outputs.TranscriptDirectory, export.FileName(t.Title, string(format)))
			}
			switch format {
			case ExportPDF:
				path, err = export.WritePDF(export.Markdown(t), path)
				if err != nil {
					return fmt.Errorf("export.WritePDF() > %w", err)
				}
			default:
				content := export.PlainText(t)
				if format == ExportMarkdown {
					content = export.Markdown(t)
				}
				if err := writeFile(path, content); err != nil {
					return err
				}
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Download started", path))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Var(&format, "format", "Output format. Options: txt, md, pdf")
	flags.StringVarP(&output, "output", "o", "", "Output file. Defaults to the transcript directory")
	return cmd
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return nil
}

func newTranscriptionsMetaCommand() *cobra.Command {
	var title, summary, tags string

	cmd := &cobra.Command{
		Use:   "meta <transcription id>",
		Short: "Edit the title, summary or tags kept on this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update metadata.Metadata
			if cmd.Flags().Changed("title") {
				update.Title = metadata.Ptr(title)
			}
			if cmd.Flags().Changed("summary") {
				update.Summary = metadata.Ptr(summary)
			}
			if cmd.Flags().Changed("tags") {
				update.Tags = note.ParseTags(tags)
			}
			if update.Title == nil && update.Summary == nil && update.Tags == nil {
				return fmt.Errorf("nothing to change")
			}

			return withTranscriptions(cmd, func(service *transcription.Service) error {
				t, err := service.UpdateMetadata(cmd.Context(), args[0], update)
				if err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Transcription updated", "Your changes have been saved successfully."))
				printTranscriptionLine(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "New title")
	flags.StringVar(&summary, "summary", "", "New summary")
	flags.StringVar(&tags, "tags", "", "Comma separated tags replacing the current ones")
	return cmd
}

func newTranscriptionsTagCommand() *cobra.Command {
	tagCommand := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove tags",
	}
	tagCommand.AddCommand(
		&cobra.Command{
			Use:   "add <transcription id> <tag>",
			Short: "Add a tag",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTranscriptions(cmd, func(service *transcription.Service) error {
					t, err := service.AddTag(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					printTranscriptionLine(cmd.OutOrStdout(), t)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <transcription id> <tag>",
			Short: "Remove a tag",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTranscriptions(cmd, func(service *transcription.Service) error {
					t, err := service.RemoveTag(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					printTranscriptionLine(cmd.OutOrStdout(), t)
					return nil
				})
			},
		},
	)
	return tagCommand
}

func newTranscriptionsSummarizeCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "summarize <transcription id>",
		Short: "Summarize a transcription with OpenAI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newInferenceClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			service, closeService, err := openTranscriptions(cfg)
			if err != nil {
				return err
			}
			defer closeService()

			t, err := service.Get(ctx, args[0])
			if err != nil {
				return err
			}
			result, err := client.Summarize(ctx, inference.SummarizeRequest{Title: t.Title, Text: t.Text})
			if err != nil {
				return fmt.Errorf("client.Summarize() > %w", err)
			}
			printSummary(cmd.OutOrStdout(), result)

			if !save {
				return nil
			}
			if _, err := service.UpdateMetadata(ctx, t.ID, metadata.Metadata{
				Summary: metadata.Ptr(result.Summary),
				Tags:    mergeTags(t.Tags, result.Tags),
			}); err != nil {
				return err
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Transcription updated", "Summary and tags saved"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Store the summary and tags as local metadata")
	return cmd
}

func printSummary(out io.Writer, result inference.SummarizeResponse) {
	bold := color.New(color.Bold)
	bold.Fprintln(out, "Summary")
	fmt.Fprintln(out, result.Summary)
	if len(result.KeyPoints) > 0 {
		bold.Fprintln(out, "\nKey points")
		for _, point := range result.KeyPoints {
			fmt.Fprintf(out, "  - %s\n", point)
		}
	}
	if len(result.Tags) > 0 {
		fmt.Fprintf(out, "\nTags: %s\n", strings.Join(result.Tags, ", "))
	}
}
