package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/preppal/internal/datasync"
	"github.com/at-ishikawa/preppal/internal/inference"
	"github.com/at-ishikawa/preppal/internal/note"
	"github.com/at-ishikawa/preppal/internal/notify"
)

type SortFlag string

// Set implements pflag.Value.
func (s *SortFlag) Set(v string) error {
	switch v {
	case string(SortNone):
		*s = SortNone
	case string(SortDescending):
		*s = SortDescending
	case string(SortAscending):
		*s = SortAscending
	default:
		return fmt.Errorf("invalid value %q, valid values are %q, %q or %q", v, SortNone, SortDescending, SortAscending)
	}
	return nil
}

// String implements pflag.Value.
func (s *SortFlag) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Type implements pflag.Value.
func (s *SortFlag) Type() string {
	return "SortFlag"
}

var (
	_ pflag.Value = (*SortFlag)(nil)
)

const (
	// SortNone keeps the notes in the order they were added, newest first.
	SortNone       SortFlag = "added"
	SortDescending SortFlag = "desc"
	SortAscending  SortFlag = "asc"
)

// sortNotes orders notes by date. Notes of the same date keep their order.
func sortNotes(notes []note.Note, order SortFlag) {
	switch order {
	case SortDescending:
		sort.SliceStable(notes, func(i, j int) bool {
			return notes[i].Date > notes[j].Date
		})
	case SortAscending:
		sort.SliceStable(notes, func(i, j int) bool {
			return notes[i].Date < notes[j].Date
		})
	}
}

func newNotesCommand() *cobra.Command {
	notesCommand := &cobra.Command{
		Use:   "notes",
		Short: "Manage study notes",
	}
	notesCommand.AddCommand(
		newNotesListCommand(),
		newNotesAddCommand(),
		newNotesShowCommand(),
		newNotesEditCommand(),
		newNotesDeleteCommand(),
		newNotesStarCommand(),
		newNotesFromTranscriptionCommand(),
		newNotesSyncCommand(),
	)
	return notesCommand
}

func newNotesListCommand() *cobra.Command {
	var filter note.Filter
	sortFlag := SortNone

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			notes := workspace.repository.Filter(filter)
			sortNotes(notes, sortFlag)
			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				fmt.Fprintln(out, "No notes found")
				return nil
			}
			for _, n := range notes {
				printNoteLine(out, n)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&filter.Query, "query", "q", "", "Search title, content and tags")
	flags.StringVar(&filter.Subject, "subject", "all", "Only notes of this subject")
	flags.BoolVar(&filter.StarredOnly, "starred", false, "Only starred notes")
	flags.Var(&sortFlag, "sort", "Sort order by date. Options: added, asc, desc")
	return cmd
}

func printNoteLine(out io.Writer, n note.Note) {
	star := " "
	if n.IsStarred {
		star = color.YellowString("*")
	}
	tags := ""
	if len(n.Tags) > 0 {
		tags = " #" + strings.Join(n.Tags, " #")
	}
	fmt.Fprintf(out, "%s %s  %s  [%s]%s  %s\n", star, n.ID, color.New(color.Bold).Sprint(n.Title), n.Subject, tags, n.Date)
}

func printNote(out io.Writer, n note.Note) {
	bold := color.New(color.Bold)
	title := n.Title
	if n.IsStarred {
		title += " " + color.YellowString("*")
	}
	bold.Fprintln(out, title)
	fmt.Fprintf(out, "ID: %s\nSubject: %s\nDate: %s\nSource: %s\n", n.ID, n.Subject, n.Date, n.Source)
	if n.TranscriptionID != "" {
		fmt.Fprintf(out, "Transcription: %s\n", n.TranscriptionID)
	}
	if len(n.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(n.Tags, ", "))
	}
	if n.Summary != "" {
		fmt.Fprintf(out, "\nSummary:\n%s\n", n.Summary)
	}
	if len(n.KeyPoints) > 0 {
		fmt.Fprintln(out, "\nKey points:")
		for _, point := range n.KeyPoints {
			fmt.Fprintf(out, "  - %s\n", point)
		}
	}
	fmt.Fprintf(out, "\n%s\n", n.Content)
}

func newNotesAddCommand() *cobra.Command {
	var input note.ManualInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := note.NewManualNote(input, time.Now())
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			workspace.repository.AddNote(n)
			if err := workspace.Save(cmd.Context()); err != nil {
				return err
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Note added", n.ID))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&input.Title, "title", "", "Title of the note")
	flags.StringVar(&input.Content, "content", "", "Content of the note")
	flags.StringVar(&input.Subject, "subject", "", "Subject of the note")
	flags.StringVar(&input.Tags, "tags", "", "Comma separated tags")
	return cmd
}

func newNotesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <note id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			n, ok := workspace.repository.GetNoteByID(args[0])
			if !ok {
				return fmt.Errorf("note %s not found", args[0])
			}
			printNote(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newNotesEditCommand() *cobra.Command {
	var title, content, subject, tags, summary, date string
	var keyPoints []string

	cmd := &cobra.Command{
		Use:   "edit <note id>",
		Short: "Change the given fields of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var update note.Update
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("content") {
				update.Content = &content
			}
			if flags.Changed("subject") {
				update.Subject = &subject
			}
			if flags.Changed("tags") {
				parsed := note.ParseTags(tags)
				update.Tags = &parsed
			}
			if flags.Changed("summary") {
				update.Summary = &summary
			}
			if flags.Changed("date") {
				update.Date = &date
			}
			if flags.Changed("key-point") {
				update.KeyPoints = &keyPoints
			}
			if update.IsEmpty() {
				return fmt.Errorf("nothing to change")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			if !workspace.repository.UpdateNote(args[0], update) {
				return fmt.Errorf("note %s not found", args[0])
			}
			updated, _ := workspace.repository.GetNoteByID(args[0])
			if err := note.Validate(updated); err != nil {
				return err
			}
			if err := workspace.Save(cmd.Context()); err != nil {
				return err
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Note updated", args[0]))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "New title")
	flags.StringVar(&content, "content", "", "New content")
	flags.StringVar(&subject, "subject", "", "New subject")
	flags.StringVar(&tags, "tags", "", "New comma separated tags")
	flags.StringVar(&summary, "summary", "", "New summary")
	flags.StringVar(&date, "date", "", "New date (YYYY-MM-DD)")
	flags.StringArrayVar(&keyPoints, "key-point", nil, "Key point, repeat for each one. Replaces the existing key points")
	return cmd
}

func newNotesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note id>",
		Short: "Delete a note permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			if !workspace.repository.DeleteNote(args[0]) {
				return fmt.Errorf("note %s not found", args[0])
			}
			if err := workspace.Save(cmd.Context()); err != nil {
				return err
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Note deleted", args[0]))
			return nil
		},
	}
}

func newNotesStarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "star <note id>",
		Short: "Star or unstar a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			if !workspace.repository.ToggleStarNote(args[0]) {
				return fmt.Errorf("note %s not found", args[0])
			}
			if err := workspace.Save(cmd.Context()); err != nil {
				return err
			}
			n, _ := workspace.repository.GetNoteByID(args[0])
			title := "Note unstarred"
			if n.IsStarred {
				title = "Note starred"
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info(title, n.Title))
			return nil
		},
	}
}

func newNotesFromTranscriptionCommand() *cobra.Command {
	var subject string
	var summarize bool

	cmd := &cobra.Command{
		Use:   "from-transcription <transcription id>",
		Short: "Create a note from a transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			service, closeService, err := openTranscriptions(cfg)
			if err != nil {
				return err
			}
			defer closeService()

			t, err := service.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("service.Get(%s) > %w", args[0], err)
			}

			var keyPoints []string
			if summarize {
				client, err := newInferenceClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()

				result, err := client.Summarize(ctx, inference.SummarizeRequest{Title: t.Title, Text: t.Text})
				if err != nil {
					return fmt.Errorf("client.Summarize() > %w", err)
				}
				t.Summary = result.Summary
				t.Tags = mergeTags(t.Tags, result.Tags)
				keyPoints = result.KeyPoints
			}

			n := note.FromTranscription(t, subject, keyPoints)
			workspace, err := openNotes(ctx, cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			workspace.repository.AddNote(n)
			if err := workspace.Save(ctx); err != nil {
				return err
			}
			notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Note created", n.ID))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "Subject of the note")
	flags.BoolVar(&summarize, "summarize", false, "Summarize the transcript with OpenAI")
	return cmd
}

func mergeTags(tags, additions []string) []string {
	result := append([]string{}, tags...)
	for _, tag := range additions {
		found := false
		for _, existing := range result {
			if existing == tag {
				found = true
				break
			}
		}
		if !found {
			result = append(result, tag)
		}
	}
	return result
}

func newNotesSyncCommand() *cobra.Command {
	var from, to string
	var dryRun, updateExisting bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy notes between the YAML file and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if from == to {
				return fmt.Errorf("--from and --to must differ")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			source, closeSource, err := openNoteStore(ctx, cfg, from)
			if err != nil {
				return err
			}
			defer closeSource()
			destination, closeDestination, err := openNoteStore(ctx, cfg, to)
			if err != nil {
				return err
			}
			defer closeDestination()

			out := cmd.OutOrStdout()
			importer := datasync.NewImporter(destination, out)
			result, err := importer.ImportFrom(ctx, source, datasync.ImportOptions{
				DryRun:         dryRun,
				UpdateExisting: updateExisting,
			})
			if err != nil {
				return fmt.Errorf("importer.ImportFrom() > %w", err)
			}

			prefix := ""
			if dryRun {
				prefix = "[DRY RUN] "
			}
			fmt.Fprintf(out, "%sNotes: %d new, %d updated, %d skipped\n", prefix, result.New, result.Updated, result.Skipped)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&from, "from", storageYAML, "Source storage: yaml or database")
	flags.StringVar(&to, "to", storageDatabase, "Destination storage: yaml or database")
	flags.BoolVar(&dryRun, "dry-run", false, "Show what would be imported without writing")
	flags.BoolVar(&updateExisting, "update-existing", false, "Overwrite notes that already exist in the destination")
	return cmd
}

func newSubjectsCommand() *cobra.Command {
	subjectsCommand := &cobra.Command{
		Use:   "subjects",
		Short: "Subjects of the notes",
	}
	subjectsCommand.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subjects with their note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workspace, err := openNotes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer workspace.Close()

			out := cmd.OutOrStdout()
			for _, subject := range workspace.repository.Subjects() {
				fmt.Fprintf(out, "%s\t%s\t%d\n", subject.ID, subject.Name, subject.NoteCount)
			}
			return nil
		},
	})
	return subjectsCommand
}
