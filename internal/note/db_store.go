package note

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/preppal/internal/database"
)

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("json.Marshal > %w", err)
	}
	return string(encoded), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("json.Unmarshal > %w", err)
	}
	if values == nil {
		values = []string{}
	}
	*l = values
	return nil
}

type noteRow struct {
	ID              string     `db:"id"`
	SortOrder       int        `db:"sort_order"`
	Title           string     `db:"title"`
	Content         string     `db:"content"`
	Subject         string     `db:"subject"`
	Tags            StringList `db:"tags"`
	Date            string     `db:"note_date"`
	IsStarred       bool       `db:"is_starred"`
	KeyPoints       StringList `db:"key_points"`
	Summary         string     `db:"summary"`
	Source          string     `db:"source"`
	TranscriptionID string     `db:"transcription_id"`
}

func newNoteRow(n Note, sortOrder int) noteRow {
	return noteRow{
		ID:              n.ID,
		SortOrder:       sortOrder,
		Title:           n.Title,
		Content:         n.Content,
		Subject:         n.Subject,
		Tags:            StringList(n.Tags),
		Date:            n.Date,
		IsStarred:       n.IsStarred,
		KeyPoints:       StringList(n.KeyPoints),
		Summary:         n.Summary,
		Source:          string(n.Source),
		TranscriptionID: n.TranscriptionID,
	}
}

func (row noteRow) toNote() Note {
	return Note{
		ID:              row.ID,
		Title:           row.Title,
		Content:         row.Content,
		Subject:         row.Subject,
		Tags:            []string(row.Tags),
		Date:            row.Date,
		IsStarred:       row.IsStarred,
		KeyPoints:       []string(row.KeyPoints),
		Summary:         row.Summary,
		Source:          Source(row.Source),
		TranscriptionID: row.TranscriptionID,
	}
}

const selectNotesQuery = `SELECT id, sort_order, title, content, subject, tags, note_date, is_starred, key_points, summary, source, transcription_id
	FROM notes ORDER BY sort_order`

const insertNoteQuery = `INSERT INTO notes
	(id, sort_order, title, content, subject, tags, note_date, is_starred, key_points, summary, source, transcription_id)
	VALUES (:id, :sort_order, :title, :content, :subject, :tags, :note_date, :is_starred, :key_points, :summary, :source, :transcription_id)`

// DBStore keeps notes in the notes table of a MySQL or SQLite database.
type DBStore struct {
	db *sqlx.DB
}

var _ Store = (*DBStore)(nil)

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) FindAll(ctx context.Context) ([]Note, error) {
	var rows []noteRow
	if err := s.db.SelectContext(ctx, &rows, selectNotesQuery); err != nil {
		return nil, fmt.Errorf("db.SelectContext(notes) > %w", err)
	}

	notes := make([]Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.toNote())
	}
	return notes, nil
}

// ReplaceAll rewrites the table in one transaction.
func (s *DBStore) ReplaceAll(ctx context.Context, notes []Note) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes"); err != nil {
			return fmt.Errorf("tx.ExecContext(delete notes) > %w", err)
		}
		for i, n := range notes {
			if _, err := tx.NamedExecContext(ctx, insertNoteQuery, newNoteRow(n, i)); err != nil {
				return fmt.Errorf("tx.NamedExecContext(insert note %s) > %w", n.ID, err)
			}
		}
		return nil
	})
}
