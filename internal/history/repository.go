// Package history records every item-file reload attempt in SQLite so
// operators can see when the model last changed and why a reload failed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

// timeLayout has a fixed-width fraction so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Record is one reload attempt.
type Record struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	OK         bool          `json:"ok"`
	Items      int           `json:"items"`
	Datapoints int           `json:"datapoints"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	ErrorLine  int           `json:"error_line,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// FromEvent converts a provider reload event into a Record.
func FromEvent(ev provider.ReloadEvent) Record {
	rec := Record{
		ID:         ev.ID,
		Source:     ev.Source,
		StartedAt:  ev.StartedAt,
		Duration:   ev.Duration,
		OK:         ev.OK(),
		Items:      ev.Items,
		Datapoints: ev.Datapoints,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
		var perr *mht.ParseError
		if errors.As(ev.Err, &perr) {
			rec.ErrorKind = perr.Kind.String()
			rec.ErrorLine = perr.Line
		}
	}
	return rec
}

// Filter controls which records List returns.
type Filter struct {
	Source string // optional: only this item file
	Failed bool   // optional: only failed attempts
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains one page of records, most recent first.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for reload history operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores reload history in the reload_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a reload history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a record. The ID and StartedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "rld-" + uuid.NewString()[:8]
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reload_history
		 (id, source, started_at, duration_ms, ok, items, datapoints, error_kind, error_line, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.Duration.Milliseconds(),
		boolToInt(rec.OK),
		rec.Items, rec.Datapoints,
		nullableString(rec.ErrorKind), nullableInt(rec.ErrorLine), nullableString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting reload record: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// List returns records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Failed {
		conditions = append(conditions, "ok = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM reload_history " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting reload records: %w", err)
	}

	query := `SELECT id, source, started_at, duration_ms, ok, items, datapoints, error_kind, error_line, error
		FROM reload_history ` + where + ` ORDER BY started_at DESC LIMIT ? OFFSET ?` //nolint:gosec // WHERE built from parameterised conditions
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reload records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reload records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var startedAt string
	var durationMS int64
	var ok int
	var errKind, errText sql.NullString
	var errLine sql.NullInt64

	if err := rows.Scan(&rec.ID, &rec.Source, &startedAt, &durationMS, &ok,
		&rec.Items, &rec.Datapoints, &errKind, &errLine, &errText); err != nil {
		return Record{}, fmt.Errorf("scanning reload record: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing reload timestamp %q: %w", startedAt, err)
	}
	rec.StartedAt = t
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.OK = ok == 1
	rec.ErrorKind = errKind.String
	rec.ErrorLine = int(errLine.Int64)
	rec.Error = errText.String
	return rec, nil
}
