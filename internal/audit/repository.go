package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timestampLayout has a fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Entry is one handled command.
type Entry struct {
	ID         string    `json:"id"`
	Verb       string    `json:"verb"`
	Target     string    `json:"target,omitempty"`
	Command    string    `json:"command"`
	Response   string    `json:"response"`
	Status     int       `json:"status"`
	Relays     int       `json:"relays"`
	Source     string    `json:"source"`
	DurationMS float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Verb   string // optional: exact verb
	Target string // optional: exact target device
	Status int    // optional: exact status code (0 = any)
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and lists command log entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the command_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and CreatedAt are generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log (id, verb, target, command, response, status, relays, source, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Verb, nullableString(e.Target), e.Command, e.Response,
		e.Status, e.Relays, e.Source, e.DurationMS,
		e.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Verb != "" {
		conditions = append(conditions, "verb = ?")
		args = append(args, filter.Verb)
	}
	if filter.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.Status != 0 {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_log " + where //nolint:gosec // WHERE built from fixed, parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := "SELECT id, verb, target, command, response, status, relays, source, duration_ms, created_at FROM command_log " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var target sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Verb, &target, &e.Command, &e.Response,
			&e.Status, &e.Relays, &e.Source, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}
		e.Target = target.String
		if e.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing command log timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
