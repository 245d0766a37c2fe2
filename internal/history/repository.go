package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
)

// Page size limits for Recent.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Entry is one journalled device exchange.
type Entry struct {
	ID        int64     `json:"id"`
	BindingID string    `json:"binding_id"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Direction string    `json:"direction"`
	Payload   string    `json:"payload"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryFromEvent converts a binding I/O event.
func EntryFromEvent(ev devfile.IOEvent) Entry {
	e := Entry{
		BindingID: ev.BindingID,
		Kind:      string(ev.Kind),
		Location:  ev.Location,
		Direction: string(ev.Direction),
		Payload:   ev.Payload,
		CreatedAt: ev.Time,
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	return e
}

// Repository stores and queries the journal.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	Recent(ctx context.Context, bindingID string, limit int) ([]Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository implements Repository on the binding_io table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository. The binding_io table must exist.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts an entry and sets its ID. CreatedAt defaults to now.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.BindingID == "" {
		return fmt.Errorf("%w: missing binding id", ErrInvalidEntry)
	}
	if e.Direction != string(devfile.DirectionRx) && e.Direction != string(devfile.DirectionTx) {
		return fmt.Errorf("%w: direction %q", ErrInvalidEntry, e.Direction)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO binding_io (binding_id, kind, location, direction, payload, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.BindingID, e.Kind, e.Location, e.Direction, e.Payload,
		nullableString(e.Error),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting binding io: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading binding io id: %w", err)
	}
	e.ID = id
	return nil
}

// Recent returns up to limit entries for a binding, newest first. A limit
// of zero or less means DefaultLimit; larger than MaxLimit is clamped.
func (r *SQLiteRepository) Recent(ctx context.Context, bindingID string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, binding_id, kind, location, direction, payload, error, created_at
		 FROM binding_io WHERE binding_id = ? ORDER BY id DESC LIMIT ?`,
		bindingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying binding io: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var errText sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.BindingID, &e.Kind, &e.Location, &e.Direction, &e.Payload, &errText, &created); err != nil {
			return nil, fmt.Errorf("scanning binding io row: %w", err)
		}
		e.Error = errText.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created) //nolint:errcheck // Format is controlled
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating binding io: %w", err)
	}
	return entries, nil
}

// Prune deletes entries created before the cutoff and returns how many were
// removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM binding_io WHERE created_at < ?",
		before.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning binding io: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning binding io: %w", err)
	}
	return n, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
