package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLitePointer stores the pointer in the single-row session_pointer table
// of the local cache. It has no change notification; consumers rely on the
// controller's polling.
type SQLitePointer struct{ db *sql.DB }

var _ PointerStore = (*SQLitePointer)(nil)

// NewSQLitePointer constructs a pointer store over the opened cache database.
func NewSQLitePointer(db *sql.DB) *SQLitePointer { return &SQLitePointer{db: db} }

func (p *SQLitePointer) Load(ctx context.Context) (string, error) {
	var tok string
	err := p.db.QueryRowContext(ctx, `SELECT token FROM session_pointer WHERE id = 1`).Scan(&tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: load pointer: %w", err)
	}
	return tok, nil
}

func (p *SQLitePointer) Save(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO session_pointer (id, token, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("session: save pointer: %w", err)
	}
	return nil
}

func (p *SQLitePointer) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM session_pointer WHERE id = 1`); err != nil {
		return fmt.Errorf("session: clear pointer: %w", err)
	}
	return nil
}

// Watch is unsupported; polling is the only change source for this store.
func (p *SQLitePointer) Watch(context.Context) <-chan struct{} { return nil }
