// Package local implements the record store over a local durable SQLite
// cache. It is the fallback path, not the system of record: it must arbitrate
// uniqueness itself because no server sits behind it.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/migrate"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
	"github.com/gamehub/identity/internal/reconcile"
)

// Open opens (or creates) the local cache file and applies pending migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "identity.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	// journal_mode may not be supported in some contexts (e.g. in-memory).
	_, _ = db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Store implements record.Store using SQLite.
type Store struct{ db *sql.DB }

var _ record.Store = (*Store)(nil)

// New constructs a local store over an opened cache database.
func New(db *sql.DB) *Store { return &Store{db: db} }

const accountCols = `id, username, email, credential, tier, is_active, is_guest, guest_id, created_at, updated_at, last_login_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Credential, &a.Tier,
		&a.IsActive, &a.IsGuest, &a.GuestID, &a.CreatedAt, &a.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		a.LastLoginAt = lastLogin.Time
	}
	return &a, nil
}

func (s *Store) getWhere(ctx context.Context, where string, arg any) (*model.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts WHERE ` + where
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local: get: %w", err)
	}
	return a, nil
}

// Get loads an account by id.
func (s *Store) Get(ctx context.Context, id string) (*model.Account, error) {
	return s.getWhere(ctx, `id = ?`, id)
}

// GetByUsername loads an account by username (case-sensitive).
func (s *Store) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getWhere(ctx, `username = ?`, username)
}

// GetByEmail loads an account by email. Empty emails are never a match.
func (s *Store) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if email == "" {
		return nil, errs.ErrNotFound
	}
	return s.getWhere(ctx, `email = ?`, email)
}

// List returns all cached accounts, newest first.
func (s *Store) List(ctx context.Context) ([]model.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("local: list: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("local: list scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// checkUnique re-checks username/email uniqueness against the full local set.
// excludeID skips the record being updated.
func checkUnique(ctx context.Context, tx *sql.Tx, username, email, excludeID string) error {
	var n int
	if username != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM accounts WHERE username = ? AND id <> ?`,
			username, excludeID).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrDuplicateUsername
		}
	}
	if email != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM accounts WHERE email = ? AND id <> ?`,
			email, excludeID).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrDuplicateEmail
		}
	}
	return nil
}

// Create inserts a new account, assigning id and timestamps when absent.
func (s *Store) Create(ctx context.Context, n record.NewAccount) (*model.Account, error) {
	now := time.Now().UTC()
	a := model.Account{
		ID:         n.ID,
		Username:   n.Username,
		Email:      n.Email,
		Credential: n.Credential,
		Tier:       n.Tier,
		IsActive:   n.IsActive,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  now,
	}
	if a.ID == "" {
		a.ID = "user_" + uuid.Must(uuid.NewV4()).String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("local: create: %w", err)
	}
	defer tx.Rollback()

	if err := checkUnique(ctx, tx, a.Username, a.Email, a.ID); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO accounts (`+accountCols+`)
VALUES (?, ?, ?, ?, ?, ?, 0, '', ?, ?, NULL)`,
		a.ID, a.Username, a.Email, a.Credential, a.Tier, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("local: create insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("local: create commit: %w", err)
	}
	return &a, nil
}

// Update applies a partial update inside one transaction.
func (s *Store) Update(ctx context.Context, id string, p record.Patch) (*model.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("local: update: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local: update load: %w", err)
	}

	if p.Username != nil {
		cur.Username = *p.Username
	}
	if p.Email != nil {
		cur.Email = *p.Email
	}
	if p.Credential != nil {
		cur.Credential = *p.Credential
	}
	if p.Tier != nil {
		cur.Tier = *p.Tier
	}
	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	if p.LastLoginAt != nil {
		cur.LastLoginAt = *p.LastLoginAt
	}
	cur.UpdatedAt = time.Now().UTC()

	if err := checkUnique(ctx, tx, cur.Username, cur.Email, cur.ID); err != nil {
		return nil, err
	}

	var lastLogin any
	if !cur.LastLoginAt.IsZero() {
		lastLogin = cur.LastLoginAt
	}
	_, err = tx.ExecContext(ctx, `
UPDATE accounts
SET username = ?, email = ?, credential = ?, tier = ?, is_active = ?, updated_at = ?, last_login_at = ?
WHERE id = ?`,
		cur.Username, cur.Email, cur.Credential, cur.Tier, cur.IsActive, cur.UpdatedAt, lastLogin, cur.ID)
	if err != nil {
		return nil, fmt.Errorf("local: update exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("local: update commit: %w", err)
	}
	return cur, nil
}

// Delete removes an account. It reports false when no row matched.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("local: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Stats aggregates account counts.
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(1),
       COALESCE(SUM(is_active), 0),
       COALESCE(SUM(tier = 'admin'), 0),
       COALESCE(SUM(tier = 'superAdmin'), 0),
       COALESCE(SUM(tier = 'regular'), 0),
       COALESCE(SUM(is_guest), 0)
FROM accounts`).Scan(&st.Total, &st.Active, &st.Admins, &st.SuperAdmins, &st.Regulars, &st.Guests)
	if err != nil {
		return nil, fmt.Errorf("local: stats: %w", err)
	}
	return &st, nil
}

// LegacyAccounts reads the secondary legacy store snapshot for the one-time
// import. The reduced shape has no email and uses the user_type vocabulary.
func (s *Store) LegacyAccounts(ctx context.Context) ([]reconcile.SecondaryAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, credential, user_type, created_at FROM legacy_accounts`)
	if err != nil {
		return nil, fmt.Errorf("local: legacy: %w", err)
	}
	defer rows.Close()

	var out []reconcile.SecondaryAccount
	for rows.Next() {
		var la reconcile.SecondaryAccount
		if err := rows.Scan(&la.ID, &la.Username, &la.Credential, &la.UserType, &la.CreatedAt); err != nil {
			return nil, fmt.Errorf("local: legacy scan: %w", err)
		}
		out = append(out, la)
	}
	return out, rows.Err()
}

const importDoneKey = "legacy_import_done"

// ImportDone reports whether the one-time legacy import already ran.
func (s *Store) ImportDone(ctx context.Context) (bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, importDoneKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// MarkImportDone records completion of the legacy import.
func (s *Store) MarkImportDone(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = '1'`, importDoneKey)
	return err
}
