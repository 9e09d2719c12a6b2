package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores client preferences and, for the development server,
// users and boards.
type Repository struct {
	db *sql.DB
}

var (
	_ app.CredentialStore = (*Repository)(nil)
	_ app.Repository      = (*Repository)(nil)
)

// Open opens or creates the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash BLOB NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			columns_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_boards_owner ON boards(owner_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// GetPreference returns one stored preference.
func (r *Repository) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", app.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetPreference upserts one preference.
func (r *Repository) SetPreference(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences(key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, ts(time.Now()))
	return err
}

// DeletePreference removes one preference.
func (r *Repository) DeletePreference(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateUser inserts an account.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, ts(u.CreatedAt))
	if isUniqueViolation(err) {
		return app.ErrEmailTaken
	}
	return err
}

// GetUserByEmail returns the account registered under email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var (
		u          domain.User
		createdRaw string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, app.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = parseTS(createdRaw)
	return u, nil
}

// CreateBoard inserts a board owned by ownerID.
func (r *Repository) CreateBoard(ctx context.Context, ownerID string, b domain.Board, createdAt time.Time) error {
	columnsJSON, err := encodeColumns(b.Columns)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO boards(id, owner_id, name, description, columns_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, ownerID, b.Name, b.Description, columnsJSON, ts(createdAt), ts(createdAt))
	return err
}

// GetBoard returns one board owned by ownerID.
func (r *Repository) GetBoard(ctx context.Context, ownerID, boardID string) (domain.Board, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, columns_json
		FROM boards
		WHERE owner_id = ? AND id = ?
	`, ownerID, boardID)
	return scanBoard(row)
}

// ListBoards lists boards owned by ownerID in creation order.
func (r *Repository) ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, columns_json
		FROM boards
		WHERE owner_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBoardColumns replaces the column tree of one board.
func (r *Repository) UpdateBoardColumns(ctx context.Context, ownerID string, b domain.Board, updatedAt time.Time) error {
	columnsJSON, err := encodeColumns(b.Columns)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE boards
		SET columns_json = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`, columnsJSON, ts(updatedAt), ownerID, b.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanBoard handles scan board.
func scanBoard(s scanner) (domain.Board, error) {
	var (
		b          domain.Board
		columnsRaw string
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Description, &columnsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, app.ErrNotFound
		}
		return domain.Board{}, err
	}
	if strings.TrimSpace(columnsRaw) == "" {
		columnsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(columnsRaw), &b.Columns); err != nil {
		return domain.Board{}, fmt.Errorf("decode board columns_json: %w", err)
	}
	for idx := range b.Columns {
		if b.Columns[idx].Tasks == nil {
			b.Columns[idx].Tasks = []domain.Task{}
		}
	}
	return b, nil
}

func encodeColumns(columns []domain.Column) (string, error) {
	if columns == nil {
		columns = []domain.Column{}
	}
	raw, err := json.Marshal(columns)
	if err != nil {
		return "", fmt.Errorf("encode board columns: %w", err)
	}
	return string(raw), nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
