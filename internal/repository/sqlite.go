package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/pressly/goose/v3"

	"tourism-chat/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore is a single-file conversation store for local development.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("repository: sqlite path must not be empty")
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	// One writer keeps AUTOINCREMENT ids in commit order.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("repository: migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("repository: goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, userID string, turn domain.Turn) error {
	if err := validateAppend("Append", userID, turn); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (user_id, role, parts, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(turn.Role), turn.Text, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, userID string) (domain.Conversation, error) {
	if err := validateRead("ReadAll", userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, parts FROM turns WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: ReadAll query: %w", err)
	}
	defer rows.Close()

	conv := domain.Conversation{}
	for rows.Next() {
		var role, parts string
		if err := rows.Scan(&role, &parts); err != nil {
			return nil, fmt.Errorf("repository: ReadAll scan: %w", err)
		}
		conv = append(conv, domain.Turn{Role: domain.Role(role), Text: parts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: ReadAll rows: %w", err)
	}
	return conv, nil
}
