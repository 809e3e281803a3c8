package dialogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultDatabasePath is the default location for the audit database.
const DefaultDatabasePath = "records/dialogue.db"

// SQLiteStore persists dialogue records in a local SQLite database. One
// store owns one *sql.DB; individual appends and queries each use their own
// connection from the pool, so concurrent callers interleave freely.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// SQLiteConfig configures the SQLite-backed store.
type SQLiteConfig struct {
	Path string // database file location, DefaultDatabasePath when empty
}

// NewSQLiteStore opens (creating if necessary) the database and ensures the
// schema exists.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultDatabasePath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dialogue database: %w", err)
	}

	// WAL keeps readers from blocking the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dialogue_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		invocation_id TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		tag TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_dialogue_user ON dialogue_records(user_id);
	CREATE INDEX IF NOT EXISTS idx_dialogue_session ON dialogue_records(session_id);
	CREATE INDEX IF NOT EXISTS idx_dialogue_tag ON dialogue_records(tag);
	CREATE INDEX IF NOT EXISTS idx_dialogue_invocation ON dialogue_records(invocation_id);
	CREATE INDEX IF NOT EXISTS idx_dialogue_timestamp ON dialogue_records(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

const recordColumns = "id, timestamp, user_id, session_id, app_name, invocation_id, agent_name, tag, name, data"

// Append inserts one record and returns the assigned row ID.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (int64, error) {
	var data any
	if rec.Data != nil {
		b, err := json.Marshal(rec.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal record data: %w", err)
		}
		data = string(b)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dialogue_records
		(timestamp, user_id, session_id, app_name, invocation_id, agent_name, tag, name, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Timestamp, rec.UserID, rec.SessionID, rec.AppName,
		rec.InvocationID, rec.AgentName, string(rec.Tag), rec.Name, data,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return id, nil
}

// GetByID fetches a single record by its assigned ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE id = ?", id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}

	return rec, nil
}

// GetByInvocation fetches the first record written for a run.
func (s *SQLiteStore) GetByInvocation(ctx context.Context, invocationID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE invocation_id = ? ORDER BY id ASC LIMIT 1", invocationID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record for invocation %s: %w", invocationID, err)
	}

	return rec, nil
}

// GetByUser lists a user's records, newest first.
func (s *SQLiteStore) GetByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?",
		userID, normalizeLimit(limit))
}

// GetBySession lists a session's records, oldest first.
func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE session_id = ? ORDER BY timestamp ASC, id ASC LIMIT ?",
		sessionID, normalizeLimit(limit))
}

// GetByTag lists records for one lifecycle tag, newest first.
func (s *SQLiteStore) GetByTag(ctx context.Context, tag Tag, limit int) ([]Record, error) {
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE tag = ? ORDER BY timestamp DESC, id DESC LIMIT ?",
		string(tag), normalizeLimit(limit))
}

// SearchByKeyword matches the record name or the stored JSON payload,
// case-insensitively, newest first.
func (s *SQLiteStore) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]Record, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM dialogue_records WHERE (LOWER(name) LIKE ? OR LOWER(COALESCE(data, '')) LIKE ?) ORDER BY timestamp DESC, id DESC LIMIT ?",
		pattern, pattern, normalizeLimit(limit))
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec  Record
		tag  string
		data sql.NullString
	)

	if err := row.Scan(
		&rec.ID, &rec.Timestamp, &rec.UserID, &rec.SessionID, &rec.AppName,
		&rec.InvocationID, &rec.AgentName, &tag, &rec.Name, &data,
	); err != nil {
		return nil, err
	}

	rec.Tag = Tag(tag)

	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
		}
	}

	return &rec, nil
}

var _ Store = (*SQLiteStore)(nil)
