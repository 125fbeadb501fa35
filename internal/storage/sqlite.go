package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements AuditStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_root TEXT,
			issue TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			session_id INTEGER,
			round INTEGER,
			transcript JSON,
			PRIMARY KEY (session_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS calls (
			session_id INTEGER,
			round INTEGER,
			seq INTEGER,
			text TEXT,
			ok BOOLEAN,
			PRIMARY KEY (session_id, round, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS locations (
			session_id INTEGER,
			seq INTEGER,
			rel_file TEXT,
			start_line INTEGER,
			end_line INTEGER,
			class_name TEXT,
			method_name TEXT,
			intended_behavior TEXT,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) BeginSession(ctx context.Context, projectRoot, issue string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (project_root, issue) VALUES (?, ?)`,
		projectRoot, issue)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) SaveRound(ctx context.Context, sessionID int64, round int, transcriptJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (session_id, round, transcript)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, round) DO UPDATE SET
			transcript=excluded.transcript
	`, sessionID, round, transcriptJSON)
	return err
}

func (s *SQLiteStore) SaveCalls(ctx context.Context, sessionID int64, round int, calls []CallRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO calls (session_id, round, seq, text, ok) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, call := range calls {
		if _, err := stmt.ExecContext(ctx, sessionID, round, i, call.Text, call.OK); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveLocations(ctx context.Context, sessionID int64, locations []LocationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO locations
			(session_id, seq, rel_file, start_line, end_line, class_name, method_name, intended_behavior)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, loc := range locations {
		_, err := stmt.ExecContext(ctx, sessionID, i,
			loc.RelFile, loc.Start, loc.End, loc.ClassName, loc.MethodName, loc.IntendedBehavior)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SessionRounds returns the stored transcripts of a session keyed by round.
func (s *SQLiteStore) SessionRounds(ctx context.Context, sessionID int64) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT round, transcript FROM rounds WHERE session_id = ? ORDER BY round`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var round int
		var transcript string
		if err := rows.Scan(&round, &transcript); err != nil {
			return nil, err
		}
		out[round] = transcript
	}
	return out, rows.Err()
}

// SessionLocations returns the stored locations of a session in order.
func (s *SQLiteStore) SessionLocations(ctx context.Context, sessionID int64) ([]LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rel_file, start_line, end_line, class_name, method_name, intended_behavior
		FROM locations WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocationRecord
	for rows.Next() {
		var loc LocationRecord
		err := rows.Scan(&loc.RelFile, &loc.Start, &loc.End,
			&loc.ClassName, &loc.MethodName, &loc.IntendedBehavior)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// MarshalLocations serializes location records the way they appear in the
// per-round JSON dumps.
func MarshalLocations(locations []LocationRecord) (string, error) {
	data, err := json.MarshalIndent(locations, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
