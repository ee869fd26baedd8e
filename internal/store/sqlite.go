// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id         TEXT NOT NULL,
	flagged_count   INTEGER NOT NULL DEFAULT 0,
	review_required INTEGER NOT NULL DEFAULT 0,
	changed         INTEGER NOT NULL DEFAULT 0,
	diff            TEXT NOT NULL DEFAULT '[]',
	probability     REAL NOT NULL,
	recorded_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_runs_case ON audit_runs(case_id, recorded_at);
`

// SQLite is a file-backed audit trail
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the audit database at path
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (case_id, flagged_count, review_required, changed, diff, probability, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CaseID, e.FlaggedCount, e.ReviewRequired, e.Changed, e.Diff, e.Probability, e.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, caseID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, flagged_count, review_required, changed, diff, probability, recorded_at
		 FROM audit_runs WHERE case_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		caseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CaseID, &e.FlaggedCount, &e.ReviewRequired, &e.Changed,
			&e.Diff, &e.Probability, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
