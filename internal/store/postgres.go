// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id              BIGSERIAL PRIMARY KEY,
	case_id         TEXT NOT NULL,
	flagged_count   INTEGER NOT NULL DEFAULT 0,
	review_required BOOLEAN NOT NULL DEFAULT FALSE,
	changed         BOOLEAN NOT NULL DEFAULT FALSE,
	diff            JSONB NOT NULL DEFAULT '[]',
	probability     DOUBLE PRECISION NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_runs_case ON audit_runs(case_id, recorded_at);
`

// Postgres is a shared audit trail for server deployments
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and creates the audit table
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, e Entry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO audit_runs (case_id, flagged_count, review_required, changed, diff, probability, recorded_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		e.CaseID, e.FlaggedCount, e.ReviewRequired, e.Changed, e.Diff, e.Probability, e.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, caseID string, limit int) ([]Entry, error) {
	query := `SELECT id, case_id, flagged_count, review_required, changed, diff::text, probability, recorded_at
		FROM audit_runs WHERE case_id = $1 ORDER BY recorded_at DESC, id DESC`
	args := []any{caseID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
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

// Ping reports database health for readiness probes
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
