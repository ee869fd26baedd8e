// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"strings"
	"time"
)

// Entry is one audit trail row: the outcome of a pipeline run
type Entry struct {
	ID             int64     `json:"id" yaml:"id"`
	CaseID         string    `json:"case_id" yaml:"case_id"`
	FlaggedCount   int       `json:"flagged_count" yaml:"flagged_count"`
	ReviewRequired bool      `json:"review_required" yaml:"review_required"`
	Changed        bool      `json:"changed" yaml:"changed"`
	Diff           string    `json:"diff" yaml:"diff"` // JSON-encoded correction diff
	Probability    float64   `json:"probability" yaml:"probability"`
	RecordedAt     time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Store persists audit entries
type Store interface {
	Save(ctx context.Context, e Entry) error
	// List returns the newest entries for a case first; limit <= 0 means no limit
	List(ctx context.Context, caseID string, limit int) ([]Entry, error)
	Close() error
}

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs
// open a pgx pool, anything else is a SQLite file path. An empty DSN
// returns a nil Store.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
}
