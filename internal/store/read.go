package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ReadRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) if nothing has been recorded.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, base_dir, started_at, passed, failed
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var startedAt string
		if err := rows.Scan(&run.ID, &run.BaseDir, &startedAt, &run.Passed, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: parse started_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCases returns the case results of a run in seq order.
func (s *Store) ReadCases(ctx context.Context, runID string) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, fixture, pass, error_kind, message, warnings, duration_ms
		FROM case_results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	return scanCases(rows)
}

// ReadFixtureHistory returns the recorded results of one fixture across
// runs, newest run first.
func (s *Store) ReadFixtureHistory(ctx context.Context, fixture string, limit int) ([]CaseRecord, error) {
	query := `
		SELECT c.run_id, c.seq, c.fixture, c.pass, c.error_kind, c.message, c.warnings, c.duration_ms
		FROM case_results c
		JOIN runs r ON r.id = c.run_id
		WHERE c.fixture = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
	`
	args := []any{fixture}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fixture history: %w", err)
	}
	defer rows.Close()

	return scanCases(rows)
}

func scanCases(rows *sql.Rows) ([]CaseRecord, error) {
	cases := []CaseRecord{}
	for rows.Next() {
		var c CaseRecord
		var pass int
		var warningsJSON string
		var durationMS int64
		if err := rows.Scan(&c.RunID, &c.Seq, &c.Fixture, &pass, &c.ErrorKind, &c.Message, &warningsJSON, &durationMS); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.Pass = pass == 1
		c.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(warningsJSON), &c.Warnings); err != nil {
			return nil, fmt.Errorf("case %s: unmarshal warnings: %w", c.Fixture, err)
		}
		if len(c.Warnings) == 0 {
			c.Warnings = nil
		}
		cases = append(cases, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}
