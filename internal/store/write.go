package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayout is RFC 3339 in UTC with all nine fractional digits kept.
// Stored timestamps are compared as text, so every value must have the same
// width.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Run is one recorded suite run.
type Run struct {
	ID        string    `json:"id"`
	BaseDir   string    `json:"base_dir"`
	StartedAt time.Time `json:"started_at"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
}

// CaseRecord is the stored outcome of one fixture case within a run.
type CaseRecord struct {
	RunID     string        `json:"run_id"`
	Seq       int64         `json:"seq"`
	Fixture   string        `json:"fixture"`
	Pass      bool          `json:"pass"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// WriteRun records a run and its case results atomically.
//
// Passed and Failed on the stored run are computed from cases; the values
// on run are ignored. Seq is assigned from the position in cases starting
// at 1, and each record's RunID is set to run.ID.
func (s *Store) WriteRun(ctx context.Context, run Run, cases []CaseRecord) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	passed, failed := 0, 0
	for _, c := range cases {
		if c.Pass {
			passed++
		} else {
			failed++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, base_dir, started_at, passed, failed)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.BaseDir,
		formatTimestamp(run.StartedAt),
		passed,
		failed,
	)
	if err != nil {
		return fmt.Errorf("write run: insert run: %w", err)
	}

	for i, c := range cases {
		warnings := c.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		warningsJSON, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("write run: case %s: marshal warnings: %w", c.Fixture, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO case_results
			(run_id, seq, fixture, pass, error_kind, message, warnings, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			int64(i+1),
			c.Fixture,
			boolToInt(c.Pass),
			c.ErrorKind,
			c.Message,
			string(warningsJSON),
			c.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("write run: case %s: %w", c.Fixture, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Prune deletes every run except the newest keep runs, together with their
// case results, and returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must not be negative, got %d", keep)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs
			ORDER BY started_at DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
