package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/krystal/internal/verify"
)

// Run is one recorded verification of a registry.
type Run struct {
	ID             string         `json:"id"`
	Seq            int64          `json:"seq"`
	RegistryDigest string         `json:"registry"`
	Strict         bool           `json:"strict"`
	OK             bool           `json:"ok"`
	Total          int            `json:"total"`
	Decoded        int            `json:"decoded"`
	Errors         int            `json:"errors"`
	IssueCount     int            `json:"issueCount"`
	Issues         []verify.Issue `json:"issues,omitempty"`
}

// NewRunID returns a time-ordered UUIDv7 string.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun appends a verification result to the log and returns the
// stored run. The run and its issues are written in one transaction.
func (s *Store) RecordRun(ctx context.Context, registryDigest string, strict bool, res verify.Result) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	run := Run{
		ID:             NewRunID(),
		Seq:            seq,
		RegistryDigest: registryDigest,
		Strict:         strict,
		OK:             res.OK,
		Total:          res.Total,
		Decoded:        res.Decoded,
		Errors:         res.Errors(),
		IssueCount:     len(res.Issues),
		Issues:         append([]verify.Issue{}, res.Issues...),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, registry_digest, strict, ok, total, decoded, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.RegistryDigest,
		boolToInt(run.Strict),
		boolToInt(run.OK),
		run.Total,
		run.Decoded,
		run.Errors,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues
		(run_id, position, idx, level, code, message, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("record run: prepare issues: %w", err)
	}
	defer stmt.Close()

	for pos, issue := range run.Issues {
		if _, err := stmt.ExecContext(ctx, run.ID, pos, issue.Index, string(issue.Level), issue.Code, issue.Message, issue.URL); err != nil {
			return Run{}, fmt.Errorf("record run: issue %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}

	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
