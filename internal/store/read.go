package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/krystal/internal/verify"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `
	r.id, r.seq, r.registry_digest, r.strict, r.ok, r.total, r.decoded, r.errors,
	(SELECT COUNT(*) FROM issues i WHERE i.run_id = r.id)
`

// ListRuns returns recorded runs in seq order without their issues.
// An empty registryDigest lists runs for every registry.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, registryDigest string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		WHERE ? = '' OR r.registry_digest = ?
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`, registryDigest, registryDigest)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadRun returns one run with its issues in recorded order.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	run.Issues, err = s.readIssues(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) readIssues(ctx context.Context, runID string) ([]verify.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, level, code, message, url
		FROM issues
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	issues := []verify.Issue{}
	for rows.Next() {
		var issue verify.Issue
		var level string
		if err := rows.Scan(&issue.Index, &level, &issue.Code, &issue.Message, &issue.URL); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.Level = verify.Level(level)
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var strict, ok int
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.RegistryDigest,
		&strict,
		&ok,
		&run.Total,
		&run.Decoded,
		&run.Errors,
		&run.IssueCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Strict = strict == 1
	run.OK = ok == 1
	return run, nil
}
