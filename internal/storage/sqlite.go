package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"factlint/internal/ir"
	"factlint/internal/report"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
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
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			root TEXT,
			revision TEXT,
			version TEXT,
			rules JSON,
			summary JSON
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			run_id TEXT NOT NULL,
			id TEXT NOT NULL,
			rule_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			unit TEXT NOT NULL,
			start_offset INTEGER,
			end_offset INTEGER,
			line INTEGER,
			col INTEGER,
			message TEXT,
			suggestion TEXT,
			PRIMARY KEY (run_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS faults (
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			unit TEXT,
			rule TEXT,
			line INTEGER,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_faults_run ON faults(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, rep *report.Report) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Summary = rep.Summary

	rulesJSON, err := json.Marshal(run.Rules)
	if err != nil {
		return err
	}
	summaryJSON, err := json.Marshal(rep.Summary)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Save Run
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, root, revision, version, rules, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Root, run.Revision, rep.Version, rulesJSON, summaryJSON); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// 2. Save Findings
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, id, rule_id, severity, category, unit, start_offset, end_offset, line, col, message, suggestion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range rep.Findings {
		loc := f.Location
		if _, err := stmt.ExecContext(ctx, run.ID, f.ID, f.RuleID, f.Severity.String(), string(f.Category),
			loc.Unit, loc.Offset, loc.End, loc.Line, loc.Column, f.Message, f.Suggestion); err != nil {
			return fmt.Errorf("insert finding %s: %w", f.ID, err)
		}
	}

	// 3. Save Faults
	faultStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faults (run_id, kind, unit, rule, line, message) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer faultStmt.Close()

	for _, f := range rep.Faults {
		if _, err := faultStmt.ExecContext(ctx, run.ID, string(f.Kind), f.Unit, f.Rule, f.Line, f.Message); err != nil {
			return fmt.Errorf("insert fault: %w", err)
		}
	}

	return tx.Commit()
}

// resolve turns a run reference into a full run ID.
func (s *SQLiteStore) resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "latest" {
		var id string
		err := s.db.QueryRowContext(ctx, "SELECT id FROM runs ORDER BY seq DESC LIMIT 1").Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRunNotFound
		}
		return id, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM runs WHERE substr(id, 1, ?) = ? ORDER BY seq LIMIT 2", len(ref), ref)
	if err != nil {
		return "", fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run prefix %q is ambiguous", ref)
	}
}

func (s *SQLiteStore) LoadRun(ctx context.Context, ref string) (*Run, *report.Report, error) {
	id, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT id, started_at, root, revision, version, rules, summary FROM runs WHERE id = ?", id)
	run, version, err := scanRun(row)
	if err != nil {
		return nil, nil, err
	}

	findings, err := s.findings(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	faults, err := s.faults(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rep := &report.Report{
		Version:  version,
		Findings: findings,
		Faults:   faults,
		Summary:  run.Summary,
	}
	return run, rep, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, started_at, root, revision, version, rules, summary FROM runs ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes all but the keep most recent runs and returns how many
// were removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const stale = "SELECT id FROM runs ORDER BY seq DESC LIMIT -1 OFFSET ?"
	for _, table := range []string{"findings", "faults"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id IN ("+stale+")", keep); err != nil {
			return 0, err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

func (s *SQLiteStore) DiffRuns(ctx context.Context, base, head string) (*Diff, error) {
	baseID, err := s.resolve(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	headID, err := s.resolve(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}

	before, err := s.findings(ctx, baseID)
	if err != nil {
		return nil, err
	}
	after, err := s.findings(ctx, headID)
	if err != nil {
		return nil, err
	}

	inBase := make(map[string]bool, len(before))
	for _, f := range before {
		inBase[f.ID] = true
	}
	inHead := make(map[string]bool, len(after))
	diff := &Diff{Base: baseID, Head: headID, New: []ir.Finding{}, Fixed: []ir.Finding{}}
	for _, f := range after {
		inHead[f.ID] = true
		if inBase[f.ID] {
			diff.Unchanged++
		} else {
			diff.New = append(diff.New, f)
		}
	}
	for _, f := range before {
		if !inHead[f.ID] {
			diff.Fixed = append(diff.Fixed, f)
		}
	}
	return diff, nil
}

// findings returns a run's findings in report order.
func (s *SQLiteStore) findings(ctx context.Context, runID string) ([]ir.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, severity, category, unit, start_offset, end_offset, line, col, message, suggestion
		FROM findings WHERE run_id = ? ORDER BY unit, start_offset, rule_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	out := []ir.Finding{}
	for rows.Next() {
		var f ir.Finding
		var severity, category string
		loc := &f.Location
		if err := rows.Scan(&f.ID, &f.RuleID, &severity, &category, &loc.Unit, &loc.Offset, &loc.End, &loc.Line, &loc.Column, &f.Message, &f.Suggestion); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		if f.Severity, err = ir.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("finding %s: %w", f.ID, err)
		}
		f.Category = ir.Category(category)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) faults(ctx context.Context, runID string) ([]ir.Fault, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, unit, rule, line, message FROM faults WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query faults: %w", err)
	}
	defer rows.Close()

	out := []ir.Fault{}
	for rows.Next() {
		var f ir.Fault
		var kind string
		if err := rows.Scan(&kind, &f.Unit, &f.Rule, &f.Line, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan fault: %w", err)
		}
		f.Kind = ir.FaultKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, string, error) {
	var run Run
	var startedAt, version string
	var rulesJSON, summaryJSON []byte
	if err := row.Scan(&run.ID, &startedAt, &run.Root, &run.Revision, &version, &rulesJSON, &summaryJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrRunNotFound
		}
		return nil, "", fmt.Errorf("failed to scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, "", fmt.Errorf("run %s: bad start time: %w", run.ID, err)
	}
	run.StartedAt = t
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &run.Rules); err != nil {
			return nil, "", fmt.Errorf("run %s: %w", run.ID, err)
		}
	}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
			return nil, "", fmt.Errorf("run %s: %w", run.ID, err)
		}
	}
	return &run, version, nil
}
