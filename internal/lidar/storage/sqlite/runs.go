package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("export run not found")

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunSource is the per-source outcome of an export run.
type RunSource struct {
	SourceID   string
	Culled     bool
	Candidates int
	Kept       int
	Duration   time.Duration
}

// RunSummary carries the counters of a finished run.
type RunSummary struct {
	Candidates int
	Kept       int
	Merged     int
	Truncated  int
	Written    int
	Sources    []RunSource
}

// ExportRun is one row of the export history.
type ExportRun struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	OutputPath string
	Params     json.RawMessage
	Status     string
	Error      string
	RunSummary
}

// StartRun records a new running export and returns its ID. params is
// stored as JSON for later inspection.
func (s *Store) StartRun(ctx context.Context, outputPath string, params interface{}) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("start run: marshal params: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO export_runs (run_id, started_unix_nanos, output_path, params_json, status)
		VALUES (?, ?, ?, ?, ?)`,
		id, s.clock.Now().UnixNano(), outputPath, string(paramsJSON), RunRunning)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run succeeded, or failed when runErr is non-nil, and
// stores its counters.
func (s *Store) FinishRun(ctx context.Context, runID string, sum RunSummary, runErr error) (err error) {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE export_runs
		SET finished_unix_nanos = ?, status = ?, error_message = ?,
			candidates = ?, kept = ?, merged = ?, truncated = ?, written = ?
		WHERE run_id = ?`,
		s.clock.Now().UnixNano(), status, nullString(msg),
		sum.Candidates, sum.Kept, sum.Merged, sum.Truncated, sum.Written, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		return err
	}
	for _, src := range sum.Sources {
		if _, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO export_run_sources (run_id, source_id, culled, candidates, kept, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, src.SourceID, src.Culled, src.Candidates, src.Kept,
			float64(src.Duration)/float64(time.Millisecond)); err != nil {
			return fmt.Errorf("finish run %s source %s: %w", runID, src.SourceID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("finish run %s: commit: %w", runID, err)
	}
	return nil
}

const runColumns = `run_id, started_unix_nanos, finished_unix_nanos, output_path, params_json, status,
	error_message, candidates, kept, merged, truncated, written`

func scanRun(row rowScanner) (ExportRun, error) {
	var (
		r        ExportRun
		started  int64
		finished sql.NullInt64
		params   string
		errMsg   sql.NullString
	)
	if err := row.Scan(&r.RunID, &started, &finished, &r.OutputPath, &params, &r.Status,
		&errMsg, &r.Candidates, &r.Kept, &r.Merged, &r.Truncated, &r.Written); err != nil {
		return ExportRun{}, err
	}
	r.StartedAt = time.Unix(0, started)
	if finished.Valid {
		r.FinishedAt = time.Unix(0, finished.Int64)
	}
	r.Params = json.RawMessage(params)
	r.Error = errMsg.String
	return r, nil
}

// GetRun returns a run with its per-source rows.
func (s *Store) GetRun(ctx context.Context, runID string) (*ExportRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM export_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, culled, candidates, kept, duration_ms
		FROM export_run_sources WHERE run_id = ? ORDER BY source_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s sources: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			src RunSource
			ms  float64
		)
		if err := rows.Scan(&src.SourceID, &src.Culled, &src.Candidates, &src.Kept, &ms); err != nil {
			return nil, err
		}
		src.Duration = time.Duration(ms * float64(time.Millisecond))
		r.Sources = append(r.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	q := `SELECT ` + runColumns + ` FROM export_runs ORDER BY started_unix_nanos DESC, run_id`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []ExportRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
