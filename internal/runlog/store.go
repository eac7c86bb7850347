package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stemswap/internal/config"
)

// ErrRunNotFound is returned when no run matches an identifier.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an id prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the ledger database at cfg.State.LedgerPath.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.State.LedgerPath)
}

// OpenPath opens the ledger at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("ledger path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, id string, kind Kind, collection, outputPath string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, kind, status, collection, output_path, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		kind,
		StatusRunning,
		nullableString(collection),
		nullableString(outputPath),
		formatTime(s.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// RecordTrack appends a per-track outcome to a run.
func (s *Store) RecordTrack(ctx context.Context, outcome TrackOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = s.now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO track_outcomes (run_id, track_id, track_path, outcome, reason, candidates, proposals, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID,
		outcome.TrackID,
		nullableString(outcome.TrackPath),
		outcome.Outcome,
		nullableString(outcome.Reason),
		outcome.Candidates,
		outcome.Proposals,
		formatTime(outcome.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert track outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, summary Summary) error {
	if !summary.Status.IsTerminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", id, summary.Status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, tracks_seen = ?, tracks_processed = ?,
             tracks_skipped = ?, tracks_failed = ?, proposals = ?, error_message = ?
         WHERE id = ?`,
		summary.Status,
		formatTime(s.now()),
		summary.TracksSeen,
		summary.TracksProcessed,
		summary.TracksSkipped,
		summary.TracksFailed,
		summary.Proposals,
		nullableString(summary.ErrorMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// MarkInterrupted moves runs still marked running to interrupted. Callers
// hold the output lock, so no live process owns them.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = COALESCE(error_message, ?)
         WHERE status = ?`,
		StatusInterrupted,
		formatTime(s.now()),
		"process exited before the run finished",
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// GetRun fetches a run by exact identifier. A missing run yields (nil, nil).
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a full identifier or a unique prefix.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, ErrRunNotFound
	}
	if run, err := s.GetRun(ctx, idOrPrefix); err != nil || run != nil {
		return run, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY started_at DESC LIMIT 2`,
		escapeLike(idOrPrefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", idOrPrefix, ErrRunNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", idOrPrefix, ErrAmbiguousRun)
	}
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// TrackOutcomes returns the recorded outcomes of a run in insertion order.
func (s *Store) TrackOutcomes(ctx context.Context, runID string) ([]TrackOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, track_id, track_path, outcome, reason, candidates, proposals, recorded_at
         FROM track_outcomes WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list track outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []TrackOutcome
	for rows.Next() {
		var (
			out         TrackOutcome
			outcome     string
			trackPath   sql.NullString
			reason      sql.NullString
			recordedRaw string
		)
		if err := rows.Scan(&out.RunID, &out.TrackID, &trackPath, &outcome, &reason, &out.Candidates, &out.Proposals, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan track outcome: %w", err)
		}
		out.Outcome = Outcome(outcome)
		out.TrackPath = trackPath.String
		out.Reason = reason.String
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			out.RecordedAt = recorded
		}
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track outcomes: %w", err)
	}
	return outcomes, nil
}

// SkipReasons counts skipped tracks of a run by reason.
func (s *Store) SkipReasons(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(reason, ''), COUNT(1) FROM track_outcomes
         WHERE run_id = ? AND outcome = ? GROUP BY reason`,
		runID, OutcomeSkipped,
	)
	if err != nil {
		return nil, fmt.Errorf("count skip reasons: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			reason string
			count  int
		)
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan skip reason: %w", err)
		}
		counts[reason] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skip reasons: %w", err)
	}
	return counts, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
