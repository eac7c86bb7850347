package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stemswap/internal/config"
	"stemswap/internal/logging"
	"stemswap/internal/runlog"
)

// session owns the output lock and ledger entry of one run.
type session struct {
	id      string
	ledger  *runlog.Store
	logger  *slog.Logger
	lock    *flock.Flock
	started time.Time
}

func begin(ctx context.Context, cfg *config.Config, ledger *runlog.Store, logger *slog.Logger, kind runlog.Kind, outputPath string) (*session, context.Context, error) {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, ctx, fmt.Errorf("create output directory: %w", err)
	}
	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, ctx, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, ctx, fmt.Errorf("%s: %w", lockPath, ErrLocked)
	}

	id := uuid.NewString()
	ctx = logging.WithRunID(ctx, id)
	s := &session{
		id:      id,
		ledger:  ledger,
		logger:  logging.WithContext(ctx, logger),
		lock:    lock,
		started: time.Now(),
	}

	if ledger != nil {
		if n, err := ledger.MarkInterrupted(ctx); err != nil {
			logging.WarnWithContext(s.logger, "could not close stale runs", "ledger_update_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "earlier runs may still show as running"),
			)
		} else if n > 0 {
			s.logger.Info("marked stale runs interrupted", logging.Int64("runs", n))
		}
		if _, err := ledger.StartRun(ctx, id, kind, cfg.Catalog.Collection, outputPath); err != nil {
			_ = lock.Unlock()
			return nil, ctx, fmt.Errorf("start run: %w", err)
		}
	}
	s.logger.Info("run started",
		logging.String("kind", string(kind)),
		logging.String(logging.FieldCollection, cfg.Catalog.Collection),
		logging.String("output", outputPath),
		logging.String("lock", lockPath),
	)
	return s, ctx, nil
}

func (s *session) elapsed() time.Duration {
	return time.Since(s.started)
}

func (s *session) record(ctx context.Context, outcome runlog.TrackOutcome) {
	if s.ledger == nil {
		return
	}
	outcome.RunID = s.id
	if err := s.ledger.RecordTrack(context.WithoutCancel(ctx), outcome); err != nil {
		logging.WarnWithContext(s.logger, "could not record track outcome", "ledger_update_failed",
			logging.String(logging.FieldTrackID, outcome.TrackID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is missing this track"),
		)
	}
}

func (s *session) finish(ctx context.Context, summary runlog.Summary) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.FinishRun(context.WithoutCancel(ctx), s.id, summary); err != nil {
		logging.WarnWithContext(s.logger, "could not finish run in ledger", "ledger_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run stays marked running until the next run"),
		)
	}
}

func (s *session) release() {
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release output lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no stemswap process is running"),
		)
	}
}
