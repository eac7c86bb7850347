package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stemswap/internal/catalog"
	"stemswap/internal/config"
	"stemswap/internal/logging"
	"stemswap/internal/metrics"
	"stemswap/internal/results"
	"stemswap/internal/runlog"
	"stemswap/internal/stems"
)

// Result summarizes one combinations run.
type Result struct {
	RunID           string
	Status          runlog.Status
	OutputPath      string
	TracksSeen      int
	TracksProcessed int
	TracksSkipped   int
	TracksFailed    int
	Proposals       int
	// Available lists the collections found when the configured one was missing.
	Available []string
	// Err is the cause of a halted, aborted, or failed run.
	Err     error
	Metrics *metrics.Run
}

func (r *Result) summary() runlog.Summary {
	s := runlog.Summary{
		Status:          r.Status,
		TracksSeen:      r.TracksSeen,
		TracksProcessed: r.TracksProcessed,
		TracksSkipped:   r.TracksSkipped,
		TracksFailed:    r.TracksFailed,
		Proposals:       r.Proposals,
	}
	if r.Err != nil {
		s.ErrorMessage = r.Err.Error()
	}
	return s
}

// Runner executes the combinations pass over a catalog collection.
type Runner struct {
	cfg      *config.Config
	catalog  catalog.Catalog
	ledger   *runlog.Store
	logger   *slog.Logger
	resolver *stems.Resolver
}

// NewRunner loads the compatibility data and prepares a runner. ledger may be
// nil to skip run history.
func NewRunner(cfg *config.Config, cat catalog.Catalog, ledger *runlog.Store, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || cat == nil {
		return nil, errors.New("runner requires config and catalog")
	}
	resolver, err := LoadResolver(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		catalog:  cat,
		ledger:   ledger,
		logger:   logging.NewComponentLogger(logger, "combinations"),
		resolver: resolver,
	}, nil
}

// Run walks the collection and writes the combinations files. Catalog
// failures end the walk early but still produce the final file; the returned
// error is reserved for lock, ledger, and output write failures.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	sess, ctx, err := begin(ctx, r.cfg, r.ledger, r.logger, runlog.KindCombinations, r.cfg.FinalPath())
	if err != nil {
		return nil, err
	}
	defer sess.release()

	res := &Result{
		RunID:      sess.id,
		Status:     runlog.StatusCompleted,
		OutputPath: r.cfg.FinalPath(),
		Metrics:    metrics.NewRun(),
	}
	collection := r.cfg.Catalog.Collection

	var proposals []stems.Proposal
	available, err := catalog.CheckCollection(ctx, r.catalog, collection)
	switch {
	case errors.Is(err, catalog.ErrCollectionNotFound):
		res.Status = runlog.StatusHalted
		res.Available = available
		res.Err = fmt.Errorf("collection %q: %w", collection, err)
		logging.ErrorWithContext(sess.logger, "collection not found; nothing to process", "collection_missing",
			logging.String(logging.FieldCollection, collection),
			logging.String("available", strings.Join(available, ", ")),
			logging.String(logging.FieldErrorHint, "set catalog.collection to one of the available collections"),
		)
	case err != nil:
		res.Status = runlog.StatusAborted
		res.Err = fmt.Errorf("list collections: %w", err)
		logging.ErrorWithContext(sess.logger, "catalog unreachable", "catalog_unreachable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.url, catalog.api_key, and network access"),
		)
	default:
		proposals = r.walk(ctx, sess, res)
	}

	return r.complete(ctx, sess, res, proposals)
}

func (r *Runner) walk(ctx context.Context, sess *session, res *Result) []stems.Proposal {
	var all []stems.Proposal
	limit := r.cfg.Matching.MaxTracks
	cursor := ""
	for {
		page, err := r.catalog.Scroll(ctx, catalog.ScrollRequest{
			Collection:  r.cfg.Catalog.Collection,
			Limit:       r.cfg.Catalog.BatchSize,
			Cursor:      cursor,
			WithPayload: true,
			WithVectors: true,
			VectorName:  r.cfg.Catalog.VectorName,
		})
		if err != nil {
			res.Status = runlog.StatusAborted
			res.Err = fmt.Errorf("scroll tracks: %w", err)
			logging.ErrorWithContext(sess.logger, "fetching tracks failed; stopping run", "scroll_failed",
				logging.Error(err),
				logging.String("cursor", cursor),
				logging.String(logging.FieldErrorHint, "check catalog connectivity and rerun"),
			)
			return all
		}
		sess.logger.Debug("scroll page", logging.Int("records", len(page.Records)), logging.String("cursor", cursor))

		for _, record := range page.Records {
			if err := ctx.Err(); err != nil {
				res.Status = runlog.StatusAborted
				res.Err = err
				logging.WarnWithContext(sess.logger, "run cancelled; writing partial results", "run_cancelled",
					logging.String(logging.FieldImpact, "remaining tracks were not processed"),
				)
				return all
			}
			if limit > 0 && res.TracksSeen >= limit {
				sess.logger.Info("track limit reached", logging.Int("max_tracks", limit))
				return all
			}
			res.TracksSeen++

			proposals, err := r.processTrack(ctx, sess, res, record)
			all = append(all, proposals...)
			if werr := results.WriteCombinations(r.cfg.InterimPath(), all); werr != nil {
				logging.WarnWithContext(sess.logger, "interim snapshot failed", "interim_write_failed",
					logging.Error(werr),
					logging.String(logging.FieldImpact, "progress is only kept in memory until the final write"),
				)
			}
			if err != nil {
				res.Status = runlog.StatusAborted
				res.Err = err
				return all
			}
		}

		if len(page.Records) == 0 || page.NextCursor == "" {
			return all
		}
		cursor = page.NextCursor
	}
}

func (r *Runner) processTrack(ctx context.Context, sess *session, res *Result, record catalog.Record) ([]stems.Proposal, error) {
	ctx = logging.WithTrackID(ctx, record.ID)
	logger := logging.WithContext(ctx, sess.logger)

	track, reason := prepareTrack(record, r.cfg)
	outcome := runlog.TrackOutcome{TrackID: record.ID, TrackPath: track.path}
	if reason != "" {
		res.TracksSkipped++
		res.Metrics.ObserveTrack(string(runlog.OutcomeSkipped), reason)
		logger.Debug("track skipped", logging.String("reason", reason))
		outcome.Outcome = runlog.OutcomeSkipped
		outcome.Reason = reason
		sess.record(ctx, outcome)
		return nil, nil
	}

	started := time.Now()
	hits, err := r.catalog.Search(ctx, catalog.SearchRequest{
		Collection: r.cfg.Catalog.Collection,
		VectorName: r.cfg.Catalog.VectorName,
		Vector:     track.vector,
		Filter: catalog.Filter{
			Key:           track.key,
			Tempo:         track.tempo,
			MinFoundStems: r.cfg.Matching.MinFoundStems,
		},
		ScoreThreshold: r.cfg.Matching.SimilarityThreshold,
	})
	if err != nil {
		res.Metrics.ObserveSearch(time.Since(started), 0, err)
		res.TracksFailed++
		res.Metrics.ObserveTrack(string(runlog.OutcomeFailed), "")
		outcome.Outcome = runlog.OutcomeFailed
		outcome.Reason = "search_failed"
		sess.record(ctx, outcome)
		logging.ErrorWithContext(logger, "similarity search failed; stopping run", "search_failed",
			logging.String(logging.FieldTrackPath, track.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog connectivity and rerun"),
		)
		return nil, fmt.Errorf("search similar tracks for %s: %w", record.ID, err)
	}

	candidates := buildCandidates(hits, r.cfg.Matching.SelfMatchTolerance, r.cfg.Matching.CandidateStemSlots)
	res.Metrics.ObserveSearch(time.Since(started), len(candidates), nil)

	groups := r.resolver.MatchStems(track.originals, candidates)
	for _, group := range groups {
		for _, match := range group.Matches {
			res.Metrics.ObserveMatch(string(match.MatchType))
		}
	}
	proposals := stems.GenerateCombinations(track.path, groups, track.originals, r.resolver.Families(), r.cfg.Matching.StorageRoot)
	res.Metrics.AddProposals(len(proposals))
	res.Metrics.ObserveTrack(string(runlog.OutcomeProcessed), "")
	res.TracksProcessed++

	outcome.Outcome = runlog.OutcomeProcessed
	outcome.Candidates = len(candidates)
	outcome.Proposals = len(proposals)
	sess.record(ctx, outcome)
	logger.Debug("track processed",
		logging.String(logging.FieldTrackPath, track.path),
		logging.Int("candidates", len(candidates)),
		logging.Int("groups", len(groups)),
		logging.Int("proposals", len(proposals)),
	)
	return proposals, nil
}

func (r *Runner) complete(ctx context.Context, sess *session, res *Result, proposals []stems.Proposal) (*Result, error) {
	res.Proposals = len(proposals)

	var runErr error
	if err := results.WriteCombinations(r.cfg.FinalPath(), proposals); err != nil {
		res.Status = runlog.StatusFailed
		res.Err = err
		runErr = err
		logging.ErrorWithContext(sess.logger, "final combinations write failed", "output_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output.dir permissions and free space"),
		)
	}

	elapsed := sess.elapsed()
	res.Metrics.Finish(string(res.Status), elapsed, time.Now())
	if r.cfg.Metrics.Enabled {
		if err := res.Metrics.WriteTextfile(r.cfg.Metrics.TextfilePath); err != nil {
			logging.WarnWithContext(sess.logger, "metrics export failed", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "textfile collector shows stale values"),
			)
		}
	}
	sess.finish(ctx, res.summary())

	sess.logger.Info("combinations run finished",
		logging.String("status", string(res.Status)),
		logging.Int("tracks_processed", res.TracksProcessed),
		logging.Int("tracks_skipped", res.TracksSkipped),
		logging.Int("tracks_failed", res.TracksFailed),
		logging.Int("proposals", res.Proposals),
		logging.String("output", res.OutputPath),
		logging.Duration("duration", elapsed),
	)
	return res, runErr
}
