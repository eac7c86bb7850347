package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"stemswap/internal/catalog"
	"stemswap/internal/logging"
	"stemswap/internal/pipeline"
	"stemswap/internal/results"
	"stemswap/internal/runlog"
	"stemswap/internal/testsupport"
)

var (
	pianoVector = []float32{1, 0}
	bassVector  = []float32{0, 1}
)

func pianoTrack() catalog.Record {
	return testsupport.Track("t1", "Orig", "orig.wav", "C", 120, pianoVector,
		"Piano", "a.wav", "Upright Bass", "b.wav")
}

func grandPianoCandidate() catalog.Record {
	return testsupport.Track("c1", "F1", "cand.wav", "C", 120, nil, "Grand Piano", "c.wav")
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	self := pianoTrack()
	cat := testsupport.NewCatalog("tracks", self)
	cat.SetHits(pianoVector,
		testsupport.Hit(self, 0.99999999),
		testsupport.Hit(grandPianoCandidate(), 0.85),
	)

	runner, err := pipeline.NewRunner(cfg, cat, ledger, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != runlog.StatusCompleted || res.Err != nil {
		t.Fatalf("unexpected status %s (%v)", res.Status, res.Err)
	}
	if res.TracksProcessed != 1 || res.Proposals != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}

	want := [][]string{
		results.CombinationHeader,
		{"s3://bucket/Orig/orig.wav", "Piano", "Grand Piano", "s3://bucket/F1/c.wav", "0.85"},
	}
	for _, path := range []string{cfg.FinalPath(), cfg.InterimPath()} {
		rows := testsupport.ReadCSV(t, path)
		if len(rows) != len(want) {
			t.Fatalf("%s: expected %d rows, got %v", path, len(want), rows)
		}
		for i := range want {
			for j := range want[i] {
				if rows[i][j] != want[i][j] {
					t.Fatalf("%s row %d: got %v, want %v", path, i, rows[i], want[i])
				}
			}
		}
	}

	if len(cat.SearchRequests) != 1 {
		t.Fatalf("expected one search, got %d", len(cat.SearchRequests))
	}
	req := cat.SearchRequests[0]
	if req.VectorName != "audio" || req.ScoreThreshold != 0.7 {
		t.Fatalf("unexpected search request: %+v", req)
	}
	if req.Filter.Key != "C" || req.Filter.Tempo != 120.0 || req.Filter.MinFoundStems != 2 {
		t.Fatalf("unexpected filter: %+v", req.Filter)
	}

	if got := testutil.ToFloat64(res.Metrics.ProposalsTotal); got != 1 {
		t.Fatalf("proposals metric = %v", got)
	}
	if got := testutil.ToFloat64(res.Metrics.CandidatesTotal); got != 1 {
		t.Fatalf("candidates metric = %v, self match should be dropped", got)
	}
	if got := testutil.ToFloat64(res.Metrics.MatchesTotal.WithLabelValues("exact")); got != 1 {
		t.Fatalf("exact matches metric = %v", got)
	}

	run, err := ledger.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != runlog.StatusCompleted || run.TracksProcessed != 1 || run.Proposals != 1 {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
	outcomes, err := ledger.TrackOutcomes(context.Background(), res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].Candidates != 1 || outcomes[0].Proposals != 1 {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestRunnerSkipsIncompleteTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	cat := testsupport.NewCatalog("tracks",
		testsupport.Track("novec", "F", "a.wav", "C", 120, nil, "Piano", "a.wav"),
		testsupport.Track("nokey", "F", "b.wav", "", 120, pianoVector, "Piano", "b.wav"),
		testsupport.Track("notempo", "F", "c.wav", "C", 0, pianoVector, "Piano", "c.wav"),
		testsupport.Track("nostems", "F", "d.wav", "C", 120, pianoVector, "Piano", ""),
	)

	runner, err := pipeline.NewRunner(cfg, cat, ledger, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TracksSkipped != 4 || res.TracksProcessed != 0 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if len(cat.SearchRequests) != 0 {
		t.Fatalf("skipped tracks must not be searched, got %d searches", len(cat.SearchRequests))
	}

	reasons, err := ledger.SkipReasons(context.Background(), res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	for _, reason := range []string{pipeline.SkipMissingVector, pipeline.SkipMissingKey, pipeline.SkipMissingTempo, pipeline.SkipNoStems} {
		if reasons[reason] != 1 {
			t.Fatalf("expected one %s skip, got %v", reason, reasons)
		}
	}
	if rows := testsupport.ReadCSV(t, cfg.FinalPath()); len(rows) != 1 {
		t.Fatalf("expected header-only final file, got %v", rows)
	}
}

func TestRunnerMissingCollectionHalts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)
	cat := testsupport.NewCatalog("other", pianoTrack())

	runner, err := pipeline.NewRunner(cfg, cat, ledger, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("missing collection should not be fatal: %v", err)
	}
	if res.Status != runlog.StatusHalted || !errors.Is(res.Err, catalog.ErrCollectionNotFound) {
		t.Fatalf("unexpected result: %s %v", res.Status, res.Err)
	}
	if len(res.Available) != 1 || res.Available[0] != "other" {
		t.Fatalf("expected available collections, got %v", res.Available)
	}
	if len(cat.ScrollRequests) != 0 {
		t.Fatal("halted run must not fetch tracks")
	}
	if rows := testsupport.ReadCSV(t, cfg.FinalPath()); len(rows) != 1 {
		t.Fatalf("expected header-only final file, got %v", rows)
	}
	run, _ := ledger.GetRun(context.Background(), res.RunID)
	if run == nil || run.Status != runlog.StatusHalted || run.ErrorMessage == "" {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
}

func TestRunnerSearchErrorAbortsAndFlushes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)

	second := testsupport.Track("t2", "Orig", "two.wav", "D", 90, bassVector, "Bass", "x.wav")
	cat := testsupport.NewCatalog("tracks", pianoTrack(), second)
	cat.SetHits(pianoVector, testsupport.Hit(grandPianoCandidate(), 0.9))
	cat.SearchErr = errors.New("connection reset")
	cat.FailSearchAt = 2

	runner, err := pipeline.NewRunner(cfg, cat, ledger, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("catalog errors should not be fatal: %v", err)
	}
	if res.Status != runlog.StatusAborted || res.Err == nil {
		t.Fatalf("expected aborted run, got %s %v", res.Status, res.Err)
	}
	if res.TracksProcessed != 1 || res.TracksFailed != 1 || res.Proposals != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if rows := testsupport.ReadCSV(t, cfg.FinalPath()); len(rows) != 2 {
		t.Fatalf("expected accumulated proposal in final file, got %v", rows)
	}
	if got := testutil.ToFloat64(res.Metrics.SearchErrorsTotal); got != 1 {
		t.Fatalf("search errors metric = %v", got)
	}
}

func TestRunnerScrollErrorAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewCatalog("tracks", pianoTrack())
	cat.ScrollErr = errors.New("timeout")

	runner, err := pipeline.NewRunner(cfg, cat, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != runlog.StatusAborted || res.TracksSeen != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := os.Stat(cfg.FinalPath()); err != nil {
		t.Fatalf("final file should still be written: %v", err)
	}
}

func TestRunnerPagesAndHonorsMaxTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxTracks(3))
	var records []catalog.Record
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, testsupport.Track(id, "F", id+".wav", "C", 120, pianoVector, "Piano", id+".wav"))
	}
	cat := testsupport.NewCatalog("tracks", records...)

	runner, err := pipeline.NewRunner(cfg, cat, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.TracksSeen != 3 || len(cat.SearchRequests) != 3 {
		t.Fatalf("expected three tracks, got seen=%d searches=%d", res.TracksSeen, len(cat.SearchRequests))
	}
	if len(cat.ScrollRequests) != 2 {
		t.Fatalf("expected two pages, got %d", len(cat.ScrollRequests))
	}
	first, second := cat.ScrollRequests[0], cat.ScrollRequests[1]
	if first.Cursor != "" || second.Cursor != "2" || first.Limit != 2 {
		t.Fatalf("unexpected paging: %+v %+v", first, second)
	}
	if !first.WithVectors || !first.WithPayload || first.VectorName != "audio" {
		t.Fatalf("scroll must request payload and the named vector: %+v", first)
	}
}

type cancellingCatalog struct {
	*testsupport.Catalog
	cancel context.CancelFunc
}

func (c cancellingCatalog) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.ScoredRecord, error) {
	defer c.cancel()
	return c.Catalog.Search(ctx, req)
}

func TestRunnerCancellationFlushes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := testsupport.MustOpenLedger(t, cfg)
	fake := testsupport.NewCatalog("tracks", pianoTrack(),
		testsupport.Track("t2", "Orig", "two.wav", "C", 120, pianoVector, "Piano", "z.wav"))
	fake.SetHits(pianoVector, testsupport.Hit(grandPianoCandidate(), 0.8))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner, err := pipeline.NewRunner(cfg, cancellingCatalog{Catalog: fake, cancel: cancel}, ledger, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != runlog.StatusAborted || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected cancelled run, got %s %v", res.Status, res.Err)
	}
	if res.TracksSeen != 1 || res.Proposals != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	run, _ := ledger.GetRun(context.Background(), res.RunID)
	if run == nil || run.Status != runlog.StatusAborted {
		t.Fatalf("ledger should record the aborted run: %+v", run)
	}
}

func TestRunnerRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: %v %v", ok, err)
	}
	defer held.Unlock() //nolint:errcheck

	runner, err := pipeline.NewRunner(cfg, testsupport.NewCatalog("tracks"), nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background()); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunnerWritesMetricsTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetrics())
	runner, err := pipeline.NewRunner(cfg, testsupport.NewCatalog("tracks", pianoTrack()), nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected metrics output")
	}
}

func TestNewRunnerRequiresMatrix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Matching.MatrixPath = filepath.Join(testsupport.BaseDir(cfg), "missing.csv")
	if _, err := pipeline.NewRunner(cfg, testsupport.NewCatalog("tracks"), nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing matrix")
	}
}

func TestNewRunnerUsesFamilyOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFamilyTable("families:\n  - family: Keys\n    labels: [piano]\n"))
	families, err := pipeline.LoadFamilies(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if families.Len() != 1 {
		t.Fatalf("expected override table with one label, got %d", families.Len())
	}
}
