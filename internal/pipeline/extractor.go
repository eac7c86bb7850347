package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"stemswap/internal/catalog"
	"stemswap/internal/config"
	"stemswap/internal/logging"
	"stemswap/internal/results"
	"stemswap/internal/runlog"
	"stemswap/internal/stems"
)

// MetadataSummary describes one metadata export.
type MetadataSummary struct {
	RunID      string
	Status     runlog.Status
	OutputPath string
	// Seen counts scrolled records; Skipped lacked a folder or filename and
	// Duplicates repeated an earlier track path.
	Seen       int
	Skipped    int
	Duplicates int
	Total      int
	Genres     int
	Moods      int
	Keys       int
	// TempoMin and TempoMax are meaningful only when HasTempo is set.
	TempoMin  float64
	TempoMax  float64
	HasTempo  bool
	Available []string
	Err       error
}

// Extractor exports per-track metadata from the catalog.
type Extractor struct {
	cfg     *config.Config
	catalog catalog.Catalog
	ledger  *runlog.Store
	logger  *slog.Logger
}

// NewExtractor builds an extractor. ledger may be nil.
func NewExtractor(cfg *config.Config, cat catalog.Catalog, ledger *runlog.Store, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:     cfg,
		catalog: cat,
		ledger:  ledger,
		logger:  logging.NewComponentLogger(logger, "metadata"),
	}
}

// Extract scrolls the collection without vectors and writes one row per
// distinct track path, sorted by path. outputPath overrides the configured
// destination when non-empty.
func (e *Extractor) Extract(ctx context.Context, outputPath string) (*MetadataSummary, error) {
	if strings.TrimSpace(outputPath) == "" {
		outputPath = e.cfg.MetadataPath()
	}
	sess, ctx, err := begin(ctx, e.cfg, e.ledger, e.logger, runlog.KindMetadata, outputPath)
	if err != nil {
		return nil, err
	}
	defer sess.release()

	summary := &MetadataSummary{RunID: sess.id, Status: runlog.StatusCompleted, OutputPath: outputPath}
	collection := e.cfg.Catalog.Collection

	var rows []results.MetadataRow
	available, err := catalog.CheckCollection(ctx, e.catalog, collection)
	switch {
	case errors.Is(err, catalog.ErrCollectionNotFound):
		summary.Status = runlog.StatusHalted
		summary.Available = available
		summary.Err = fmt.Errorf("collection %q: %w", collection, err)
		logging.ErrorWithContext(sess.logger, "collection not found; nothing to export", "collection_missing",
			logging.String(logging.FieldCollection, collection),
			logging.String("available", strings.Join(available, ", ")),
			logging.String(logging.FieldErrorHint, "set catalog.collection to one of the available collections"),
		)
	case err != nil:
		summary.Status = runlog.StatusAborted
		summary.Err = fmt.Errorf("list collections: %w", err)
		logging.ErrorWithContext(sess.logger, "catalog unreachable", "catalog_unreachable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.url, catalog.api_key, and network access"),
		)
	default:
		rows = e.collect(ctx, sess, summary)
	}

	rows = dedupeRows(rows, summary)
	summarize(rows, summary)

	var runErr error
	if err := results.WriteMetadata(outputPath, rows); err != nil {
		summary.Status = runlog.StatusFailed
		summary.Err = err
		runErr = err
		logging.ErrorWithContext(sess.logger, "metadata write failed", "output_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the output path permissions and free space"),
		)
	}

	ledgerSummary := runlog.Summary{
		Status:          summary.Status,
		TracksSeen:      summary.Seen,
		TracksProcessed: summary.Total,
		TracksSkipped:   summary.Skipped + summary.Duplicates,
	}
	if summary.Err != nil {
		ledgerSummary.ErrorMessage = summary.Err.Error()
	}
	sess.finish(ctx, ledgerSummary)

	sess.logger.Info("metadata export finished",
		logging.String("status", string(summary.Status)),
		logging.Int("tracks", summary.Total),
		logging.Int("tracks_skipped", summary.Skipped),
		logging.Int("duplicates", summary.Duplicates),
		logging.String("output", outputPath),
		logging.Duration("duration", sess.elapsed()),
	)
	return summary, runErr
}

func (e *Extractor) collect(ctx context.Context, sess *session, summary *MetadataSummary) []results.MetadataRow {
	var rows []results.MetadataRow
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			summary.Status = runlog.StatusAborted
			summary.Err = err
			return rows
		}
		page, err := e.catalog.Scroll(ctx, catalog.ScrollRequest{
			Collection:  e.cfg.Catalog.Collection,
			Limit:       e.cfg.Catalog.BatchSize,
			Cursor:      cursor,
			WithPayload: true,
		})
		if err != nil {
			summary.Status = runlog.StatusAborted
			summary.Err = fmt.Errorf("scroll tracks: %w", err)
			logging.ErrorWithContext(sess.logger, "fetching tracks failed; exporting what was read", "scroll_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog connectivity and rerun"),
			)
			return rows
		}
		for _, record := range page.Records {
			summary.Seen++
			row, ok := e.metadataRow(record.Payload)
			if !ok {
				summary.Skipped++
				continue
			}
			rows = append(rows, row)
		}
		if len(page.Records) == 0 || page.NextCursor == "" {
			return rows
		}
		cursor = page.NextCursor
	}
}

func (e *Extractor) metadataRow(payload catalog.Payload) (results.MetadataRow, bool) {
	folder := payload.String(catalog.FieldFolder)
	filename := payload.String(catalog.FieldAudioFilename)
	if folder == "" || filename == "" {
		return results.MetadataRow{}, false
	}
	return results.MetadataRow{
		TrackPath:     stems.StoragePath(e.cfg.Matching.StorageRoot, folder, filename),
		Genre:         payload.String(catalog.FieldGenre),
		Mood:          payload.String(catalog.FieldMood),
		Energy:        payload.String(catalog.FieldEnergy),
		Key:           payload.String(catalog.FieldKey),
		Tempo:         payload.String(catalog.FieldTempo),
		AudioFilename: filename,
		Folder:        folder,
		Source:        payload.StringOr(catalog.FieldSource, e.cfg.Output.DefaultSource),
	}, true
}

// dedupeRows keeps the first row per track path and sorts by path.
func dedupeRows(rows []results.MetadataRow, summary *MetadataSummary) []results.MetadataRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]results.MetadataRow, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.TrackPath]; dup {
			summary.Duplicates++
			continue
		}
		seen[row.TrackPath] = struct{}{}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrackPath < out[j].TrackPath })
	return out
}

// summarize counts distinct non-empty genres, moods, and keys, and the numeric
// tempo range.
func summarize(rows []results.MetadataRow, summary *MetadataSummary) {
	genres := map[string]struct{}{}
	moods := map[string]struct{}{}
	keys := map[string]struct{}{}
	for _, row := range rows {
		addDistinct(genres, row.Genre)
		addDistinct(moods, row.Mood)
		addDistinct(keys, row.Key)
		tempo, err := strconv.ParseFloat(row.Tempo, 64)
		if err != nil {
			continue
		}
		if !summary.HasTempo || tempo < summary.TempoMin {
			summary.TempoMin = tempo
		}
		if !summary.HasTempo || tempo > summary.TempoMax {
			summary.TempoMax = tempo
		}
		summary.HasTempo = true
	}
	summary.Total = len(rows)
	summary.Genres = len(genres)
	summary.Moods = len(moods)
	summary.Keys = len(keys)
}

func addDistinct(set map[string]struct{}, value string) {
	if value != "" {
		set[value] = struct{}{}
	}
}
