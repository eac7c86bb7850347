package pipeline

import (
	"fmt"
	"math"

	"stemswap/internal/catalog"
	"stemswap/internal/config"
	"stemswap/internal/stems"
)

// Skip reasons recorded for tracks that are not searched.
const (
	SkipMissingVector = "missing_vector"
	SkipMissingKey    = "missing_key"
	SkipMissingTempo  = "missing_tempo"
	SkipNoStems       = "no_stems"
)

const unknownField = "Unknown"

// selfMatchRelTolerance widens the configured absolute tolerance so float32
// rounded self scores are still recognised.
const selfMatchRelTolerance = 1e-5

type trackInput struct {
	vector    []float32
	key       string
	tempo     any
	originals []string
	path      string
}

// prepareTrack extracts the search inputs of a record. A non-empty reason
// means the track is skipped.
func prepareTrack(record catalog.Record, cfg *config.Config) (trackInput, string) {
	payload := record.Payload
	track := trackInput{
		vector: record.Vector(cfg.Catalog.VectorName),
		key:    payload.String(catalog.FieldKey),
		tempo:  payload.Value(catalog.FieldTempo),
		path: stems.StoragePath(cfg.Matching.StorageRoot,
			payload.String(catalog.FieldFolder),
			payload.String(catalog.FieldAudioFilename)),
	}
	switch {
	case len(track.vector) == 0:
		return track, SkipMissingVector
	case !payload.Present(catalog.FieldKey):
		return track, SkipMissingKey
	case !payload.Present(catalog.FieldTempo):
		return track, SkipMissingTempo
	}
	for slot := 1; slot <= cfg.Matching.OriginalStemSlots; slot++ {
		stemType, filename := payload.StemSlot(slot)
		if stemType == "" || filename == "" {
			continue
		}
		track.originals = append(track.originals, stems.FormatOriginalStem(stemType, filename))
	}
	if len(track.originals) == 0 {
		return track, SkipNoStems
	}
	return track, ""
}

// isSelfMatch reports whether score is close to 1 within the absolute
// tolerance plus the relative tolerance.
func isSelfMatch(score, tolerance float64) bool {
	return math.Abs(score-1) <= tolerance+selfMatchRelTolerance
}

// buildCandidates drops the self match and converts search hits into
// matcher candidates. Descriptions are numbered in hit order after the drop.
func buildCandidates(hits []catalog.ScoredRecord, tolerance float64, slots int) []stems.Candidate {
	candidates := make([]stems.Candidate, 0, len(hits))
	for _, hit := range hits {
		if isSelfMatch(hit.Score, tolerance) {
			continue
		}
		payload := hit.Payload
		candidate := stems.Candidate{
			ID: hit.ID,
			Description: fmt.Sprintf("%d - %s - %s - %s",
				len(candidates),
				payload.StringOr(catalog.FieldGenre, unknownField),
				payload.StringOr(catalog.FieldMood, unknownField),
				payload.StringOr(catalog.FieldEnergy, unknownField)),
			Folder: payload.String(catalog.FieldFolder),
			Source: payload.String(catalog.FieldSource),
			Score:  hit.Score,
		}
		for slot := 1; slot <= slots; slot++ {
			stemType, filename := payload.StemSlot(slot)
			if stemType == "" || filename == "" {
				continue
			}
			candidate.Stems = append(candidate.Stems, stems.CandidateStem{Type: stemType, Filename: filename})
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}
