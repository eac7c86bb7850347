package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"stemswap/internal/fileutil"
	"stemswap/internal/stems"
)

// CombinationHeader lists the columns of the combinations files.
var CombinationHeader = []string{
	"track_path",
	"replaced_stem_type",
	"replacing_stem_type",
	"replacing_stem_path",
	"similarity_score",
}

// MetadataHeader lists the columns of the metadata file.
var MetadataHeader = []string{
	"track_path",
	"genre",
	"mood",
	"energy",
	"key",
	"tempo",
	"audio_filename",
	"folder",
	"source",
}

// MetadataRow is one catalog track flattened for the metadata file.
type MetadataRow struct {
	TrackPath     string
	Genre         string
	Mood          string
	Energy        string
	Key           string
	Tempo         string
	AudioFilename string
	Folder        string
	Source        string
}

func (r MetadataRow) record() []string {
	return []string{r.TrackPath, r.Genre, r.Mood, r.Energy, r.Key, r.Tempo, r.AudioFilename, r.Folder, r.Source}
}

// FormatScore renders a similarity score with the shortest exact decimal form.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// WriteCombinations replaces path with the proposals, header first. An empty
// slice still produces a header-only file.
func WriteCombinations(path string, proposals []stems.Proposal) error {
	return writeCSV(path, CombinationHeader, len(proposals), func(i int) []string {
		p := proposals[i]
		return []string{
			p.TrackPath,
			p.ReplacedStemType,
			p.ReplacingStemType,
			p.ReplacingStemPath,
			FormatScore(p.SimilarityScore),
		}
	})
}

// WriteMetadata replaces path with the metadata rows, header first.
func WriteMetadata(path string, rows []MetadataRow) error {
	return writeCSV(path, MetadataHeader, len(rows), func(i int) []string {
		return rows[i].record()
	})
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := cw.Write(row(i)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
