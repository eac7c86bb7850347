package stems

import (
	"fmt"
	"sort"
	"strings"
)

// CandidateStem is one filled stem slot on a candidate track.
type CandidateStem struct {
	Type     string
	Filename string
}

// Candidate is a similarity-search hit prepared for matching.
type Candidate struct {
	ID          string
	Description string
	Folder      string
	Source      string
	Score       float64
	Stems       []CandidateStem
}

// MatchRecord links an original stem to one compatible candidate stem.
type MatchRecord struct {
	TrackDescription   string
	StemType           string
	StemFilename       string
	Folder             string
	Source             string
	SimilarityScore    float64
	MatchType          MatchType
	OriginalNormalized string
	MatchedNormalized  string
}

// StemGroup collects the ranked matches for one original stem.
type StemGroup struct {
	OriginalStem string
	Matches      []MatchRecord
}

// FormatOriginalStem renders the text form of an original stem.
func FormatOriginalStem(stemType, filename string) string {
	return fmt.Sprintf("%s (%s)", stemType, filename)
}

// OriginalStemType returns the stem type portion of an original stem's text
// form, dropping the parenthesized filename.
func OriginalStemType(text string) string {
	if !strings.Contains(text, "(") {
		return text
	}
	stemType, _, _ := strings.Cut(text, " (")
	return stemType
}

// MatchStems scans every stem of every candidate for each original stem and
// returns the compatible matches grouped per original. Originals without any
// match are omitted. Each group is ordered by match type priority, then by
// descending similarity.
func (r *Resolver) MatchStems(originals []string, candidates []Candidate) []StemGroup {
	var groups []StemGroup
	for _, original := range originals {
		originalType := OriginalStemType(original)
		originalNormalized := Normalize(originalType)

		var matches []MatchRecord
		for _, candidate := range candidates {
			for _, stem := range candidate.Stems {
				if stem.Type == "" || stem.Filename == "" {
					continue
				}
				ok, matchType := r.Compatible(originalType, stem.Type)
				if !ok {
					continue
				}
				matches = append(matches, MatchRecord{
					TrackDescription:   candidate.Description,
					StemType:           stem.Type,
					StemFilename:       stem.Filename,
					Folder:             candidate.Folder,
					Source:             candidate.Source,
					SimilarityScore:    candidate.Score,
					MatchType:          matchType,
					OriginalNormalized: originalNormalized,
					MatchedNormalized:  Normalize(stem.Type),
				})
			}
		}
		if len(matches) == 0 {
			continue
		}
		rankMatches(matches)
		groups = append(groups, StemGroup{OriginalStem: original, Matches: matches})
	}
	return groups
}

func rankMatches(matches []MatchRecord) {
	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := matches[i].MatchType.Priority(), matches[j].MatchType.Priority()
		if pi != pj {
			return pi < pj
		}
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
}
