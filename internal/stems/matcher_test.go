package stems_test

import (
	"testing"

	"stemswap/internal/stems"
)

func TestOriginalStemType(t *testing.T) {
	tests := map[string]string{
		"Piano (a.wav)":          "Piano",
		"Upright Bass (b.wav)":   "Upright Bass",
		"Drums":                  "Drums",
		"Keys (Live) (take2.wav)": "Keys",
	}
	for input, want := range tests {
		if got := stems.OriginalStemType(input); got != want {
			t.Fatalf("OriginalStemType(%q) = %q, want %q", input, got, want)
		}
	}
	if got := stems.FormatOriginalStem("Piano", "a.wav"); got != "Piano (a.wav)" {
		t.Fatalf("unexpected formatted stem %q", got)
	}
}

func TestMatchStemsRanksByTypeThenScore(t *testing.T) {
	resolver := stems.NewResolver(stems.DefaultFamilyTable(), stems.NewMatrix(nil))
	candidates := []stems.Candidate{
		{Description: "0 - pop", Folder: "A", Score: 0.95, Stems: []stems.CandidateStem{{Type: "Rhodes", Filename: "a1.wav"}}},
		{Description: "1 - rock", Folder: "B", Score: 0.75, Stems: []stems.CandidateStem{{Type: "Piano", Filename: "b1.wav"}}},
		{Description: "2 - jazz", Folder: "C", Score: 0.90, Stems: []stems.CandidateStem{
			{Type: "Piano Chords", Filename: "c1.wav"},
			{Type: "Piano", Filename: ""},
		}},
		{Description: "3 - lofi", Folder: "D", Score: 0.80, Stems: []stems.CandidateStem{{Type: "Grand Piano", Filename: "d1.wav"}}},
	}

	groups := resolver.MatchStems([]string{"Piano (p.wav)", "Kazoo (k.wav)"}, candidates)
	if len(groups) != 1 {
		t.Fatalf("expected only the piano group, got %d groups", len(groups))
	}
	group := groups[0]
	if group.OriginalStem != "Piano (p.wav)" {
		t.Fatalf("unexpected original stem %q", group.OriginalStem)
	}

	want := []struct {
		file  string
		match stems.MatchType
	}{
		{"d1.wav", stems.MatchExact},
		{"b1.wav", stems.MatchExact},
		{"c1.wav", stems.MatchVariation},
		{"a1.wav", stems.MatchSameFamily},
	}
	if len(group.Matches) != len(want) {
		t.Fatalf("expected %d matches, got %d: %+v", len(want), len(group.Matches), group.Matches)
	}
	for i, w := range want {
		got := group.Matches[i]
		if got.StemFilename != w.file || got.MatchType != w.match {
			t.Fatalf("match %d = (%s, %s), want (%s, %s)", i, got.StemFilename, got.MatchType, w.file, w.match)
		}
	}

	first := group.Matches[0]
	if first.OriginalNormalized != "piano" || first.MatchedNormalized != "piano" {
		t.Fatalf("unexpected normalized labels: %q / %q", first.OriginalNormalized, first.MatchedNormalized)
	}
	if first.Folder != "D" || first.TrackDescription != "3 - lofi" || first.SimilarityScore != 0.80 {
		t.Fatalf("unexpected match record: %+v", first)
	}
}

func TestMatchStemsExactBeatsHigherScoredVariation(t *testing.T) {
	resolver := stems.NewResolver(nil, nil)
	candidates := []stems.Candidate{
		{Score: 0.99, Stems: []stems.CandidateStem{{Type: "Bass Line", Filename: "x.wav"}}},
		{Score: 0.71, Stems: []stems.CandidateStem{{Type: "bass", Filename: "y.wav"}}},
	}
	groups := resolver.MatchStems([]string{"Bass (b.wav)"}, candidates)
	if len(groups) != 1 || len(groups[0].Matches) != 2 {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if groups[0].Matches[0].MatchType != stems.MatchExact {
		t.Fatalf("expected exact match first, got %s", groups[0].Matches[0].MatchType)
	}
}
