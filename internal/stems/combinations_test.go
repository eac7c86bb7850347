package stems_test

import (
	"testing"

	"stemswap/internal/stems"
)

func matchesFor(types ...string) []stems.MatchRecord {
	out := make([]stems.MatchRecord, 0, len(types))
	for i, typ := range types {
		out = append(out, stems.MatchRecord{
			StemType:        typ,
			StemFilename:    typ + ".wav",
			Folder:          "F",
			SimilarityScore: 0.9 - float64(i)*0.01,
		})
	}
	return out
}

func TestGenerateCombinationsSuppressesDuplicateFamilies(t *testing.T) {
	table := stems.DefaultFamilyTable()
	originals := []string{"Piano (p.wav)", "Bass (b.wav)", "Drums (d.wav)"}
	groups := []stems.StemGroup{{
		OriginalStem: "Bass (b.wav)",
		Matches:      matchesFor("Rhodes", "Kick", "Synth Bass", "Kazoo"),
	}}

	proposals := stems.GenerateCombinations("s3://bucket/T/mix.wav", groups, originals, table, "s3://bucket")
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d: %+v", len(proposals), proposals)
	}
	for _, p := range proposals {
		family := table.Classify(p.ReplacingStemType)
		if family == stems.Keys || family == stems.Drums {
			t.Fatalf("proposal duplicates a remaining family: %+v (%s)", p, family)
		}
		if p.ReplacedStemType != "Bass" {
			t.Fatalf("unexpected replaced stem %q", p.ReplacedStemType)
		}
	}
	if proposals[0].ReplacingStemType != "Synth Bass" || proposals[1].ReplacingStemType != "Kazoo" {
		t.Fatalf("unexpected proposal order: %+v", proposals)
	}
	if proposals[0].ReplacingStemPath != "s3://bucket/F/Synth Bass.wav" {
		t.Fatalf("unexpected stem path %q", proposals[0].ReplacingStemPath)
	}
}

func TestGenerateCombinationsSecondSameFamilyStemBlocks(t *testing.T) {
	table := stems.DefaultFamilyTable()
	originals := []string{"Piano (a.wav)", "Rhodes (b.wav)"}
	groups := []stems.StemGroup{{
		OriginalStem: "Piano (a.wav)",
		Matches:      matchesFor("Organ"),
	}}
	if got := stems.GenerateCombinations("t", groups, originals, table, "root"); len(got) != 0 {
		t.Fatalf("expected the remaining Rhodes stem to block Organ, got %+v", got)
	}

	single := []string{"Piano (a.wav)", "Upright Bass (c.wav)"}
	if got := stems.GenerateCombinations("t", groups, single, table, "root"); len(got) != 1 {
		t.Fatalf("expected Organ to replace the only keys stem, got %+v", got)
	}
}

func TestStoragePath(t *testing.T) {
	if got := stems.StoragePath("s3://rtsy-gramosynth/", "F1", "c.wav"); got != "s3://rtsy-gramosynth/F1/c.wav" {
		t.Fatalf("unexpected storage path %q", got)
	}
}

func TestMatchAndGenerateEndToEnd(t *testing.T) {
	table := stems.DefaultFamilyTable()
	matrix := stems.NewMatrix(map[stems.Family]map[stems.Family]bool{
		stems.Keys: {stems.Keys: true},
		stems.Bass: {stems.Bass: true},
	})
	resolver := stems.NewResolver(table, matrix)
	originals := []string{"Piano (a.wav)", "Upright Bass (b.wav)"}
	candidates := []stems.Candidate{{
		Description: "0 - Unknown - Unknown - Unknown",
		Folder:      "F1",
		Score:       0.85,
		Stems:       []stems.CandidateStem{{Type: "Grand Piano", Filename: "c.wav"}},
	}}

	groups := resolver.MatchStems(originals, candidates)
	proposals := stems.GenerateCombinations("s3://rtsy-gramosynth/T/t.wav", groups, originals, table, "s3://rtsy-gramosynth")
	if len(proposals) != 1 {
		t.Fatalf("expected exactly one proposal, got %+v", proposals)
	}
	p := proposals[0]
	if p.ReplacedStemType != "Piano" || p.ReplacingStemType != "Grand Piano" {
		t.Fatalf("unexpected stems in proposal: %+v", p)
	}
	if p.ReplacingStemPath != "s3://rtsy-gramosynth/F1/c.wav" || p.SimilarityScore != 0.85 {
		t.Fatalf("unexpected proposal path/score: %+v", p)
	}
}
