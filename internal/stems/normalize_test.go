package stems_test

import (
	"testing"

	"stemswap/internal/stems"
)

func TestNormalizeRewrites(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"acoustic piano", "Acoustic Piano", "piano"},
		{"pno abbreviation", "PNO", "piano"},
		{"grand alone", "Grand", "piano"},
		{"electric piano dotted", "E.Piano", "ep"},
		{"fender rhodes", "Fender Rhodes", "rhodes"},
		{"wurlitzer", "Wurlitzer", "wurli"},
		{"double bass", "Double Bass", "upright bass"},
		{"bass guitar", "Bass Guitar", "electric bass"},
		{"sub bass", "Sub Bass", "synth bass"},
		{"808 sub", "808 Sub", "808"},
		{"classical guitar", "Classical Guitar", "nylon"},
		{"electric guitar", "Electric Guitar", "electric clean"},
		{"clean guitar loses modifier", "Clean Guitar", "guitar"},
		{"drum kit", "Drum Kit", "full kit"},
		{"full kit keeps modifier", "Full Kit", "full kit"},
		{"tr-808", "TR-808", "808 drums"},
		{"percussion loop", "Percussion Loop", "perc loops"},
		{"percussive", "Percussive", "perc"},
		{"sawtooth lead", "Sawtooth Lead", "saw lead"},
		{"arpeggiated lead", "Arpeggiated Lead", "arp-lead"},
		{"synthesizer", "Synthesizer", "synth"},
		{"hammond organ", "Hammond Organ", "organ"},
		{"clavinet", "Clavinet", "clav"},
		{"modifiers and punctuation", "Soft Pad!!", "pad"},
		{"whitespace", "  Multiple   Spaces  ", "multiple spaces"},
		{"punctuation joins words", "acoustic.piano", "piano"},
		{"rhodes electric piano", "Fender Rhodes Electric Piano FULL", "rhodes ep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stems.Normalize(tt.input); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Acoustic Piano",
		"Electric Guitar",
		"Electric Clean Guitar",
		"Full Kit",
		"Drum Kit",
		"acoustic.piano",
		"synth,bass",
		"E.P.",
		"Fender Rhodes Electric Piano FULL",
		"Heavy Distorted Guitar",
		"TR-808 Drum Machine",
		"Lead Vocal (Dry)",
		"Ａｃｏｕｓｔｉｃ Ｐｉａｎｏ",
		"Clean",
		"__weird__ -- label",
	}
	for _, input := range inputs {
		once := stems.Normalize(input)
		twice := stems.Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: once=%q twice=%q", input, once, twice)
		}
	}
}

func TestNormalizeFoldsFullWidthCharacters(t *testing.T) {
	if got := stems.Normalize("Ｇｒａｎｄ Ｐｉａｎｏ"); got != "piano" {
		t.Fatalf("expected full-width label to normalize to piano, got %q", got)
	}
}

func TestElectricPianoSpellingsShareFamily(t *testing.T) {
	table := stems.DefaultFamilyTable()
	for _, label := range []string{"Fender Rhodes Electric Piano FULL", "E.Piano", "electric piano", "EP"} {
		if got := table.Classify(label); got != stems.Keys {
			t.Fatalf("Classify(%q) = %q, want Keys", label, got)
		}
	}
}
