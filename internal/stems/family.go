package stems

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed families.yaml
var defaultFamiliesYAML []byte

// Family is an instrument family such as Keys or Drums. The zero value means
// the stem could not be classified.
type Family string

// Known families. The set is open: a custom family table or matrix may name
// others.
const (
	NoFamily Family = ""
	Keys     Family = "Keys"
	Chords   Family = "Chords"
	Pad      Family = "Pad"
	Lead     Family = "Lead"
	Guitar   Family = "Guitar"
	Bass     Family = "Bass"
	Drums    Family = "Drums"
)

// Known reports whether the family is set.
func (f Family) Known() bool { return f != NoFamily }

// ErrEmptyFamilyTable is returned when a family table document has no entries.
var ErrEmptyFamilyTable = errors.New("family table has no entries")

// FamilyEntry maps one authored label to its family.
type FamilyEntry struct {
	Label  string
	Family Family
}

type familyEntry struct {
	label      string
	normalized string
	family     Family
}

// FamilyTable is an ordered, read-only mapping from stem labels to families.
// Iteration order is the authored order, which makes substring and word
// fallbacks reproducible.
type FamilyTable struct {
	entries []familyEntry
	index   map[string]int
}

// NewFamilyTable builds a table from entries in order. A repeated label keeps
// its first position and takes the later family.
func NewFamilyTable(entries []FamilyEntry) (*FamilyTable, error) {
	table := &FamilyTable{
		entries: make([]familyEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		label := entry.Label
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("family entry %d: empty label", i)
		}
		if !entry.Family.Known() {
			return nil, fmt.Errorf("family entry %d (%q): empty family", i, label)
		}
		if pos, ok := table.index[label]; ok {
			table.entries[pos].family = entry.Family
			continue
		}
		table.index[label] = len(table.entries)
		table.entries = append(table.entries, familyEntry{
			label:      label,
			normalized: Normalize(label),
			family:     entry.Family,
		})
	}
	if len(table.entries) == 0 {
		return nil, ErrEmptyFamilyTable
	}
	return table, nil
}

type familyDocument struct {
	Families []struct {
		Family string   `yaml:"family"`
		Labels []string `yaml:"labels"`
	} `yaml:"families"`
}

// ParseFamilyTable decodes a YAML family document.
func ParseFamilyTable(data []byte) (*FamilyTable, error) {
	var doc familyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode family table: %w", err)
	}
	var entries []FamilyEntry
	for _, section := range doc.Families {
		family := Family(strings.TrimSpace(section.Family))
		for _, label := range section.Labels {
			entries = append(entries, FamilyEntry{Label: label, Family: family})
		}
	}
	return NewFamilyTable(entries)
}

// LoadFamilyTable reads a YAML family document from disk.
func LoadFamilyTable(path string) (*FamilyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read family table: %w", err)
	}
	return ParseFamilyTable(data)
}

// DefaultFamilyTable returns a fresh copy of the built-in family table.
func DefaultFamilyTable() *FamilyTable {
	table, err := ParseFamilyTable(defaultFamiliesYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in family table: %v", err))
	}
	return table
}

// Len returns the number of distinct labels.
func (t *FamilyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the table contents in iteration order.
func (t *FamilyTable) Entries() []FamilyEntry {
	if t == nil {
		return nil
	}
	out := make([]FamilyEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = FamilyEntry{Label: e.label, Family: e.family}
	}
	return out
}

// Lookup returns the family registered for an exact label.
func (t *FamilyTable) Lookup(label string) (Family, bool) {
	if t == nil {
		return NoFamily, false
	}
	pos, ok := t.index[label]
	if !ok {
		return NoFamily, false
	}
	return t.entries[pos].family, true
}

// Classify maps a raw stem label to a family. It tries an exact match on the
// normalized label, then a containment scan over the table in order, then a
// per-word lookup. NoFamily is a normal result for unknown instruments.
func (t *FamilyTable) Classify(label string) Family {
	normalized := Normalize(label)
	if normalized == "" || t == nil {
		return NoFamily
	}
	if family, ok := t.Lookup(normalized); ok {
		return family
	}
	for _, entry := range t.entries {
		if entry.normalized == "" {
			continue
		}
		if strings.Contains(normalized, entry.normalized) || strings.Contains(entry.normalized, normalized) {
			return entry.family
		}
	}
	for _, word := range strings.Fields(normalized) {
		if family, ok := t.Lookup(word); ok {
			return family
		}
	}
	return NoFamily
}
