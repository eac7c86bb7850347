package stems

import "strings"

// MatchType describes how two stems were found compatible.
type MatchType string

// Match types in ranking order.
const (
	MatchExact            MatchType = "exact"
	MatchVariation        MatchType = "variation"
	MatchSameFamily       MatchType = "same_family"
	MatchMatrixCompatible MatchType = "matrix_compatible"
	MatchNone             MatchType = "none"
)

// Priority orders match types for ranking; lower sorts first.
func (m MatchType) Priority() int {
	switch m {
	case MatchExact:
		return 0
	case MatchVariation:
		return 1
	case MatchSameFamily:
		return 2
	case MatchMatrixCompatible:
		return 3
	default:
		return 4
	}
}

// Resolver decides whether two stems may substitute for one another. It is
// read-only after construction.
type Resolver struct {
	families *FamilyTable
	matrix   *Matrix
}

// NewResolver binds a family table and compatibility matrix. A nil table
// falls back to the built-in one; a nil matrix treats every pair as absent.
func NewResolver(families *FamilyTable, matrix *Matrix) *Resolver {
	if families == nil {
		families = DefaultFamilyTable()
	}
	return &Resolver{families: families, matrix: matrix}
}

// Families returns the resolver's family table.
func (r *Resolver) Families() *FamilyTable { return r.families }

// Compatible reports whether stem2 may replace stem1 and how they matched.
// The first applicable rule wins: exact normalized match, containment,
// matrix lookup on (family1, family2), then equal families.
//
// The matrix is queried in argument order, so an asymmetric matrix can make
// Compatible(a, b) and Compatible(b, a) disagree.
func (r *Resolver) Compatible(stem1, stem2 string) (bool, MatchType) {
	if stem1 == "" || stem2 == "" {
		return false, MatchNone
	}
	norm1 := Normalize(stem1)
	norm2 := Normalize(stem2)
	if norm1 == norm2 {
		return true, MatchExact
	}
	if strings.Contains(norm2, norm1) || strings.Contains(norm1, norm2) {
		return true, MatchVariation
	}

	family1 := r.families.Classify(stem1)
	family2 := r.families.Classify(stem2)
	if family1.Known() && family2.Known() {
		if r.matrix.Compatible(family1, family2) {
			return true, MatchMatrixCompatible
		}
		if family1 == family2 {
			return true, MatchSameFamily
		}
	}
	return false, MatchNone
}
