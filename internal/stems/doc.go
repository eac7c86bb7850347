// Package stems matches instrument stems between tracks and proposes
// substitutions.
//
// Labels pass through Normalize before any comparison. A FamilyTable maps
// normalized labels to instrument families, a Matrix says which families may
// replace each other, and a Resolver combines both to rank candidate stems.
// GenerateCombinations turns ranked matches into Proposals while refusing any
// substitution that would leave two stems of one family in the mix.
//
// Everything here is pure and read-only after construction; tables and
// matrices are built once per run and shared.
package stems
