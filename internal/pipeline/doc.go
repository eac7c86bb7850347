// Package pipeline drives the catalog passes behind the CLI.
//
// Runner walks the configured collection, searches similar tracks for every
// record that carries a vector, key, tempo, and at least one stem, and feeds
// the hits through stems.MatchStems and stems.GenerateCombinations. Proposals
// accumulate in memory; the interim CSV is rewritten after each track and the
// final CSV once the walk ends, however it ends. Extractor exports track
// metadata from the same collection.
//
// Both passes hold an exclusive lock on the output directory, tag every log
// line with a run id, and record their lifecycle in the run ledger.
package pipeline
