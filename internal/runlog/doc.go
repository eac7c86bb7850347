// Package runlog keeps a SQLite ledger of stemswap runs.
//
// Each combinations or metadata pass gets a run row with its final status and
// counters, plus one outcome row per catalog track (processed, skipped with a
// reason, or failed). The CLI reads the ledger to list past runs and explain
// why tracks produced nothing.
//
// Schema changes bump the version in schema.go; users delete the ledger to
// adopt the new schema.
package runlog
