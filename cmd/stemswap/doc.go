// Package main hosts the stemswap CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, opens the configured
// catalog backend, and hands off to internal/pipeline for the combinations
// and metadata passes. Inspection commands (classify, compat, collections,
// runs) render go-pretty tables. Keep this package lean: functionality lives
// in the internal packages and is only surfaced here.
package main
