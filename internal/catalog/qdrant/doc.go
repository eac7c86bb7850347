// Package qdrant implements catalog.Catalog over the Qdrant gRPC API using the
// official Go client.
//
// Only the calls the pipeline needs are wrapped: collection listing and
// existence, offset-based scroll, and a filtered nearest query on a named
// vector. Point ids may be integers or UUIDs; both surface as strings, and the
// scroll cursor is the next offset id in the same text form so it round-trips
// unchanged. Payload values keep integers as int64 and doubles as float64.
package qdrant
