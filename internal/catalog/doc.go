// Package catalog defines the narrow interface stemswap needs from a vector
// store holding the track catalog.
//
// A Catalog lists collections, pages through records with an opaque cursor,
// and runs filtered nearest-neighbour searches over a named vector. Records
// carry a free-form Payload; the helpers here read the fields the pipeline
// consumes (folder, key, tempo, stem slots) and render values for CSV output.
//
// Concrete backends live in subpackages: qdrant wraps the official Qdrant gRPC
// client, weaviate wraps the official Weaviate client. Neither retries; callers decide
// what a failed call means for the run.
package catalog
