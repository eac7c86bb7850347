package catalog

import (
	"context"
	"errors"
)

// ErrCollectionNotFound indicates the configured collection is absent.
var ErrCollectionNotFound = errors.New("collection not found")

// Record is one catalog point: an identifier, its payload, and any named
// vectors that were requested.
type Record struct {
	ID      string
	Payload Payload
	Vectors map[string][]float32
}

// Vector returns the named vector, or nil when absent.
func (r Record) Vector(name string) []float32 {
	if r.Vectors == nil {
		return nil
	}
	return r.Vectors[name]
}

// ScoredRecord is a similarity search hit.
type ScoredRecord struct {
	Record
	Score float64
}

// ScrollRequest asks for one page of records. An empty Cursor starts at the
// beginning of the collection. VectorName selects the vector returned when
// WithVectors is set; backends that return every vector may ignore it.
type ScrollRequest struct {
	Collection  string
	Limit       int
	Cursor      string
	WithPayload bool
	WithVectors bool
	VectorName  string
}

// ScrollPage is one page of records. An empty NextCursor ends iteration.
type ScrollPage struct {
	Records    []Record
	NextCursor string
}

// Filter restricts a search to tracks in the same key and tempo with enough
// separated stems.
type Filter struct {
	Key           string
	Tempo         any
	MinFoundStems int
}

// SearchRequest describes a vector similarity query.
type SearchRequest struct {
	Collection     string
	VectorName     string
	Vector         []float32
	Filter         Filter
	ScoreThreshold float64
}

// Catalog is the narrow view of the vector store used by the pipeline.
// Search results are ordered by descending score and capped at the backend's
// default result count.
type Catalog interface {
	ListCollections(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	Scroll(ctx context.Context, req ScrollRequest) (ScrollPage, error)
	Search(ctx context.Context, req SearchRequest) ([]ScoredRecord, error)
}

// CheckCollection verifies that name is present. The returned list holds the
// available collections so callers can report them.
func CheckCollection(ctx context.Context, c Catalog, name string) ([]string, error) {
	names, err := c.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == name {
			return names, nil
		}
	}
	return names, ErrCollectionNotFound
}
