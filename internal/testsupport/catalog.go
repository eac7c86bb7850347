package testsupport

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"stemswap/internal/catalog"
)

// Catalog is an in-memory catalog.Catalog. Records are served in order with
// index cursors; search hits are registered per query vector.
type Catalog struct {
	mu sync.Mutex

	Collections []string
	Records     []catalog.Record
	hits        map[string][]catalog.ScoredRecord

	// ListErr fails ListCollections.
	ListErr error
	// ScrollErr fails every Scroll call.
	ScrollErr error
	// SearchErr fails Search once SearchCalls reaches FailSearchAt (1-based).
	SearchErr    error
	FailSearchAt int

	ScrollRequests []catalog.ScrollRequest
	SearchRequests []catalog.SearchRequest
}

var _ catalog.Catalog = (*Catalog)(nil)

// NewCatalog returns a fake holding records in the named collection.
func NewCatalog(collection string, records ...catalog.Record) *Catalog {
	return &Catalog{
		Collections: []string{collection},
		Records:     records,
		hits:        make(map[string][]catalog.ScoredRecord),
	}
}

// SetHits registers the search results returned for vector.
func (c *Catalog) SetHits(vector []float32, hits ...catalog.ScoredRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hits == nil {
		c.hits = make(map[string][]catalog.ScoredRecord)
	}
	c.hits[vectorKey(vector)] = hits
}

func (c *Catalog) ListCollections(ctx context.Context) ([]string, error) {
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	return append([]string(nil), c.Collections...), nil
}

func (c *Catalog) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := c.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) Scroll(ctx context.Context, req catalog.ScrollRequest) (catalog.ScrollPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScrollRequests = append(c.ScrollRequests, req)
	if c.ScrollErr != nil {
		return catalog.ScrollPage{}, c.ScrollErr
	}
	start := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil {
			return catalog.ScrollPage{}, fmt.Errorf("bad cursor %q", req.Cursor)
		}
		start = n
	}
	limit := req.Limit
	if limit <= 0 {
		limit = len(c.Records)
	}
	end := start + limit
	if end > len(c.Records) {
		end = len(c.Records)
	}
	page := catalog.ScrollPage{}
	for _, r := range c.Records[start:end] {
		if !req.WithVectors {
			r.Vectors = nil
		}
		page.Records = append(page.Records, r)
	}
	if end < len(c.Records) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// Search returns the hits registered for the query vector, dropping those
// under the score threshold and capping at ten like the real backends.
func (c *Catalog) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.ScoredRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SearchRequests = append(c.SearchRequests, req)
	if c.SearchErr != nil && len(c.SearchRequests) >= c.FailSearchAt {
		return nil, c.SearchErr
	}
	var out []catalog.ScoredRecord
	for _, hit := range c.hits[vectorKey(req.Vector)] {
		if hit.Score < req.ScoreThreshold {
			continue
		}
		out = append(out, hit)
		if len(out) == 10 {
			break
		}
	}
	return out, nil
}

func vectorKey(v []float32) string {
	return fmt.Sprint(v)
}

// Track builds a catalog record with the usual payload fields. stems lists
// alternating type and filename values for slots 1, 2, ...
func Track(id, folder, audioFilename, key string, tempo float64, vector []float32, stems ...string) catalog.Record {
	payload := catalog.Payload{
		catalog.FieldFolder:        folder,
		catalog.FieldAudioFilename: audioFilename,
		catalog.FieldKey:           key,
		catalog.FieldTempo:         tempo,
		catalog.FieldFoundStems:    float64(len(stems) / 2),
	}
	for i := 0; i+1 < len(stems); i += 2 {
		slot := i/2 + 1
		payload[catalog.StemTypeField(slot)] = stems[i]
		payload[catalog.StemFilenameField(slot)] = stems[i+1]
	}
	record := catalog.Record{ID: id, Payload: payload}
	if vector != nil {
		record.Vectors = map[string][]float32{"audio": vector}
	}
	return record
}

// Hit wraps a record as a search result with score.
func Hit(record catalog.Record, score float64) catalog.ScoredRecord {
	return catalog.ScoredRecord{Record: record, Score: score}
}
