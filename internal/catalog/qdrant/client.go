package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stemswap/internal/catalog"
)

// DefaultSearchLimit mirrors the result count Qdrant clients request when the
// caller does not choose one.
const DefaultSearchLimit = 10

// DefaultPort is the Qdrant gRPC port used when the URL does not name one.
const DefaultPort = 6334

// pointsAPI is the subset of *qdrant.Client the catalog calls.
type pointsAPI interface {
	ListCollections(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	ScrollAndOffset(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// Client implements catalog.Catalog over the Qdrant gRPC API.
type Client struct {
	api         pointsAPI
	closer      func() error
	timeout     time.Duration
	searchLimit int
}

var _ catalog.Catalog = (*Client)(nil)

type settings struct {
	timeout            time.Duration
	insecureSkipVerify bool
	searchLimit        int
}

// Option configures a Client.
type Option func(*settings)

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification on https URLs.
func WithInsecureSkipVerify(skip bool) Option {
	return func(s *settings) {
		s.insecureSkipVerify = skip
	}
}

// WithSearchLimit overrides the maximum number of hits returned per search.
func WithSearchLimit(limit int) Option {
	return func(s *settings) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// New creates a Qdrant client. The URL scheme picks plaintext (http) or TLS
// (https); the port defaults to the gRPC port. The API key is optional.
func New(rawURL, apiKey string, opts ...Option) (*Client, error) {
	s := applyOptions(opts)
	cfg, err := clientConfig(rawURL, apiKey, s.insecureSkipVerify)
	if err != nil {
		return nil, err
	}
	sdk, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	client := newClient(sdk, s)
	client.closer = sdk.Close
	return client, nil
}

func applyOptions(opts []Option) settings {
	s := settings{timeout: 300 * time.Second, searchLimit: DefaultSearchLimit}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newClient(api pointsAPI, s settings) *Client {
	return &Client{api: api, timeout: s.timeout, searchLimit: s.searchLimit}
}

func clientConfig(rawURL, apiKey string, insecureSkipVerify bool) (*qdrant.Config, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("qdrant url required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	cfg := &qdrant.Config{
		Host:                   parsed.Hostname(),
		Port:                   DefaultPort,
		APIKey:                 strings.TrimSpace(apiKey),
		SkipCompatibilityCheck: true,
	}
	if port := parsed.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q", port)
		}
		cfg.Port = n
	}
	switch parsed.Scheme {
	case "https", "grpcs":
		cfg.UseTLS = true
		cfg.TLSConfig = &tls.Config{
			ServerName:         parsed.Hostname(),
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec
			MinVersion:         tls.VersionTLS12,
		}
	case "http", "grpc":
	default:
		return nil, fmt.Errorf("unsupported qdrant url scheme %q", parsed.Scheme)
	}
	return cfg, nil
}

// Close releases the gRPC connections.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ListCollections returns the names of all collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	names, err := c.api.ListCollections(ctx)
	if err != nil {
		return nil, wrapError("list qdrant collections", err)
	}
	return names, nil
}

// CollectionExists reports whether the named collection is present.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	exists, err := c.api.CollectionExists(ctx, name)
	if err != nil {
		return false, wrapError("check qdrant collection "+name, err)
	}
	return exists, nil
}

// Scroll returns one page of points with every stored vector. The cursor is
// the next page offset id in text form.
func (c *Client) Scroll(ctx context.Context, req catalog.ScrollRequest) (catalog.ScrollPage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	points, next, err := c.api.ScrollAndOffset(ctx, scrollRequest(req))
	if err != nil {
		return catalog.ScrollPage{}, wrapError("scroll qdrant collection "+req.Collection, err)
	}
	page := catalog.ScrollPage{
		Records:    make([]catalog.Record, 0, len(points)),
		NextCursor: formatPointID(next),
	}
	for _, p := range points {
		page.Records = append(page.Records, catalog.Record{
			ID:      formatPointID(p.GetId()),
			Payload: payloadFromValues(p.GetPayload()),
			Vectors: vectorsFromOutput(p.GetVectors()),
		})
	}
	return page, nil
}

// Search runs a filtered similarity query on a named vector.
func (c *Client) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.ScoredRecord, error) {
	query, err := queryRequest(req, c.searchLimit)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	points, err := c.api.Query(ctx, query)
	if err != nil {
		return nil, wrapError("query qdrant collection "+req.Collection, err)
	}
	hits := make([]catalog.ScoredRecord, 0, len(points))
	for _, p := range points {
		hits = append(hits, catalog.ScoredRecord{
			Record: catalog.Record{
				ID:      formatPointID(p.GetId()),
				Payload: payloadFromValues(p.GetPayload()),
				Vectors: vectorsFromOutput(p.GetVectors()),
			},
			Score: float64(p.GetScore()),
		})
	}
	return hits, nil
}

func scrollRequest(req catalog.ScrollRequest) *qdrant.ScrollPoints {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	scroll := &qdrant.ScrollPoints{
		CollectionName: req.Collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
		WithVectors:    qdrant.NewWithVectors(req.WithVectors),
	}
	if req.Cursor != "" {
		scroll.Offset = parsePointID(req.Cursor)
	}
	return scroll
}

func queryRequest(req catalog.SearchRequest, limit int) (*qdrant.QueryPoints, error) {
	filter, err := buildFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	query := &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Query:          qdrant.NewQueryDense(req.Vector),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if req.VectorName != "" {
		query.Using = qdrant.PtrOf(req.VectorName)
	}
	if req.ScoreThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(float32(req.ScoreThreshold))
	}
	return query, nil
}

// buildFilter matches key exactly, tempo by its stored type, and requires
// found_stems at or above the minimum.
func buildFilter(f catalog.Filter) (*qdrant.Filter, error) {
	tempo, err := tempoCondition(f.Tempo)
	if err != nil {
		return nil, err
	}
	must := []*qdrant.Condition{
		qdrant.NewMatch(catalog.FieldKey, f.Key),
		tempo,
	}
	if f.MinFoundStems > 0 {
		must = append(must, qdrant.NewRange(catalog.FieldFoundStems, &qdrant.Range{
			Gte: qdrant.PtrOf(float64(f.MinFoundStems)),
		}))
	}
	return &qdrant.Filter{Must: must}, nil
}

// tempoCondition matches integers and strings by value. Fractional tempos use
// a closed range on the single value since keyword matching has no float form.
func tempoCondition(v any) (*qdrant.Condition, error) {
	switch tempo := v.(type) {
	case int:
		return qdrant.NewMatchInt(catalog.FieldTempo, int64(tempo)), nil
	case int64:
		return qdrant.NewMatchInt(catalog.FieldTempo, tempo), nil
	case float32:
		return tempoCondition(float64(tempo))
	case float64:
		return qdrant.NewRange(catalog.FieldTempo, &qdrant.Range{
			Gte: qdrant.PtrOf(tempo),
			Lte: qdrant.PtrOf(tempo),
		}), nil
	case string:
		return qdrant.NewMatch(catalog.FieldTempo, tempo), nil
	default:
		return nil, fmt.Errorf("unsupported tempo value %v (%T)", v, v)
	}
}

func parsePointID(cursor string) *qdrant.PointId {
	if n, err := strconv.ParseUint(cursor, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewID(cursor)
}

func formatPointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	if _, ok := id.GetPointIdOptions().(*qdrant.PointId_Num); ok {
		return strconv.FormatUint(id.GetNum(), 10)
	}
	return ""
}

func payloadFromValues(values map[string]*qdrant.Value) catalog.Payload {
	if values == nil {
		return nil
	}
	payload := make(catalog.Payload, len(values))
	for key, value := range values {
		payload[key] = valueToAny(value)
	}
	return payload
}

// valueToAny converts a protobuf payload value to the shapes JSON decoding
// produces, keeping integers as int64.
func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, valueToAny(item))
		}
		return list
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		obj := make(map[string]any, len(fields))
		for key, item := range fields {
			obj[key] = valueToAny(item)
		}
		return obj
	default:
		return nil
	}
}

// vectorsFromOutput stores the unnamed vector under "" and named vectors
// under their names. Sparse and multi-vector entries are skipped.
func vectorsFromOutput(out *qdrant.VectorsOutput) map[string][]float32 {
	if out == nil {
		return nil
	}
	if single := out.GetVector(); single != nil {
		if dense := denseData(single); dense != nil {
			return map[string][]float32{"": dense}
		}
		return nil
	}
	named := out.GetVectors().GetVectors()
	if len(named) == 0 {
		return nil
	}
	vectors := make(map[string][]float32, len(named))
	for name, vector := range named {
		if dense := denseData(vector); dense != nil {
			vectors[name] = dense
		}
	}
	return vectors
}

func denseData(v *qdrant.VectorOutput) []float32 {
	if dense := v.GetDense(); dense != nil {
		return dense.GetData()
	}
	if v.GetSparse() != nil || v.GetMultiDense() != nil {
		return nil
	}
	// Servers before 1.12 only fill the flat data field.
	if v.GetIndices() == nil && v.GetVectorsCount() == 0 { //nolint:staticcheck
		return v.GetData() //nolint:staticcheck
	}
	return nil
}

// wrapError maps a gRPC NotFound status to catalog.ErrCollectionNotFound.
func wrapError(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", op, catalog.ErrCollectionNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
