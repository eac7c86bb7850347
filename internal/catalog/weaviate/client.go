package weaviate

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	wv "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"stemswap/internal/catalog"
	"stemswap/internal/logging"
)

// DefaultSearchLimit matches the Qdrant backend so both return the same
// number of candidates per track.
const DefaultSearchLimit = 10

// Options configures the Weaviate backend.
type Options struct {
	URL                string
	APIKey             string
	Timeout            time.Duration
	InsecureSkipVerify bool
	SearchLimit        int
	// Logger receives warnings about malformed objects. Nil discards them.
	Logger *slog.Logger
}

// Client implements catalog.Catalog on Weaviate classes. A collection name is
// a Weaviate class name.
type Client struct {
	client      *wv.Client
	searchLimit int
	logger      *slog.Logger

	mu         sync.Mutex
	properties map[string][]string
}

var _ catalog.Catalog = (*Client)(nil)

// New connects to the Weaviate instance at opts.URL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		return nil, errors.New("weaviate url required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", raw)
	}

	httpClient := &http.Client{Timeout: 300 * time.Second}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	if opts.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		httpClient.Transport = transport
	}

	cfg := wv.Config{
		Host:             parsed.Host,
		Scheme:           parsed.Scheme,
		ConnectionClient: httpClient,
	}
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		cfg.Headers = map[string]string{"Authorization": "Bearer " + key}
	}
	client, err := wv.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	limit := opts.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		client:      client,
		searchLimit: limit,
		logger:      logging.NewComponentLogger(logger, "weaviate"),
		properties:  make(map[string][]string),
	}, nil
}

// ListCollections returns the class names in the schema.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	dump, err := c.client.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get weaviate schema: %w", err)
	}
	names := make([]string, 0, len(dump.Classes))
	for _, class := range dump.Classes {
		if class != nil {
			names = append(names, class.Class)
		}
	}
	return names, nil
}

// CollectionExists reports whether the class is defined.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	ok, err := c.client.Schema().ClassExistenceChecker().WithClassName(name).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("check weaviate class: %w", err)
	}
	return ok, nil
}

// Scroll pages through a class using the object id cursor.
func (c *Client) Scroll(ctx context.Context, req catalog.ScrollRequest) (catalog.ScrollPage, error) {
	props, err := c.classProperties(ctx, req.Collection)
	if err != nil {
		return catalog.ScrollPage{}, err
	}
	query := c.client.GraphQL().Get().
		WithClassName(req.Collection).
		WithFields(selection(props, req.VectorName, req.WithPayload, req.WithVectors, false)...).
		WithLimit(req.Limit)
	if req.Cursor != "" {
		query = query.WithAfter(req.Cursor)
	}
	result, err := query.Do(ctx)
	if err != nil {
		return catalog.ScrollPage{}, fmt.Errorf("weaviate scroll: %w", err)
	}
	if err := graphQLError(result); err != nil {
		return catalog.ScrollPage{}, err
	}
	records, skipped := parseObjects(result.Data, req.Collection, req.VectorName)
	c.warnSkipped(req.Collection, "scroll", skipped)
	page := catalog.ScrollPage{Records: make([]catalog.Record, 0, len(records))}
	for _, r := range records {
		page.Records = append(page.Records, r.Record)
	}
	if req.Limit > 0 && len(page.Records) == req.Limit {
		page.NextCursor = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

// Search runs a nearVector query restricted by the key, tempo, and stem count
// filter. The threshold is applied as a cosine distance and scores are
// reported as 1 - distance, matching the Qdrant cosine score.
func (c *Client) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.ScoredRecord, error) {
	props, err := c.classProperties(ctx, req.Collection)
	if err != nil {
		return nil, err
	}
	near := c.client.GraphQL().NearVectorArgBuilder().WithVector(req.Vector)
	if req.ScoreThreshold > 0 {
		near = near.WithDistance(distanceForThreshold(req.ScoreThreshold))
	}
	if req.VectorName != "" {
		near = near.WithTargetVectors(req.VectorName)
	}
	result, err := c.client.GraphQL().Get().
		WithClassName(req.Collection).
		WithFields(selection(props, req.VectorName, true, true, true)...).
		WithWhere(buildWhere(req.Filter)).
		WithNearVector(near).
		WithLimit(c.searchLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if err := graphQLError(result); err != nil {
		return nil, err
	}
	hits, skipped := parseObjects(result.Data, req.Collection, req.VectorName)
	c.warnSkipped(req.Collection, "search", skipped)
	return hits, nil
}

func (c *Client) warnSkipped(className, op string, skipped int) {
	if skipped == 0 {
		return
	}
	logging.WarnWithContext(c.logger, "weaviate returned malformed objects", "catalog_malformed_objects",
		logging.String(logging.FieldCollection, className),
		logging.String("operation", op),
		logging.Int("skipped", skipped),
		logging.String(logging.FieldImpact, "those tracks are missing from this page"),
	)
}

func (c *Client) classProperties(ctx context.Context, className string) ([]string, error) {
	c.mu.Lock()
	cached, ok := c.properties[className]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	class, err := c.client.Schema().ClassGetter().WithClassName(className).Do(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("weaviate class %s: %w", className, catalog.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("get weaviate class %s: %w", className, err)
	}
	props := propertyNames(class)
	c.mu.Lock()
	c.properties[className] = props
	c.mu.Unlock()
	return props, nil
}

func isNotFound(err error) bool {
	var clientErr *fault.WeaviateClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound
}

// propertyNames returns the primitive properties of a class. Cross-references
// need sub-selections and are skipped.
func propertyNames(class *models.Class) []string {
	if class == nil {
		return nil
	}
	names := make([]string, 0, len(class.Properties))
	for _, prop := range class.Properties {
		if prop == nil || prop.Name == "" {
			continue
		}
		if len(prop.DataType) > 0 && isReference(prop.DataType[0]) {
			continue
		}
		names = append(names, prop.Name)
	}
	return names
}

func isReference(dataType string) bool {
	if dataType == "" {
		return false
	}
	first := dataType[:1]
	return first == strings.ToUpper(first) && first != strings.ToLower(first)
}

func selection(props []string, vectorName string, withPayload, withVectors, withScore bool) []graphql.Field {
	fields := make([]graphql.Field, 0, len(props)+1)
	if withPayload {
		for _, name := range props {
			fields = append(fields, graphql.Field{Name: name})
		}
	}
	additional := []graphql.Field{{Name: "id"}}
	if withScore {
		additional = append(additional, graphql.Field{Name: "distance"})
	}
	if withVectors {
		if vectorName == "" {
			additional = append(additional, graphql.Field{Name: "vector"})
		} else {
			additional = append(additional, graphql.Field{Name: "vectors", Fields: []graphql.Field{{Name: vectorName}}})
		}
	}
	return append(fields, graphql.Field{Name: "_additional", Fields: additional})
}

func buildWhere(f catalog.Filter) *filters.WhereBuilder {
	operands := []*filters.WhereBuilder{
		filters.Where().
			WithPath([]string{catalog.FieldKey}).
			WithOperator(filters.Equal).
			WithValueText(f.Key),
		withValue(filters.Where().
			WithPath([]string{catalog.FieldTempo}).
			WithOperator(filters.Equal), f.Tempo),
	}
	if f.MinFoundStems > 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{catalog.FieldFoundStems}).
			WithOperator(filters.GreaterThanEqual).
			WithValueInt(int64(f.MinFoundStems)))
	}
	return filters.Where().
		WithOperator(filters.And).
		WithOperands(operands)
}

func withValue(b *filters.WhereBuilder, value any) *filters.WhereBuilder {
	switch v := value.(type) {
	case float64:
		return b.WithValueNumber(v)
	case float32:
		return b.WithValueNumber(float64(v))
	case int:
		return b.WithValueInt(int64(v))
	case int64:
		return b.WithValueInt(v)
	case bool:
		return b.WithValueBoolean(v)
	default:
		return b.WithValueText(catalog.FormatValue(v))
	}
}

func graphQLError(result *models.GraphQLResponse) error {
	if result == nil {
		return errors.New("weaviate returned no response")
	}
	if len(result.Errors) == 0 {
		return nil
	}
	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		if e != nil {
			messages = append(messages, e.Message)
		}
	}
	return fmt.Errorf("weaviate graphql: %s", strings.Join(messages, "; "))
}
