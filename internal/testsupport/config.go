package testsupport

import (
	"path/filepath"
	"testing"

	"stemswap/internal/config"
)

// DefaultMatrix is a small compatibility matrix used by pipeline tests. Keys
// may replace Chords and Pad, and Bass only itself.
const DefaultMatrix = `,Keys,Chords,Pad,Lead,Guitar,Bass,Drums
Keys,YES,YES,YES,,,,
Chords,YES,YES,YES,,,,
Pad,YES,YES,YES,,,,
Lead,,,,YES,,,
Guitar,,,,,YES,,
Bass,,,,,,YES,
Drums,,,,,,,YES
`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	matrix  string
}

// NewConfig produces a config seeded with unique temp directories per test.
// The matrix file is written under the temp directory; metrics are disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Catalog.URL = "http://catalog.invalid"
	cfgVal.Catalog.APIKey = "test"
	cfgVal.Catalog.Collection = "tracks"
	cfgVal.Catalog.BatchSize = 2
	cfgVal.Matching.StorageRoot = "s3://bucket"
	cfgVal.Matching.MatrixPath = filepath.Join(base, "matrix.csv")
	cfgVal.Output.Dir = filepath.Join(base, "sheets")
	cfgVal.State.LedgerPath = filepath.Join(base, "state", "runs.db")
	cfgVal.State.LogDir = filepath.Join(base, "logs")
	cfgVal.Metrics.Enabled = false
	cfgVal.Metrics.TextfilePath = filepath.Join(base, "metrics", "stemswap.prom")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
		matrix:  DefaultMatrix,
	}
	for _, opt := range opts {
		opt(builder)
	}

	WriteFile(t, builder.cfg.Matching.MatrixPath, builder.matrix)
	return builder.cfg
}

// WithMatrix replaces the compatibility matrix contents.
func WithMatrix(csv string) ConfigOption {
	return func(b *configBuilder) {
		b.matrix = csv
	}
}

// WithThreshold overrides the similarity threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.SimilarityThreshold = threshold
	}
}

// WithMaxTracks limits the number of tracks a run examines.
func WithMaxTracks(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MaxTracks = n
	}
}

// WithMetrics enables the Prometheus textfile export.
func WithMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = true
	}
}

// WithFamilyTable writes a YAML family table override and points the config at it.
func WithFamilyTable(yaml string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "families.yaml")
		WriteFile(b.t, path, yaml)
		b.cfg.Matching.FamilyTablePath = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Matching.MatrixPath)
}
