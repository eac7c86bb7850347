package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stemswap/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvAPIKey(t *testing.T) {
	t.Setenv("VDB_API_KEY", "env-key")
	t.Setenv("VDB_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLedger := filepath.Join(tempHome, ".local", "share", "stemswap", "runs.db")
	if cfg.State.LedgerPath != wantLedger {
		t.Fatalf("unexpected ledger path: got %q want %q", cfg.State.LedgerPath, wantLedger)
	}
	if !filepath.IsAbs(cfg.Output.Dir) || filepath.Base(cfg.Output.Dir) != "sheets" {
		t.Fatalf("expected absolute sheets output dir, got %q", cfg.Output.Dir)
	}
	if !filepath.IsAbs(cfg.Matching.MatrixPath) || !strings.HasSuffix(cfg.Matching.MatrixPath, filepath.Join("sheets", "matrix.csv")) {
		t.Fatalf("unexpected matrix path %q", cfg.Matching.MatrixPath)
	}
	if cfg.Catalog.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Catalog.APIKey)
	}
	if cfg.Catalog.URL != config.Default().Catalog.URL {
		t.Fatalf("unexpected catalog url %q", cfg.Catalog.URL)
	}
	if cfg.Catalog.Collection != "gramosynth_v3x_2" || cfg.Catalog.VectorName != "audio" {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.Matching.SimilarityThreshold != 0.7 || cfg.Matching.MinFoundStems != 2 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Matching.StorageRoot != "s3://rtsy-gramosynth" {
		t.Fatalf("unexpected storage root %q", cfg.Matching.StorageRoot)
	}
	if filepath.Base(cfg.FinalPath()) != "stem_combinations3.csv" || filepath.Base(cfg.InterimPath()) != "results_.csv" {
		t.Fatalf("unexpected output files %q %q", cfg.FinalPath(), cfg.InterimPath())
	}
	if cfg.CatalogTimeout().Seconds() != 300 {
		t.Fatalf("unexpected catalog timeout %v", cfg.CatalogTimeout())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "stemswap.toml")

	type payload struct {
		Catalog struct {
			Backend string `toml:"backend"`
			URL     string `toml:"url"`
			APIKey  string `toml:"api_key"`
		} `toml:"catalog"`
		Matching struct {
			SimilarityThreshold float64 `toml:"similarity_threshold"`
			StorageRoot         string  `toml:"storage_root"`
			MaxTracks           int     `toml:"max_tracks"`
		} `toml:"matching"`
		Output struct {
			Dir string `toml:"dir"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Catalog.Backend = "Weaviate"
	custom.Catalog.URL = "https://vdb.example.com"
	custom.Catalog.APIKey = "file-key"
	custom.Matching.SimilarityThreshold = 0.8
	custom.Matching.StorageRoot = "s3://bucket/"
	custom.Matching.MaxTracks = 25
	custom.Output.Dir = filepath.Join(tempDir, "out")
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("VDB_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Catalog.Backend != config.BackendWeaviate {
		t.Fatalf("expected backend to be normalized, got %q", cfg.Catalog.Backend)
	}
	if cfg.Catalog.APIKey != "file-key" {
		t.Fatalf("expected file API key to win over env, got %q", cfg.Catalog.APIKey)
	}
	if cfg.Matching.SimilarityThreshold != 0.8 || cfg.Matching.MaxTracks != 25 {
		t.Fatalf("unexpected matching overrides: %+v", cfg.Matching)
	}
	if cfg.Matching.StorageRoot != "s3://bucket" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Matching.StorageRoot)
	}
	if cfg.MetadataPath() != filepath.Join(tempDir, "out", "track_metadata.csv") {
		t.Fatalf("unexpected metadata path %q", cfg.MetadataPath())
	}
	if cfg.Matching.OriginalStemSlots != 5 || cfg.Matching.CandidateStemSlots != 7 {
		t.Fatalf("expected slot defaults to survive partial file, got %+v", cfg.Matching)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "stemswap.toml")
	if err := os.WriteFile(configPath, []byte("[catalog]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "VDB_API_KEY") {
		t.Fatalf("sample config missing API key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.Catalog.Collection != defaults.Catalog.Collection {
		t.Fatalf("sample collection %q differs from default %q", cfg.Catalog.Collection, defaults.Catalog.Collection)
	}
	if cfg.Matching.SelfMatchTolerance != defaults.Matching.SelfMatchTolerance {
		t.Fatalf("sample tolerance %v differs from default", cfg.Matching.SelfMatchTolerance)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("expected sample to load cleanly, got %v (exists=%v)", err, exists)
	}
	if loaded.Catalog.BatchSize != 100 {
		t.Fatalf("unexpected batch size %d", loaded.Catalog.BatchSize)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"backend", func(c *config.Config) { c.Catalog.Backend = "pinecone" }},
		{"batch size", func(c *config.Config) { c.Catalog.BatchSize = 0 }},
		{"threshold", func(c *config.Config) { c.Matching.SimilarityThreshold = 1.5 }},
		{"tolerance", func(c *config.Config) { c.Matching.SelfMatchTolerance = 0 }},
		{"slots", func(c *config.Config) { c.Matching.CandidateStemSlots = 0 }},
		{"output name", func(c *config.Config) { c.Output.FinalFile = "nested/out.csv" }},
		{"same outputs", func(c *config.Config) { c.Output.FinalFile = c.Output.InterimFile }},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(base, "sheets")
	cfg.State.LedgerPath = filepath.Join(base, "state", "runs.db")
	cfg.State.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Output.Dir, filepath.Dir(cfg.State.LedgerPath), cfg.State.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
