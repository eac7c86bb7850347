package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeCatalog()
	if err := c.normalizeMatching(); err != nil {
		return err
	}
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	if err := c.normalizeState(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	if c.Catalog.Backend == "" {
		c.Catalog.Backend = defaultCatalogBackend
	}
	c.Catalog.URL = strings.TrimSpace(c.Catalog.URL)
	if c.Catalog.URL == "" {
		if value, ok := os.LookupEnv("VDB_URL"); ok {
			c.Catalog.URL = strings.TrimSpace(value)
		}
	}
	if c.Catalog.URL == "" {
		c.Catalog.URL = defaultCatalogURL
	}
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("VDB_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.Collection = strings.TrimSpace(c.Catalog.Collection)
	if c.Catalog.Collection == "" {
		c.Catalog.Collection = defaultCollection
	}
	c.Catalog.VectorName = strings.TrimSpace(c.Catalog.VectorName)
	if c.Catalog.BatchSize <= 0 {
		c.Catalog.BatchSize = defaultBatchSize
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
}

func (c *Config) normalizeMatching() error {
	var err error
	if c.Matching.SelfMatchTolerance <= 0 {
		c.Matching.SelfMatchTolerance = defaultSelfMatchTolerance
	}
	if c.Matching.OriginalStemSlots <= 0 {
		c.Matching.OriginalStemSlots = defaultOriginalStemSlots
	}
	if c.Matching.CandidateStemSlots <= 0 {
		c.Matching.CandidateStemSlots = defaultCandidateStemSlots
	}
	c.Matching.StorageRoot = strings.TrimRight(strings.TrimSpace(c.Matching.StorageRoot), "/")
	if c.Matching.StorageRoot == "" {
		c.Matching.StorageRoot = defaultStorageRoot
	}
	if strings.TrimSpace(c.Matching.MatrixPath) == "" {
		c.Matching.MatrixPath = defaultMatrixPath
	}
	if c.Matching.MatrixPath, err = expandPath(c.Matching.MatrixPath); err != nil {
		return fmt.Errorf("matching.matrix_path: %w", err)
	}
	c.Matching.FamilyTablePath = strings.TrimSpace(c.Matching.FamilyTablePath)
	if c.Matching.FamilyTablePath, err = expandPath(c.Matching.FamilyTablePath); err != nil {
		return fmt.Errorf("matching.family_table_path: %w", err)
	}
	if c.Matching.MaxTracks < 0 {
		c.Matching.MaxTracks = 0
	}
	return nil
}

func (c *Config) normalizeOutput() error {
	var err error
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.Output.InterimFile = strings.TrimSpace(c.Output.InterimFile)
	if c.Output.InterimFile == "" {
		c.Output.InterimFile = defaultInterimFile
	}
	c.Output.FinalFile = strings.TrimSpace(c.Output.FinalFile)
	if c.Output.FinalFile == "" {
		c.Output.FinalFile = defaultFinalFile
	}
	c.Output.MetadataFile = strings.TrimSpace(c.Output.MetadataFile)
	if c.Output.MetadataFile == "" {
		c.Output.MetadataFile = defaultMetadataFile
	}
	c.Output.DefaultSource = strings.TrimSpace(c.Output.DefaultSource)
	if c.Output.DefaultSource == "" {
		c.Output.DefaultSource = defaultSource
	}
	return nil
}

func (c *Config) normalizeState() error {
	var err error
	if strings.TrimSpace(c.State.LedgerPath) == "" {
		c.State.LedgerPath = defaultLedgerPath
	}
	if c.State.LedgerPath, err = expandPath(c.State.LedgerPath); err != nil {
		return fmt.Errorf("state.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.State.LogDir) == "" {
		c.State.LogDir = defaultLogDir
	}
	if c.State.LogDir, err = expandPath(c.State.LogDir); err != nil {
		return fmt.Errorf("state.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if strings.TrimSpace(c.Metrics.TextfilePath) == "" {
		c.Metrics.TextfilePath = defaultMetricsTextfile
	}
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
