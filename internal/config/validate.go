package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case BackendQdrant, BackendWeaviate:
	default:
		return fmt.Errorf("catalog.backend must be %q or %q, got %q", BackendQdrant, BackendWeaviate, c.Catalog.Backend)
	}
	if strings.TrimSpace(c.Catalog.URL) == "" {
		return errors.New("catalog.url must be set (or set VDB_URL)")
	}
	if strings.TrimSpace(c.Catalog.Collection) == "" {
		return errors.New("catalog.collection must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"catalog.batch_size":      c.Catalog.BatchSize,
		"catalog.timeout_seconds": c.Catalog.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.SimilarityThreshold < 0 || m.SimilarityThreshold > 1 {
		return errors.New("matching.similarity_threshold must be between 0 and 1")
	}
	if m.SelfMatchTolerance <= 0 || m.SelfMatchTolerance >= 1 {
		return errors.New("matching.self_match_tolerance must be between 0 and 1 (exclusive)")
	}
	if m.MinFoundStems < 0 {
		return errors.New("matching.min_found_stems must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"matching.original_stem_slots":  m.OriginalStemSlots,
		"matching.candidate_stem_slots": m.CandidateStemSlots,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(m.MatrixPath) == "" {
		return errors.New("matching.matrix_path must be set")
	}
	return nil
}

func (c *Config) validateOutput() error {
	for key, name := range map[string]string{
		"output.interim_file":  c.Output.InterimFile,
		"output.final_file":    c.Output.FinalFile,
		"output.metadata_file": c.Output.MetadataFile,
	} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%s must be a file name, got %q", key, name)
		}
	}
	if c.Output.InterimFile == c.Output.FinalFile {
		return errors.New("output.interim_file and output.final_file must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
