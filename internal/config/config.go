package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Catalog configures the vector store holding the track catalog.
type Catalog struct {
	Backend            string `toml:"backend"`
	URL                string `toml:"url"`
	APIKey             string `toml:"api_key"`
	Collection         string `toml:"collection"`
	VectorName         string `toml:"vector_name"`
	BatchSize          int    `toml:"batch_size"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Matching contains the knobs of the stem matching pass.
type Matching struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	SelfMatchTolerance  float64 `toml:"self_match_tolerance"`
	MinFoundStems       int     `toml:"min_found_stems"`
	OriginalStemSlots   int     `toml:"original_stem_slots"`
	CandidateStemSlots  int     `toml:"candidate_stem_slots"`
	StorageRoot         string  `toml:"storage_root"`
	MatrixPath          string  `toml:"matrix_path"`
	FamilyTablePath     string  `toml:"family_table_path"`
	MaxTracks           int     `toml:"max_tracks"`
}

// Output names the CSV artifacts written by a run.
type Output struct {
	Dir           string `toml:"dir"`
	InterimFile   string `toml:"interim_file"`
	FinalFile     string `toml:"final_file"`
	MetadataFile  string `toml:"metadata_file"`
	DefaultSource string `toml:"default_source"`
}

// State locates the run ledger and log files.
type State struct {
	LedgerPath string `toml:"ledger_path"`
	LogDir     string `toml:"log_dir"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for stemswap.
//
// Configuration sections by subsystem:
//   - Catalog: vector store connection and collection
//   - Matching: thresholds, stem slot counts, matrix and family table sources
//   - Output: CSV file locations
//   - State: run ledger and log directory
//   - Metrics: Prometheus textfile export
//   - Logging: log format, level, and retention
type Config struct {
	Catalog  Catalog  `toml:"catalog"`
	Matching Matching `toml:"matching"`
	Output   Output   `toml:"output"`
	State    State    `toml:"state"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stemswap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, ledger, and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir, filepath.Dir(c.State.LedgerPath), c.State.LogDir}
	if c.Metrics.Enabled && c.Metrics.TextfilePath != "" {
		dirs = append(dirs, filepath.Dir(c.Metrics.TextfilePath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InterimPath is the combinations snapshot rewritten after every track.
func (c *Config) InterimPath() string {
	return filepath.Join(c.Output.Dir, c.Output.InterimFile)
}

// FinalPath is the combinations file written when the run completes.
func (c *Config) FinalPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FinalFile)
}

// MetadataPath is the destination of the metadata export.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Output.Dir, c.Output.MetadataFile)
}

// LockPath guards the output directory against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Output.Dir, "stemswap.lock")
}

// CatalogTimeout returns the per-request catalog timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
