package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemswap/internal/catalog"
	"stemswap/internal/config"
	"stemswap/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	catalog    *testsupport.Catalog
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, records ...catalog.Record) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("VDB_URL", "")
	t.Setenv("VDB_API_KEY", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		catalog:    testsupport.NewCatalog(cfg.Catalog.Collection, records...),
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	factory := func(*config.Config, *slog.Logger) (catalog.Catalog, error) {
		return env.catalog, nil
	}
	cmd := buildRootCommand(factory)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[catalog]
url = %q
api_key = %q
collection = %q
batch_size = %d

[matching]
storage_root = %q
matrix_path = %q

[output]
dir = %q

[state]
ledger_path = %q
log_dir = %q

[logging]
format = "json"
`,
		cfg.Catalog.URL,
		cfg.Catalog.APIKey,
		cfg.Catalog.Collection,
		cfg.Catalog.BatchSize,
		cfg.Matching.StorageRoot,
		cfg.Matching.MatrixPath,
		cfg.Output.Dir,
		cfg.State.LedgerPath,
		cfg.State.LogDir,
	)
	testsupport.WriteFile(t, path, content)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
