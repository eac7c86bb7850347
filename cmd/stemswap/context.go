package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stemswap/internal/catalog"
	"stemswap/internal/config"
	"stemswap/internal/logging"
	"stemswap/internal/runlog"
)

type commandContext struct {
	configFlag *string
	newCatalog catalogFactory

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, factory catalogFactory) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		newCatalog: factory,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger builds the run logger and applies log retention. Terminal output
// goes to the command's stderr.
func (c *commandContext) logger(out io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, path, err := logging.NewFromConfig(cfg, out)
	if err != nil {
		return nil, err
	}
	logging.PruneLogs(logger, cfg.State.LogDir, cfg.Logging.RetentionDays, path)
	return logger, nil
}

func (c *commandContext) catalog(logger *slog.Logger) (catalog.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cat, err := c.newCatalog(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", cfg.Catalog.Backend, err)
	}
	return cat, nil
}

func (c *commandContext) withLedger(fn func(*runlog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runlog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
