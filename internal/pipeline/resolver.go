package pipeline

import (
	"fmt"
	"strings"

	"stemswap/internal/config"
	"stemswap/internal/stems"
)

// LoadResolver builds the compatibility resolver from the configured matrix
// and family table. A missing or unreadable matrix is fatal.
func LoadResolver(cfg *config.Config) (*stems.Resolver, error) {
	families, err := LoadFamilies(cfg)
	if err != nil {
		return nil, err
	}
	matrix, err := stems.LoadMatrix(cfg.Matching.MatrixPath)
	if err != nil {
		return nil, err
	}
	return stems.NewResolver(families, matrix), nil
}

// LoadFamilies returns the family table override when configured, else the
// built-in table.
func LoadFamilies(cfg *config.Config) (*stems.FamilyTable, error) {
	path := strings.TrimSpace(cfg.Matching.FamilyTablePath)
	if path == "" {
		return stems.DefaultFamilyTable(), nil
	}
	table, err := stems.LoadFamilyTable(path)
	if err != nil {
		return nil, fmt.Errorf("load family table %s: %w", path, err)
	}
	return table, nil
}
