package main

import (
	"fmt"
	"io"
	"log/slog"

	"stemswap/internal/catalog"
	"stemswap/internal/catalog/qdrant"
	"stemswap/internal/catalog/weaviate"
	"stemswap/internal/config"
	"stemswap/internal/logging"
)

type catalogFactory func(cfg *config.Config, logger *slog.Logger) (catalog.Catalog, error)

// openCatalog connects to the configured backend.
func openCatalog(cfg *config.Config, logger *slog.Logger) (catalog.Catalog, error) {
	switch cfg.Catalog.Backend {
	case config.BackendQdrant:
		client, err := qdrant.New(cfg.Catalog.URL, cfg.Catalog.APIKey,
			qdrant.WithTimeout(cfg.CatalogTimeout()),
			qdrant.WithInsecureSkipVerify(cfg.Catalog.InsecureSkipVerify),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendWeaviate:
		client, err := weaviate.New(weaviate.Options{
			URL:                cfg.Catalog.URL,
			APIKey:             cfg.Catalog.APIKey,
			Timeout:            cfg.CatalogTimeout(),
			InsecureSkipVerify: cfg.Catalog.InsecureSkipVerify,
			Logger:             logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported catalog backend %q", cfg.Catalog.Backend)
	}
}

// closeCatalog releases backends that hold connections.
func closeCatalog(cat catalog.Catalog, logger *slog.Logger) {
	closer, ok := cat.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil && logger != nil {
		logger.Warn("close catalog failed", logging.Error(err))
	}
}
