package repository

import (
	"context"

	"github.com/dirneetapp/carta2026.io/internal/domain"
)

// CatalogRepository persists the catalog document as a single unit.
type CatalogRepository interface {
	// Load returns an empty catalog and a nil error when nothing was persisted yet.
	// Malformed content yields an empty catalog and an error wrapping domain.ErrCorruptData.
	Load(ctx context.Context) (*domain.Catalog, error)
	// Save atomically replaces the persisted document.
	Save(ctx context.Context, catalog *domain.Catalog) error
	// Location describes where the document lives, for logs and the watcher.
	Location() string
}
