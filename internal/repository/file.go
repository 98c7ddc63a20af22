package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/fsutil"

	"github.com/spf13/afero"
)

type fileRepository struct {
	fs   afero.Fs
	path string
}

// NewFileRepository stores the catalog as an indented JSON document at path.
func NewFileRepository(fs afero.Fs, path string) CatalogRepository {
	return &fileRepository{
		fs:   fs,
		path: path,
	}
}

func (r *fileRepository) Load(_ context.Context) (*domain.Catalog, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewCatalog(), nil
		}
		return domain.NewCatalog(), fmt.Errorf("failed to read catalog %s: %w", r.path, err)
	}

	catalog, err := domain.UnmarshalCatalog(data)
	if err != nil {
		return domain.NewCatalog(), domain.CorruptDataError("load", fmt.Errorf("%s: %w", r.path, err))
	}

	return catalog, nil
}

func (r *fileRepository) Save(_ context.Context, catalog *domain.Catalog) error {
	data, err := domain.MarshalCatalog(catalog)
	if err != nil {
		return err
	}

	if err := fsutil.WriteFileAtomic(r.fs, r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}

	return nil
}

func (r *fileRepository) Location() string {
	return r.path
}
