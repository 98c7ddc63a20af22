package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dirneetapp/carta2026.io/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createCatalogsTable = `
	CREATE TABLE IF NOT EXISTS catalogs (
		name       TEXT PRIMARY KEY,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	selectCatalog = `SELECT data::text FROM catalogs WHERE name = $1`

	upsertCatalog = `
	INSERT INTO catalogs (name, data, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (name)
	DO UPDATE SET data = $2, updated_at = now()`
)

type postgresRepository struct {
	db   DB
	name string
}

// NewPostgresRepository stores the catalog document in the catalogs table under name.
func NewPostgresRepository(db DB, name string) CatalogRepository {
	return &postgresRepository{
		db:   db,
		name: name,
	}
}

// EnsureSchema creates the catalogs table when missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, createCatalogsTable); err != nil {
		return fmt.Errorf("failed to create catalogs table: %w", err)
	}
	return nil
}

func (r *postgresRepository) Load(ctx context.Context) (*domain.Catalog, error) {
	var data string
	err := r.db.QueryRow(ctx, selectCatalog, r.name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewCatalog(), nil
		}
		return domain.NewCatalog(), fmt.Errorf("failed to load catalog %s: %w", r.name, err)
	}

	catalog, err := domain.UnmarshalCatalog([]byte(data))
	if err != nil {
		return domain.NewCatalog(), domain.CorruptDataError("load", fmt.Errorf("catalog %s: %w", r.name, err))
	}

	return catalog, nil
}

func (r *postgresRepository) Save(ctx context.Context, catalog *domain.Catalog) error {
	data, err := domain.MarshalCatalog(catalog)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, upsertCatalog, r.name, string(data)); err != nil {
		return fmt.Errorf("failed to save catalog %s: %w", r.name, err)
	}

	return nil
}

func (r *postgresRepository) Location() string {
	return "postgres:catalogs/" + r.name
}
