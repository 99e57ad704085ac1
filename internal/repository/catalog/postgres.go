package catalog

import (
	"context"
	"errors"
	"fmt"

	"labcommerce/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "catalog").Logger()}
}

const itemColumns = `id::text, code, name, COALESCE(description, ''), price_cents, category, created_at`

func scanItem(row pgx.Row) (domain.CatalogItem, error) {
	var it domain.CatalogItem
	var cents int64
	if err := row.Scan(&it.ID, &it.Code, &it.Name, &it.Description, &cents, &it.Category, &it.CreatedAt); err != nil {
		return domain.CatalogItem{}, err
	}
	it.Price = domain.CentsToDecimal(cents)
	return it, nil
}

func (r *postgresRepo) List(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	q := `SELECT ` + itemColumns + ` FROM catalog_items`
	var args []any
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY category, name`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("category", category).Msg("list")
		return nil, err
	}
	defer rows.Close()

	var result []domain.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Str("category", category).Msg("list rows")
		return nil, err
	}
	r.logger.Debug().Str("category", category).Int("count", len(result)).Msg("list")
	return result, nil
}

func (r *postgresRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM catalog_items ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("id", id).Msg("get: not found")
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Str("id", id).Msg("get")
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.CatalogItem, error) {
	out := make(map[string]domain.CatalogItem, len(ids))
	// Malformed ids cannot match a uuid column; leave them out so the caller reports them as unknown.
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		r.logger.Error().Err(err).Int("ids", len(valid)).Msg("get by ids")
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error) {
	const q = `
INSERT INTO catalog_items (id, code, name, description, price_cents, category)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    category = EXCLUDED.category
RETURNING id::text, created_at
`
	res := item
	err := r.pool.QueryRow(ctx, q,
		item.ID,
		item.Code,
		item.Name,
		item.Description,
		domain.DecimalToCents(item.Price),
		item.Category,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("code", item.Code).Msg("upsert")
		return nil, err
	}
	if item.ID != "" && res.ID != item.ID {
		return nil, fmt.Errorf("catalog repo: id mismatch for code=%s existing_id=%s import_id=%s", item.Code, res.ID, item.ID)
	}
	r.logger.Debug().Str("code", res.Code).Str("id", res.ID).Msg("upserted")
	return &res, nil
}
