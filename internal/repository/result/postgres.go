package result

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

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const resultSelect = `
SELECT r.id::text, r.order_id::text, r.order_item_id::text, r.item_id::text,
       COALESCE(r.value, ''), COALESCE(r.reference_range, ''), COALESCE(r.unit, ''),
       r.status, r.reviewed, r.attachment_name, r.attachment_url, r.attachment_content_type, r.updated_at
FROM results r
JOIN order_items oi ON oi.id = r.order_item_id
`

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		res                 domain.Result
		status              string
		attName, attURL, ct *string
	)
	if err := row.Scan(&res.ID, &res.OrderID, &res.OrderItemID, &res.ItemID,
		&res.Value, &res.ReferenceRange, &res.Unit,
		&status, &res.Reviewed, &attName, &attURL, &ct, &res.UpdatedAt); err != nil {
		return domain.Result{}, err
	}
	res.Status = domain.ResultStatus(status)
	if attURL != nil {
		res.Attachment = &domain.Attachment{URL: *attURL}
		if attName != nil {
			res.Attachment.Name = *attName
		}
		if ct != nil {
			res.Attachment.ContentType = *ct
		}
	}
	return res, nil
}

// Load runs the result select with the given WHERE clause, ordered by order and item position.
func Load(ctx context.Context, q Querier, where string, args ...any) ([]domain.Result, error) {
	rows, err := q.Query(ctx, resultSelect+where+` ORDER BY oi.order_id, oi.position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "result").Logger()}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	res, err := scanResult(r.pool.QueryRow(ctx, resultSelect+`WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Str("result_id", id).Msg("get")
		return nil, err
	}
	return &res, nil
}

func (r *postgresRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Result, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, domain.ErrNotFound
	}
	out, err := Load(ctx, r.pool, `WHERE r.order_id = $1`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("list by order")
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) HasCompleted(ctx context.Context, patientID, itemID string) (bool, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return false, nil
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM results r
    JOIN orders o ON o.id = r.order_id
    WHERE o.owner_id = $1 AND r.item_id = $2 AND r.status = 'completed'
)
`, patientID, itemID).Scan(&ok)
	if err != nil {
		r.logger.Error().Err(err).Str("patient_id", patientID).Str("item_id", itemID).Msg("has completed")
		return false, err
	}
	return ok, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, fn func(res *domain.Result) error) (*domain.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := scanResult(tx.QueryRow(ctx, resultSelect+`WHERE r.id = $1 FOR UPDATE OF r`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := fn(&res); err != nil {
		return nil, err
	}

	var attName, attURL, ct *string
	if res.Attachment != nil {
		attName, attURL, ct = &res.Attachment.Name, &res.Attachment.URL, &res.Attachment.ContentType
	}
	if err := tx.QueryRow(ctx, `
UPDATE results
SET value = NULLIF($2, ''),
    reference_range = NULLIF($3, ''),
    unit = NULLIF($4, ''),
    status = $5,
    reviewed = $6,
    attachment_name = $7,
    attachment_url = $8,
    attachment_content_type = $9,
    updated_at = now()
WHERE id = $1
RETURNING updated_at
`, res.ID, res.Value, res.ReferenceRange, res.Unit, string(res.Status), res.Reviewed, attName, attURL, ct).Scan(&res.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Str("result_id", id).Msg("update")
		return nil, fmt.Errorf("update result: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info().Str("result_id", res.ID).Str("status", string(res.Status)).Msg("result updated")
	return &res, nil
}
