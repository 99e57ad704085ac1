package review

import (
	"context"
	"errors"

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
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "review").Logger()}
}

func (r *postgresRepo) Get(ctx context.Context, patientID, itemID string) (*domain.Review, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, domain.ErrNotFound
	}
	var rv domain.Review
	err := r.pool.QueryRow(ctx, `
SELECT id::text, patient_id, item_id::text, rating, COALESCE(comment, ''), created_at
FROM reviews
WHERE patient_id = $1 AND item_id = $2
`, patientID, itemID).Scan(&rv.ID, &rv.PatientID, &rv.ItemID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// The eligibility check and the insert run as one statement, and the unique
// (patient_id, item_id) index decides between concurrent submissions.
func (r *postgresRepo) CreateIfEligible(ctx context.Context, rv domain.Review) (*domain.Review, error) {
	if _, err := uuid.Parse(rv.ItemID); err != nil {
		return nil, domain.ErrNotEligible
	}
	const q = `
INSERT INTO reviews (patient_id, item_id, rating, comment)
SELECT $1, $2, $3, NULLIF($4, '')
WHERE EXISTS (
    SELECT 1
    FROM results r
    JOIN orders o ON o.id = r.order_id
    WHERE o.owner_id = $1 AND r.item_id = $2 AND r.status = 'completed'
)
ON CONFLICT (patient_id, item_id) DO NOTHING
RETURNING id::text, created_at
`
	err := r.pool.QueryRow(ctx, q, rv.PatientID, rv.ItemID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Info().Str("patient_id", rv.PatientID).Str("item_id", rv.ItemID).Msg("review rejected: not eligible")
			return nil, domain.ErrNotEligible
		}
		r.logger.Error().Err(err).Str("patient_id", rv.PatientID).Str("item_id", rv.ItemID).Msg("create review")
		return nil, err
	}
	r.logger.Info().Str("review_id", rv.ID).Str("item_id", rv.ItemID).Int("rating", rv.Rating).Msg("review created")
	return &rv, nil
}

func (r *postgresRepo) ListByItem(ctx context.Context, itemID string) ([]domain.Review, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT id::text, patient_id, item_id::text, rating, COALESCE(comment, ''), created_at
FROM reviews
WHERE item_id = $1
ORDER BY created_at DESC
`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.PatientID, &rv.ItemID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
