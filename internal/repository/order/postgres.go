package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labcommerce/internal/domain"
	"labcommerce/internal/repository/result"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	uniqueViolation       = "23505"
	idempotencyConstraint = "idx_orders_owner_idempotency"
	defaultListLimit      = 100
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "order").Logger()}
}

const orderColumns = `
id::text, order_number, owner_id, status,
buyer_first_name, buyer_last_name, buyer_email,
COALESCE(buyer_phone, ''), COALESCE(buyer_date_of_birth, ''), COALESCE(buyer_gender, ''),
COALESCE(buyer_address_line, ''), COALESCE(buyer_city, ''), COALESCE(buyer_postal_code, ''),
subtotal_cents, fee_cents, total_cents,
payment_status, payment_method, paid_at, transaction_id,
insurance_provider, insurance_policy_number, idempotency_key,
created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                          domain.Order
		status, payStatus, payMeth string
		subtotal, fee, total       int64
		insProvider, insPolicy     *string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OwnerID, &status,
		&o.Buyer.FirstName, &o.Buyer.LastName, &o.Buyer.Email,
		&o.Buyer.Phone, &o.Buyer.DateOfBirth, &o.Buyer.Gender,
		&o.Buyer.AddressLine, &o.Buyer.City, &o.Buyer.PostalCode,
		&subtotal, &fee, &total,
		&payStatus, &payMeth, &o.PaidAt, &o.TransactionID,
		&insProvider, &insPolicy, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	o.PaymentMethod = domain.PaymentMethod(payMeth)
	o.Subtotal = domain.CentsToDecimal(subtotal)
	o.Fee = domain.CentsToDecimal(fee)
	o.TotalAmount = domain.CentsToDecimal(total)
	if insProvider != nil || insPolicy != nil {
		o.Insurance = &domain.Insurance{Provider: deref(insProvider), PolicyNumber: deref(insPolicy)}
	}
	return o, nil
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var insProvider, insPolicy *string
	if o.Insurance != nil {
		insProvider, insPolicy = &o.Insurance.Provider, &o.Insurance.PolicyNumber
	}

	err = tx.QueryRow(ctx, `
INSERT INTO orders (
    order_number, owner_id, status,
    buyer_first_name, buyer_last_name, buyer_email, buyer_phone, buyer_date_of_birth,
    buyer_gender, buyer_address_line, buyer_city, buyer_postal_code,
    subtotal_cents, fee_cents, total_cents,
    payment_status, payment_method, transaction_id,
    insurance_provider, insurance_policy_number, idempotency_key
) VALUES (
    $1, $2, $3,
    $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''),
    NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
    $13, $14, $15,
    $16, $17, $18,
    $19, $20, $21
)
RETURNING id::text, created_at, updated_at
`,
		o.OrderNumber, o.OwnerID, string(o.Status),
		o.Buyer.FirstName, o.Buyer.LastName, o.Buyer.Email, o.Buyer.Phone, o.Buyer.DateOfBirth,
		o.Buyer.Gender, o.Buyer.AddressLine, o.Buyer.City, o.Buyer.PostalCode,
		domain.DecimalToCents(o.Subtotal), domain.DecimalToCents(o.Fee), domain.DecimalToCents(o.TotalAmount),
		string(o.PaymentStatus), string(o.PaymentMethod), o.TransactionID,
		insProvider, insPolicy, o.IdempotencyKey,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == idempotencyConstraint {
				return nil, ErrDuplicateIdempotencyKey
			}
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error().Err(err).Str("owner_id", o.OwnerID).Msg("create order")
		return nil, err
	}

	o.Results = make([]domain.Result, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, item_id, code, name, description, unit_price_cents, quantity, line_total_cents, position)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
RETURNING id::text
`, o.ID, it.ItemID, it.Code, it.Name, it.Description,
			domain.DecimalToCents(it.UnitPrice), it.Quantity, domain.DecimalToCents(it.LineTotal), i,
		).Scan(&it.ID); err != nil {
			r.logger.Error().Err(err).Str("order_id", o.ID).Str("item_id", it.ItemID).Msg("insert order item")
			return nil, fmt.Errorf("insert order item %s: %w", it.ItemID, err)
		}

		res := domain.Result{OrderID: o.ID, OrderItemID: it.ID, ItemID: it.ItemID, Status: domain.ResultStatusPending}
		if err := tx.QueryRow(ctx, `
INSERT INTO results (order_id, order_item_id, item_id, status)
VALUES ($1, $2, $3, $4)
RETURNING id::text, updated_at
`, o.ID, it.ID, it.ItemID, string(res.Status)).Scan(&res.ID, &res.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Str("order_id", o.ID).Str("order_item_id", it.ID).Msg("insert result")
			return nil, fmt.Errorf("insert result for %s: %w", it.ItemID, err)
		}
		o.Results = append(o.Results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info().Str("order_id", o.ID).Str("order_number", o.OrderNumber).Int("items", len(o.Items)).Msg("order created")
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error) {
	return r.getOne(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 AND idempotency_key = $2`, ownerID, key)
}

func (r *postgresRepo) getOne(ctx context.Context, q result.Querier, sql string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Msg("get order")
		return nil, err
	}
	if err := r.attach(ctx, q, []*domain.Order{&o}, true); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *postgresRepo) ListAll(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(filter.Offset, 0)
	if filter.Status != "" {
		return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			string(filter.Status), limit, offset)
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresRepo) list(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("list orders")
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.attach(ctx, r.pool, ptrs, false); err != nil {
		return nil, err
	}
	r.logger.Debug().Int("count", len(orders)).Msg("list orders")
	return orders, nil
}

// attach loads order items, and results when withResults is set, for the given orders.
func (r *postgresRepo) attach(ctx context.Context, q result.Querier, orders []*domain.Order, withResults bool) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
		o.Items = []domain.OrderItem{}
	}

	rows, err := q.Query(ctx, `
SELECT id::text, order_id::text, item_id::text, code, name, COALESCE(description, ''), unit_price_cents, quantity, line_total_cents
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		var unit, line int64
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Code, &it.Name, &it.Description, &unit, &it.Quantity, &line); err != nil {
			return err
		}
		it.UnitPrice = domain.CentsToDecimal(unit)
		it.LineTotal = domain.CentsToDecimal(line)
		byID[it.OrderID].Items = append(byID[it.OrderID].Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if !withResults {
		return nil
	}
	results, err := result.Load(ctx, q, `WHERE r.order_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	for _, res := range results {
		o := byID[res.OrderID]
		o.Results = append(o.Results, res)
	}
	return nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := fn(&o); err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if err := tx.QueryRow(ctx, `
UPDATE orders
SET status = $2,
    payment_status = $3,
    payment_method = $4,
    paid_at = $5,
    transaction_id = $6,
    updated_at = now()
WHERE id = $1
RETURNING updated_at
`, o.ID, string(o.Status), string(o.PaymentStatus), string(o.PaymentMethod), o.PaidAt, o.TransactionID).Scan(&updatedAt); err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("update order")
		return nil, err
	}
	o.UpdatedAt = updatedAt

	if err := r.attach(ctx, tx, []*domain.Order{&o}, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("order_id", o.ID).
		Str("status", string(o.Status)).
		Str("payment_status", string(o.PaymentStatus)).
		Msg("order updated")
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
