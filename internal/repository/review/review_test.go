package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"labcommerce/internal/domain"
	"labcommerce/internal/repository/pgtest"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// completedOrder inserts an order for owner whose single result for itemID has the given status.
func completedOrder(t *testing.T, pool *pgxpool.Pool, owner, number, itemID, status string) {
	t.Helper()
	ctx := context.Background()
	var orderID, orderItemID string
	if err := pool.QueryRow(ctx, `
INSERT INTO orders (order_number, owner_id, status, buyer_first_name, buyer_last_name, buyer_email,
    subtotal_cents, fee_cents, total_cents, payment_status, payment_method)
VALUES ($1, $2, 'completed', 'A', 'B', 'a@b.c', 1500, 999, 2499, 'paid', 'card')
RETURNING id::text
`, number, owner).Scan(&orderID); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	if err := pool.QueryRow(ctx, `
INSERT INTO order_items (order_id, item_id, code, name, unit_price_cents, quantity, line_total_cents, position)
VALUES ($1, $2, 'X', 'X', 1500, 1, 1500, 0)
RETURNING id::text
`, orderID, itemID).Scan(&orderItemID); err != nil {
		t.Fatalf("insert order item: %v", err)
	}
	if _, err := pool.Exec(ctx, `
INSERT INTO results (order_id, order_item_id, item_id, status) VALUES ($1, $2, $3, $4)
`, orderID, orderItemID, itemID, status); err != nil {
		t.Fatalf("insert result: %v", err)
	}
}

func TestPostgres_CreateIfEligible(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())

	done := pgtest.InsertItem(t, pool, "DONE", 1500)
	pending := pgtest.InsertItem(t, pool, "PENDING", 1500)
	completedOrder(t, pool, "patient-1", "LAB-10000001", done, "completed")
	completedOrder(t, pool, "patient-1", "LAB-10000002", pending, "processing")

	if _, err := repo.CreateIfEligible(ctx, domain.Review{PatientID: "patient-1", ItemID: pending, Rating: 4}); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible without completed result, got %v", err)
	}
	if _, err := repo.CreateIfEligible(ctx, domain.Review{PatientID: "patient-2", ItemID: done, Rating: 4}); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for another patient, got %v", err)
	}

	rv, err := repo.CreateIfEligible(ctx, domain.Review{PatientID: "patient-1", ItemID: done, Rating: 5, Comment: "quick"})
	if err != nil {
		t.Fatalf("CreateIfEligible: %v", err)
	}
	if rv.ID == "" {
		t.Fatal("expected review id")
	}
	if _, err := repo.CreateIfEligible(ctx, domain.Review{PatientID: "patient-1", ItemID: done, Rating: 1}); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for second review, got %v", err)
	}

	list, err := repo.ListByItem(ctx, done)
	if err != nil {
		t.Fatalf("ListByItem: %v", err)
	}
	if len(list) != 1 || list[0].Rating != 5 {
		t.Fatalf("unexpected reviews %+v", list)
	}
}

func TestPostgres_ConcurrentSubmitsStoreOneReview(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())

	item := pgtest.InsertItem(t, pool, "RACE", 1500)
	completedOrder(t, pool, "patient-1", "LAB-20000001", item, "completed")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateIfEligible(ctx, domain.Review{PatientID: "patient-1", ItemID: item, Rating: 3})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrNotEligible) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful submit, got %d", succeeded)
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM reviews WHERE item_id = $1`, item).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored review, got %d", count)
	}
}
