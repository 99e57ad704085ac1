package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"labcommerce/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledger stands in for the result and review tables. CreateIfEligible holds
// the lock across check and insert, like the single conditional statement.
type ledger struct {
	mu        sync.Mutex
	completed map[string]bool
	reviews   map[string]domain.Review
	err       error
}

func newLedger() *ledger {
	return &ledger{completed: map[string]bool{}, reviews: map[string]domain.Review{}}
}

func key(patientID, itemID string) string { return patientID + "|" + itemID }

func (l *ledger) HasCompleted(_ context.Context, patientID, itemID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed[key(patientID, itemID)], l.err
}

func (l *ledger) Get(_ context.Context, patientID, itemID string) (*domain.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	rv, ok := l.reviews[key(patientID, itemID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rv, nil
}

func (l *ledger) CreateIfEligible(_ context.Context, rv domain.Review) (*domain.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(rv.PatientID, rv.ItemID)
	if !l.completed[k] {
		return nil, domain.ErrNotEligible
	}
	if _, ok := l.reviews[k]; ok {
		return nil, domain.ErrNotEligible
	}
	rv.ID = "review-" + k
	rv.CreatedAt = time.Now()
	l.reviews[k] = rv
	return &rv, nil
}

func (l *ledger) ListByItem(_ context.Context, itemID string) ([]domain.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Review
	for _, rv := range l.reviews {
		if rv.ItemID == itemID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func TestEligibilityLifecycle(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	svc := New(l, l, nil, zerolog.Nop())

	e, err := svc.CheckEligibility(ctx, "patient-1", "hba1c")
	require.NoError(t, err)
	assert.False(t, e.Eligible)

	_, err = svc.Submit(ctx, "patient-1", SubmitInput{ItemID: "hba1c", Rating: 5})
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	l.completed[key("patient-1", "hba1c")] = true
	e, err = svc.CheckEligibility(ctx, "patient-1", "hba1c")
	require.NoError(t, err)
	assert.True(t, e.Eligible)

	rv, err := svc.Submit(ctx, "patient-1", SubmitInput{ItemID: "hba1c", Rating: 5, Comment: "  fast turnaround  "})
	require.NoError(t, err)
	assert.Equal(t, "fast turnaround", rv.Comment)

	e, err = svc.CheckEligibility(ctx, "patient-1", "hba1c")
	require.NoError(t, err)
	assert.False(t, e.Eligible)
	assert.True(t, e.AlreadyReviewed)

	_, err = svc.Submit(ctx, "patient-1", SubmitInput{ItemID: "hba1c", Rating: 2})
	assert.ErrorIs(t, err, domain.ErrNotEligible)
}

func TestSubmitValidation(t *testing.T) {
	l := newLedger()
	l.completed[key("patient-1", "hba1c")] = true
	svc := New(l, l, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, "", SubmitInput{ItemID: "hba1c", Rating: 5})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	for _, in := range []SubmitInput{
		{ItemID: "hba1c", Rating: 0},
		{ItemID: "hba1c", Rating: 6},
		{ItemID: "hba1c", Rating: 3, Comment: strings.Repeat("x", domain.MaxReviewCommentLength+1)},
		{ItemID: " ", Rating: 3},
	} {
		_, err := svc.Submit(ctx, "patient-1", in)
		_, ok := domain.AsValidation(err)
		assert.True(t, ok, "input %+v: got %v", in, err)
	}
	assert.Empty(t, l.reviews)
}

func TestConcurrentSubmitStoresOneReview(t *testing.T) {
	l := newLedger()
	l.completed[key("patient-1", "hba1c")] = true
	svc := New(l, l, nil, zerolog.Nop())

	const workers = 10
	var (
		wg                sync.WaitGroup
		mu                sync.Mutex
		okCount, rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), "patient-1", SubmitInput{ItemID: "hba1c", Rating: 4})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, domain.ErrNotEligible):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, workers-1, rejected)
	assert.Len(t, l.reviews, 1)
}

func TestListForItemSummary(t *testing.T) {
	l := newLedger()
	l.completed[key("p1", "hba1c")] = true
	l.completed[key("p2", "hba1c")] = true
	svc := New(l, l, nil, zerolog.Nop())
	ctx := context.Background()

	sum, err := svc.ListForItem(ctx, "hba1c")
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
	assert.NotNil(t, sum.Reviews)

	_, err = svc.Submit(ctx, "p1", SubmitInput{ItemID: "hba1c", Rating: 5})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "p2", SubmitInput{ItemID: "hba1c", Rating: 2})
	require.NoError(t, err)

	sum, err = svc.ListForItem(ctx, "hba1c")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 3.5, sum.AverageRating, 0.001)
}

func TestCheckEligibilityStoreError(t *testing.T) {
	l := newLedger()
	l.err = errors.New("db down")
	svc := New(l, l, nil, zerolog.Nop())

	_, err := svc.CheckEligibility(context.Background(), "patient-1", "hba1c")
	assert.Error(t, err)
}
