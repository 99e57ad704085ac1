package result

import (
	"context"
	"testing"
	"time"

	"labcommerce/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResults struct {
	results map[string]*domain.Result
	updates int
}

func (s *stubResults) GetByID(_ context.Context, id string) (*domain.Result, error) {
	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *stubResults) ListByOrder(_ context.Context, orderID string) ([]domain.Result, error) {
	var out []domain.Result
	for _, r := range s.results {
		if r.OrderID == orderID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubResults) Update(_ context.Context, id string, fn func(r *domain.Result) error) (*domain.Result, error) {
	s.updates++
	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	work := *r
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now()
	s.results[id] = &work
	return &work, nil
}

type stubOrders map[string]*domain.Order

func (s stubOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func fixture() (*Service, *stubResults) {
	results := &stubResults{results: map[string]*domain.Result{
		"r1": {ID: "r1", OrderID: "o1", ItemID: "hba1c", Status: domain.ResultStatusPending},
	}}
	orders := stubOrders{"o1": {ID: "o1", OwnerID: "patient-1"}}
	return New(results, orders, nil, zerolog.Nop()), results
}

func ptr[T any](v T) *T { return &v }

func TestUpdateMovesForward(t *testing.T) {
	svc, _ := fixture()
	ctx := context.Background()

	r, err := svc.Update(ctx, "r1", domain.ResultUpdate{Status: ptr(domain.ResultStatusProcessing)})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultStatusProcessing, r.Status)

	_, err = svc.Update(ctx, "r1", domain.ResultUpdate{Status: ptr(domain.ResultStatusCompleted)})
	_, ok := domain.AsValidation(err)
	assert.True(t, ok, "completing without a value must fail, got %v", err)

	r, err = svc.Update(ctx, "r1", domain.ResultUpdate{
		Value:          ptr(" 5.4 "),
		Unit:           ptr("%"),
		ReferenceRange: ptr("4.0-5.6"),
		Status:         ptr(domain.ResultStatusCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, "5.4", r.Value)
	assert.Equal(t, domain.ResultStatusCompleted, r.Status)

	_, err = svc.Update(ctx, "r1", domain.ResultUpdate{Value: ptr("6.0")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Update(ctx, "r1", domain.ResultUpdate{Status: ptr(domain.ResultStatusPending)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	r, err = svc.Update(ctx, "r1", domain.ResultUpdate{Reviewed: ptr(true)})
	require.NoError(t, err)
	assert.True(t, r.Reviewed)
}

func TestUpdateUnknownResultIsNotFoundBeforeLocking(t *testing.T) {
	svc, results := fixture()

	_, err := svc.Update(context.Background(), "missing", domain.ResultUpdate{
		Status:     ptr(domain.ResultStatusProcessing),
		Attachment: &domain.Attachment{URL: "not a url"},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, results.updates)
}

func TestUpdateAttachmentValidation(t *testing.T) {
	svc, results := fixture()
	ctx := context.Background()

	_, err := svc.Update(ctx, "r1", domain.ResultUpdate{Attachment: &domain.Attachment{Name: "report.pdf", URL: "/tmp/report.pdf"}})
	_, ok := domain.AsValidation(err)
	require.True(t, ok)

	r, err := svc.Update(ctx, "r1", domain.ResultUpdate{
		Attachment: &domain.Attachment{Name: "report.pdf", URL: "https://files.example/report.pdf", ContentType: "application/pdf"},
		Status:     ptr(domain.ResultStatusCompleted),
	})
	require.NoError(t, err)
	require.NotNil(t, r.Attachment)
	assert.Equal(t, domain.ResultStatusCompleted, results.results["r1"].Status)
}

func TestListForOrderVisibility(t *testing.T) {
	svc, _ := fixture()
	ctx := context.Background()

	list, err := svc.ListForOrder(ctx, domain.Principal{Subject: "patient-1"}, "o1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForOrder(ctx, domain.Principal{Subject: "patient-2"}, "o1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = svc.ListForOrder(ctx, domain.Principal{Subject: "dr-who", Roles: []string{domain.RoleDoctor}}, "o1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForOrder(ctx, domain.Principal{}, "o1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
