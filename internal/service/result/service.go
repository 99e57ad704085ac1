package result

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"labcommerce/internal/domain"
	"labcommerce/internal/events"

	"github.com/rs/zerolog"
)

type resultRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Result, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Result, error)
	Update(ctx context.Context, id string, fn func(r *domain.Result) error) (*domain.Result, error)
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Service backs the result-entry workflow and result reads.
type Service struct {
	results   resultRepo
	orders    orderRepo
	publisher publisher
	logger    zerolog.Logger
}

func New(results resultRepo, orders orderRepo, pub publisher, logger zerolog.Logger) *Service {
	return &Service{results: results, orders: orders, publisher: pub, logger: logger.With().Str("service", "result").Logger()}
}

// ListForOrder returns the order's results to its owner, doctors and admins.
func (s *Service) ListForOrder(ctx context.Context, p domain.Principal, orderID string) ([]domain.Result, error) {
	if p.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.CanSee(o.OwnerID) && !p.HasRole(domain.RoleDoctor) {
		return nil, domain.ErrNotFound
	}
	out, err := s.results.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Result{}
	}
	return out, nil
}

// Update applies a result entry. Status only moves forward; once completed,
// only the reviewed flag and the attachment may change.
func (s *Service) Update(ctx context.Context, id string, upd domain.ResultUpdate) (*domain.Result, error) {
	// unknown ids fail here without opening a locking transaction
	if _, err := s.results.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if upd.Attachment != nil {
		if err := validateAttachment(*upd.Attachment); err != nil {
			return nil, err
		}
	}
	res, err := s.results.Update(ctx, id, func(r *domain.Result) error {
		changesValue := upd.Value != nil || upd.ReferenceRange != nil || upd.Unit != nil
		if r.Status == domain.ResultStatusCompleted && (changesValue || (upd.Status != nil && *upd.Status != r.Status)) {
			return fmt.Errorf("%w: result is completed", domain.ErrInvalidTransition)
		}
		if upd.Status != nil && !r.Status.CanMoveTo(*upd.Status) && *upd.Status != r.Status {
			return fmt.Errorf("%w: result %s -> %s", domain.ErrInvalidTransition, r.Status, *upd.Status)
		}
		if upd.Value != nil {
			r.Value = strings.TrimSpace(*upd.Value)
		}
		if upd.ReferenceRange != nil {
			r.ReferenceRange = strings.TrimSpace(*upd.ReferenceRange)
		}
		if upd.Unit != nil {
			r.Unit = strings.TrimSpace(*upd.Unit)
		}
		if upd.Reviewed != nil {
			r.Reviewed = *upd.Reviewed
		}
		if upd.Attachment != nil {
			att := *upd.Attachment
			r.Attachment = &att
		}
		if upd.Status != nil {
			if *upd.Status == domain.ResultStatusCompleted && r.Value == "" && r.Attachment == nil {
				return domain.NewValidationError("a completed result needs a value or an attachment", "value", "attachment")
			}
			r.Status = *upd.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("result_id", res.ID).Str("order_id", res.OrderID).Str("status", string(res.Status)).Msg("result updated")
	if s.publisher != nil {
		evt := events.Event{Type: events.TypeResultUpdated, OrderID: res.OrderID, ItemID: res.ItemID, Status: string(res.Status), OccurredAt: res.UpdatedAt}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Str("result_id", res.ID).Msg("publish event")
		}
	}
	return res, nil
}

// validateAttachment checks the descriptor only; file bytes are stored elsewhere.
func validateAttachment(a domain.Attachment) error {
	u, err := url.Parse(a.URL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return domain.NewValidationError("attachment url must be an absolute http(s) url", "attachment.url")
	}
	if strings.TrimSpace(a.Name) == "" {
		return domain.NewValidationError("attachment name is required", "attachment.name")
	}
	return nil
}
