package order

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"labcommerce/internal/domain"
	"labcommerce/internal/events"
	orderrepo "labcommerce/internal/repository/order"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	orderNumberPrefix   = "LAB-"
	orderNumberDigits   = 8
	orderNumberAttempts = 5
	maxIdempotencyKey   = 128
)

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
	Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error)
}

type catalogRepo interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.CatalogItem, error)
}

type publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

type Service struct {
	repo      orderRepo
	catalog   catalogRepo
	publisher publisher
	logger    zerolog.Logger
	newNumber func() (string, error)
	now       func() time.Time
}

func New(repo orderRepo, catalog catalogRepo, pub publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		publisher: pub,
		logger:    logger.With().Str("service", "order").Logger(),
		newNumber: randomOrderNumber,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckoutInput is the checkout request. It never carries prices.
type CheckoutInput struct {
	Items          []domain.CheckoutLine `json:"items"`
	Buyer          domain.Buyer          `json:"buyer"`
	PaymentPath    domain.PaymentPath    `json:"paymentPath"`
	PaymentMethod  domain.PaymentMethod  `json:"paymentMethod,omitempty"`
	Insurance      *domain.Insurance     `json:"insurance,omitempty"`
	IdempotencyKey string                `json:"idempotencyKey,omitempty"`
}

type CheckoutResult struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an earlier order.
	Replayed bool
}

// Checkout validates the request, re-prices every line from the catalog and
// creates the order with its items and pending results in one transaction.
func (s *Service) Checkout(ctx context.Context, ownerID string, in CheckoutInput) (*CheckoutResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrUnauthorized
	}
	lines, spelled, err := normalizeLines(in.Items)
	if err != nil {
		return nil, err
	}
	buyer, err := normalizeBuyer(in.Buyer)
	if err != nil {
		return nil, err
	}
	path, method, err := resolvePayment(in)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKey {
		return nil, domain.NewValidationError("idempotency key too long", "idempotencyKey")
	}

	if key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, ownerID, key)
		switch {
		case err == nil:
			s.logger.Info().Str("order_id", existing.ID).Str("owner_id", ownerID).Msg("checkout replayed")
			return &CheckoutResult{Order: existing, Replayed: true}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}
	found, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup catalog: %w", err)
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			unknown = append(unknown, spelled[id])
		}
	}
	if len(unknown) > 0 {
		s.logger.Info().Strs("unknown_ids", unknown).Str("owner_id", ownerID).Msg("checkout rejected")
		return nil, domain.UnknownItemsError(unknown)
	}

	status, payStatus := path.InitialStatuses()
	o := domain.Order{
		OwnerID:       ownerID,
		Status:        status,
		Buyer:         buyer,
		Fee:           domain.ServiceFee,
		PaymentStatus: payStatus,
		PaymentMethod: method,
		Insurance:     in.Insurance,
		Items:         make([]domain.OrderItem, 0, len(lines)),
	}
	if path != domain.PaymentPathInsurance {
		o.Insurance = nil
	}
	if key != "" {
		o.IdempotencyKey = &key
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		item := found[l.ItemID]
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		o.Items = append(o.Items, domain.OrderItem{
			ItemID:      item.ID,
			Code:        item.Code,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.Price,
			Quantity:    l.Quantity,
			LineTotal:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.Fee)

	created, replayed, err := s.create(ctx, o)
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.publish(ctx, events.OrderEvent(events.TypeOrderCreated, created))
	}
	return &CheckoutResult{Order: created, Replayed: replayed}, nil
}

// create retries with a fresh order number on a number clash. A concurrent
// checkout that won the idempotency key is returned as a replay.
func (s *Service) create(ctx context.Context, o domain.Order) (*domain.Order, bool, error) {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return nil, false, fmt.Errorf("generate order number: %w", err)
		}
		o.OrderNumber = number
		created, err := s.repo.Create(ctx, o)
		switch {
		case err == nil:
			s.logger.Info().
				Str("order_id", created.ID).
				Str("order_number", created.OrderNumber).
				Str("owner_id", created.OwnerID).
				Str("total", created.TotalAmount.StringFixed(2)).
				Int("items", len(created.Items)).
				Msg("order placed")
			return created, false, nil
		case errors.Is(err, domain.ErrAlreadyExists):
			s.logger.Warn().Str("order_number", number).Int("attempt", attempt).Msg("order number collision")
			continue
		case errors.Is(err, orderrepo.ErrDuplicateIdempotencyKey) && o.IdempotencyKey != nil:
			existing, err := s.repo.GetByIdempotencyKey(ctx, o.OwnerID, *o.IdempotencyKey)
			if err != nil {
				return nil, false, err
			}
			return existing, true, nil
		default:
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("order number collision after %d attempts", orderNumberAttempts)
}

// normalizeLines canonicalizes item ids, merges repeats and checks quantities.
// spelled maps each canonical id back to the first spelling the client sent.
func normalizeLines(in []domain.CheckoutLine) (lines []domain.CheckoutLine, spelled map[string]string, err error) {
	if len(in) == 0 {
		return nil, nil, domain.NewValidationError("cart is empty", "items")
	}
	lines = make([]domain.CheckoutLine, 0, len(in))
	spelled = make(map[string]string, len(in))
	pos := make(map[string]int, len(in))
	for _, l := range in {
		raw := strings.TrimSpace(l.ItemID)
		if raw == "" {
			return nil, nil, domain.NewValidationError("item id is required", "items.itemId")
		}
		if l.Quantity < 1 || l.Quantity > domain.MaxLineQuantity {
			return nil, nil, quantityError(raw)
		}
		id := canonicalID(raw)
		if i, ok := pos[id]; ok {
			lines[i].Quantity += l.Quantity
			if lines[i].Quantity > domain.MaxLineQuantity {
				return nil, nil, quantityError(raw)
			}
			continue
		}
		pos[id] = len(lines)
		spelled[id] = raw
		lines = append(lines, domain.CheckoutLine{ItemID: id, Quantity: l.Quantity})
	}
	return lines, spelled, nil
}

// canonicalID lower-cases uuid spellings (braces, urn prefix, upper case) to
// the form the catalog stores. Other ids pass through unchanged.
func canonicalID(raw string) string {
	if u, err := uuid.Parse(raw); err == nil {
		return u.String()
	}
	return raw
}

func quantityError(id string) error {
	return domain.NewValidationError(fmt.Sprintf("quantity for %s must be between 1 and %d", id, domain.MaxLineQuantity), "items.quantity")
}

func normalizeBuyer(b domain.Buyer) (domain.Buyer, error) {
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.LastName = strings.TrimSpace(b.LastName)
	b.Email = strings.TrimSpace(b.Email)
	var fields []string
	if b.FirstName == "" {
		fields = append(fields, "buyer.firstName")
	}
	if b.LastName == "" {
		fields = append(fields, "buyer.lastName")
	}
	if _, err := mail.ParseAddress(b.Email); err != nil || b.Email == "" {
		fields = append(fields, "buyer.email")
	}
	if b.DateOfBirth != "" {
		if _, err := time.Parse(time.DateOnly, b.DateOfBirth); err != nil {
			fields = append(fields, "buyer.dateOfBirth")
		}
	}
	if len(fields) > 0 {
		return domain.Buyer{}, domain.NewValidationError("buyer details are incomplete", fields...)
	}
	return b, nil
}

func resolvePayment(in CheckoutInput) (domain.PaymentPath, domain.PaymentMethod, error) {
	path := in.PaymentPath
	if path == "" {
		path = domain.PaymentPathSelfPay
	}
	switch path {
	case domain.PaymentPathSelfPay:
		method := in.PaymentMethod
		if method == "" {
			method = domain.PaymentMethodCard
		}
		if method != domain.PaymentMethodCard && method != domain.PaymentMethodCash {
			return "", "", domain.NewValidationError("self-pay orders are paid by card or cash", "paymentMethod")
		}
		return path, method, nil
	case domain.PaymentPathInsurance:
		if in.Insurance == nil || strings.TrimSpace(in.Insurance.Provider) == "" || strings.TrimSpace(in.Insurance.PolicyNumber) == "" {
			return "", "", domain.NewValidationError("insurance provider and policy number are required", "insurance")
		}
		if in.PaymentMethod != "" && in.PaymentMethod != domain.PaymentMethodInsurance {
			return "", "", domain.NewValidationError("insurance orders are paid by insurance", "paymentMethod")
		}
		return path, domain.PaymentMethodInsurance, nil
	default:
		return "", "", domain.NewValidationError(fmt.Sprintf("unknown payment path %q", path), "paymentPath")
	}
}

func randomOrderNumber() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(orderNumberDigits), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", orderNumberPrefix, orderNumberDigits, n.Int64()), nil
}

// Get returns an order the principal may see. Orders of other owners look absent.
func (s *Service) Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	if p.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanSee(o.OwnerID) {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string) ([]domain.Order, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error) {
	return s.repo.ListAll(ctx, filter)
}

// UpdateStatus moves the order through its state machine under a row lock.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	var from domain.OrderStatus
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if err := o.Status.TransitionTo(next); err != nil {
			return err
		}
		from = o.Status
		o.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID).Str("from", string(from)).Str("to", string(next)).Msg("order status changed")
	s.publish(ctx, events.OrderEvent(events.TypeOrderStatusChanged, o))
	return o, nil
}

// UpdatePaymentInfo applies a payment update. Marking a processing order as
// paid also schedules it, in the same transaction.
func (s *Service) UpdatePaymentInfo(ctx context.Context, id string, upd domain.PaymentUpdate) (*domain.Order, error) {
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if !o.PaymentStatus.CanMoveTo(upd.Status) {
			return fmt.Errorf("%w: payment %s -> %s", domain.ErrInvalidTransition, o.PaymentStatus, upd.Status)
		}
		o.PaymentStatus = upd.Status
		if upd.Method != nil {
			o.PaymentMethod = *upd.Method
		}
		if upd.TransactionID != nil {
			o.TransactionID = upd.TransactionID
		}
		if upd.Status == domain.PaymentStatusPaid {
			if o.PaidAt == nil {
				now := s.now()
				o.PaidAt = &now
			}
			if o.Status == domain.OrderStatusProcessing {
				o.Status = domain.OrderStatusScheduled
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID).Str("payment_status", string(o.PaymentStatus)).Str("status", string(o.Status)).Msg("payment updated")
	s.publish(ctx, events.OrderEvent(events.TypeOrderPaymentUpdated, o))
	return o, nil
}

// publish is best-effort; the order is already committed.
func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("type", evt.Type).Str("order_id", evt.OrderID).Msg("publish event")
	}
}
