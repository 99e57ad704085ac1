package cart

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"labcommerce/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type store interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	Save(ctx context.Context, lines []domain.CartLine) error
}

// Session is one client's cart. Totals are always derived from the current
// lines. Every mutation is written to the store; a failed write is logged and
// the in-memory change stands. A Session is not safe for concurrent use.
type Session struct {
	store  store
	logger zerolog.Logger
	lines  []domain.CartLine
}

// Open restores the cart from store. A load failure starts an empty cart.
func Open(ctx context.Context, st store, logger zerolog.Logger) *Session {
	s := &Session{store: st, logger: logger.With().Str("component", "cart").Logger()}
	lines, err := st.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load cart failed, starting empty")
		return s
	}
	// collapse duplicates a damaged store might hold
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := s.index(l.Item.ID); i >= 0 {
			s.lines[i].Quantity = min(s.lines[i].Quantity+l.Quantity, domain.MaxLineQuantity)
			continue
		}
		l.Quantity = min(l.Quantity, domain.MaxLineQuantity)
		s.lines = append(s.lines, l)
	}
	return s
}

func (s *Session) index(itemID string) int {
	for i, l := range s.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Session) persist(ctx context.Context, op string) {
	if err := s.store.Save(ctx, s.Lines()); err != nil {
		s.logger.Error().Err(err).Str("op", op).Int("lines", len(s.lines)).Msg("persist cart")
	}
}

// AddItem increments the line for item, appending a new line if absent.
// A line already at domain.MaxLineQuantity is left unchanged.
func (s *Session) AddItem(ctx context.Context, item domain.CatalogItem) {
	if i := s.index(item.ID); i >= 0 {
		if s.lines[i].Quantity >= domain.MaxLineQuantity {
			return
		}
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, domain.CartLine{Item: item, Quantity: 1})
	}
	s.persist(ctx, "add")
}

// RemoveItem drops the line for itemID. Absent ids are ignored.
func (s *Session) RemoveItem(ctx context.Context, itemID string) {
	i := s.index(itemID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persist(ctx, "remove")
}

// SetQuantity sets the line quantity; qty <= 0 removes the line and values
// above domain.MaxLineQuantity are capped.
func (s *Session) SetQuantity(ctx context.Context, itemID string, qty int) {
	if qty <= 0 {
		s.RemoveItem(ctx, itemID)
		return
	}
	qty = min(qty, domain.MaxLineQuantity)
	i := s.index(itemID)
	if i < 0 {
		return
	}
	s.lines[i].Quantity = qty
	s.persist(ctx, "set_quantity")
}

func (s *Session) Clear(ctx context.Context) {
	s.lines = nil
	s.persist(ctx, "clear")
}

// Lines returns a copy of the current lines in insertion order.
func (s *Session) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Session) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// Total is Subtotal plus the service fee, also for an empty cart.
func (s *Session) Total() decimal.Decimal {
	return s.Subtotal().Add(domain.ServiceFee)
}

func (s *Session) ItemCount() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Session) IsEmpty() bool { return len(s.lines) == 0 }

// CheckoutLines is the price-free request payload for the current cart.
func (s *Session) CheckoutLines() []domain.CheckoutLine {
	out := make([]domain.CheckoutLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, domain.CheckoutLine{ItemID: l.Item.ID, Quantity: l.Quantity})
	}
	return out
}

// Checkout hands the cart to submit and clears it once submit succeeds.
// An empty cart is rejected without calling submit.
func (s *Session) Checkout(ctx context.Context, submit func(context.Context, []domain.CheckoutLine) (*domain.Order, error)) (*domain.Order, error) {
	if s.IsEmpty() {
		return nil, domain.NewValidationError("cart is empty", "items")
	}
	o, err := submit(ctx, s.CheckoutLines())
	if err != nil {
		return nil, err
	}
	s.Clear(ctx)
	return o, nil
}

// ParseQuantity reads a user-entered quantity. Non-numeric input and values
// above domain.MaxLineQuantity are rejected; negative values clamp to 0,
// which removes the line.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.NewValidationError(fmt.Sprintf("quantity %q is not a whole number", raw), "quantity")
	}
	if n > domain.MaxLineQuantity {
		return 0, domain.NewValidationError(fmt.Sprintf("quantity must be at most %d", domain.MaxLineQuantity), "quantity")
	}
	return max(n, 0), nil
}
