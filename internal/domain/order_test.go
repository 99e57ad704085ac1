package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusProcessing, OrderStatusScheduled, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCompleted, false},
		{OrderStatusScheduled, OrderStatusCompleted, true},
		{OrderStatusScheduled, OrderStatusCancelled, true},
		{OrderStatusScheduled, OrderStatusProcessing, false},
		{OrderStatusScheduled, OrderStatusScheduled, false},
		{OrderStatusCancelled, OrderStatusCompleted, false},
		{OrderStatusCancelled, OrderStatusScheduled, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		err := tc.from.TransitionTo(tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s: %v", tc.from, tc.to, err)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusScheduled.Terminal())
	assert.False(t, OrderStatusProcessing.Terminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus(" CANCELLED ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, st)

	_, err = ParseOrderStatus("shipped")
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"status"}, v.Fields)
}

func TestPaymentStatusCanMoveTo(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanMoveTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusFailed.CanMoveTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPaid.CanMoveTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusPending.CanMoveTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusRefunded.CanMoveTo(PaymentStatusPaid))
}

func TestPaymentPathInitialStatuses(t *testing.T) {
	st, pay := PaymentPathSelfPay.InitialStatuses()
	assert.Equal(t, OrderStatusScheduled, st)
	assert.Equal(t, PaymentStatusPending, pay)

	st, pay = PaymentPathInsurance.InitialStatuses()
	assert.Equal(t, OrderStatusProcessing, st)
	assert.Equal(t, PaymentStatusProcessing, pay)
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(3799), DecimalToCents(decimal.RequireFromString("37.99")))
	assert.True(t, CentsToDecimal(1500).Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, int64(1000), DecimalToCents(decimal.RequireFromString("9.995")))
}

func TestResultStatusCanMoveTo(t *testing.T) {
	assert.True(t, ResultStatusPending.CanMoveTo(ResultStatusProcessing))
	assert.True(t, ResultStatusPending.CanMoveTo(ResultStatusCompleted))
	assert.False(t, ResultStatusProcessing.CanMoveTo(ResultStatusPending))
	assert.False(t, ResultStatusCompleted.CanMoveTo(ResultStatusCompleted))
	assert.True(t, ResultStatusProcessing.CanMoveTo(ResultStatusProcessing))
	assert.False(t, ResultStatusPending.CanMoveTo(ResultStatus("archived")))
}

func TestValidateReview(t *testing.T) {
	assert.NoError(t, ValidateReview(5, "great"))
	assert.NoError(t, ValidateReview(1, ""))

	err := ValidateReview(0, "")
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"rating"}, v.Fields)

	long := make([]rune, MaxReviewCommentLength+1)
	for i := range long {
		long[i] = 'é'
	}
	v, ok = AsValidation(ValidateReview(3, string(long)))
	require.True(t, ok)
	assert.Equal(t, []string{"comment"}, v.Fields)
}

func TestValidationErrorMessage(t *testing.T) {
	err := UnknownItemsError([]string{"a", "b"})
	assert.Equal(t, "validation failed: unknown catalog items (fields: items) (unknown ids: a, b)", err.Error())
}
