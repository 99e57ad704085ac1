package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"labcommerce/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCatalogItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog/abo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abo","code":"ABO-RH","name":"ABO Group & RH Type","price":"37.99","category":"blood"}`))
	}))
	defer srv.Close()

	it, err := New(srv.URL+"/", "").GetCatalogItem(context.Background(), "abo")
	require.NoError(t, err)
	assert.Equal(t, "ABO-RH", it.Code)
	assert.True(t, it.Price.Equal(decimal.RequireFromString("37.99")))
}

func TestListCatalogFiltersByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "diabetes", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{"items":[{"id":"a1c","price":"15.00","category":"diabetes"}],"count":1}`))
	}))
	defer srv.Close()

	items, err := New(srv.URL, "").ListCatalog(context.Background(), "diabetes")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1c", items[0].ID)
}

func TestCheckoutSendsTokenAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "IdempotencyKey")
		assert.Equal(t, "self_pay", body["paymentPath"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"o-1","orderNumber":"LAB-00000001","status":"processing","subtotal":"67.99","fee":"9.99","total":"77.98","items":[{"itemId":"abo","quantity":1,"unitPrice":"37.99","lineTotal":"37.99"}]}`))
	}))
	defer srv.Close()

	o, err := New(srv.URL, "tok").Checkout(context.Background(), CheckoutRequest{
		Items:          []domain.CheckoutLine{{ItemID: "abo", Quantity: 1}},
		PaymentPath:    domain.PaymentPathSelfPay,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "LAB-00000001", o.OrderNumber)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("77.98")))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "o-1", o.Items[0].OrderID)
}

func TestErrorStatusesMapToDomainErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{http.StatusBadRequest, `{"error":"unknown catalog items","fields":["items"],"unknownIds":["ghost"]}`, func(t *testing.T, err error) {
			v, ok := domain.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, []string{"ghost"}, v.IDs)
		}},
		{http.StatusUnauthorized, `{"error":"invalid token"}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		}},
		{http.StatusNotFound, `{"error":"not found"}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, domain.ErrNotFound))
		}},
		{http.StatusInternalServerError, ``, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "500")
		}},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := New(srv.URL, "").GetCatalogItem(context.Background(), "x")
		require.Error(t, err)
		tc.check(t, err)
		srv.Close()
	}
}
