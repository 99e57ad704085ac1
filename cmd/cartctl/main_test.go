package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T, submitted *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog/abo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"abo","code":"ABO-RH","name":"ABO Group & RH Type","price":"37.99","category":"blood"}`))
	})
	mux.HandleFunc("GET /catalog/a1c", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"a1c","code":"HBA1C","name":"Hemoglobin A1C","price":"15.00","category":"diabetes"}`))
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["key"] = r.Header.Get("Idempotency-Key")
		*submitted = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"o-1","orderNumber":"LAB-12345678","status":"processing","subtotal":"67.99","fee":"9.99","total":"77.98","paymentStatus":"pending","paymentMethod":"card"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCartFlow(t *testing.T) {
	var submitted map[string]any
	srv := fakeAPI(t, &submitted)
	common := []string{"--api", srv.URL, "--cart-db", filepath.Join(t.TempDir(), "cart.db")}
	with := func(args ...string) []string { return append(args, common...) }

	run(t, with("add", "abo")...)
	run(t, with("add", "a1c")...)
	out := run(t, with("set", "a1c", "2")...)
	assert.Contains(t, out, "67.99")
	assert.Contains(t, out, "77.98")

	out = run(t, with("checkout", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com", "--idempotency-key", "k-1")...)
	assert.Contains(t, out, "LAB-12345678")
	assert.Equal(t, "k-1", submitted["key"])
	assert.Equal(t, "self_pay", submitted["paymentPath"])
	assert.Len(t, submitted["items"], 2)

	out = run(t, with("show")...)
	assert.Contains(t, out, "cart is empty")
}

func TestSetRejectsNonNumericQuantity(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"set", "abo", "two", "--cart-db", filepath.Join(t.TempDir(), "cart.db")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestCheckoutEmptyCartFails(t *testing.T) {
	var submitted map[string]any
	srv := fakeAPI(t, &submitted)
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"checkout", "--api", srv.URL, "--cart-db", filepath.Join(t.TempDir(), "cart.db"),
		"--first-name", "A", "--last-name", "B", "--email", "a@b.co"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart is empty")
	assert.Nil(t, submitted)
}
