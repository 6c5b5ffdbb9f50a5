package http_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboxlab/orderflow/internal/order/application"
	httpapi "github.com/outboxlab/orderflow/internal/order/infrastructure/http"
	"github.com/outboxlab/orderflow/internal/order/infrastructure/memory"
	"github.com/outboxlab/orderflow/internal/order/infrastructure/pricing"
)

type testMoney struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

type testItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice testMoney `json:"unitPrice"`
	Subtotal  testMoney `json:"subtotal"`
}

type testOrder struct {
	OrderID   string     `json:"orderId"`
	Items     []testItem `json:"items"`
	Total     testMoney  `json:"total"`
	CreatedAt time.Time  `json:"createdAt"`
}

type testErrorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Field    string `json:"field"`
	Resource string `json:"resource"`
	ID       string `json:"id"`
	Reason   string `json:"reason"`
}

type testError struct {
	Error testErrorBody `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := memory.NewRepository()
	sink := memory.NewNoopSink(log, false)

	create := application.NewCreateOrder(repo, sink, application.SystemClock{}, log)
	addItem := application.NewAddItemToOrder(repo, sink, pricing.DefaultCatalog(), log)

	srv := httptest.NewServer(httpapi.NewHandler(log, create, addItem, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return raw
}

func decodeOrder(t *testing.T, raw []byte) testOrder {
	t.Helper()
	var v testOrder
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func decodeError(t *testing.T, raw []byte) testErrorBody {
	t.Helper()
	var v testError
	require.NoError(t, json.Unmarshal(raw, &v))
	return v.Error
}

func TestCreateOrderGeneratesID(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw := readBody(t, resp)
	assert.Contains(t, string(raw), `"items":[]`)

	view := decodeOrder(t, raw)
	assert.True(t, strings.HasPrefix(view.OrderID, "ORD-"), "got %q", view.OrderID)
	assert.Equal(t, "0", view.Total.Amount.String())
	assert.Equal(t, "USD", view.Total.Currency)
	assert.False(t, view.CreatedAt.IsZero())
}

func TestCreateOrderExplicitID(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-E2E-PRICING"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ORD-E2E-PRICING", decodeOrder(t, readBody(t, resp)).OrderID)
}

func TestCreateOrderDuplicate(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-DUP-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	readBody(t, resp)

	resp = postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-DUP-1"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeError(t, readBody(t, resp))
	assert.Equal(t, "conflict", body.Kind)
	assert.Equal(t, "duplicate_order_id", body.Reason)
}

func TestCreateOrderWhitespaceID(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{"orderId":"   "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, readBody(t, resp))
	assert.Equal(t, "validation", body.Kind)
	assert.Equal(t, "orderId", body.Field)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeError(t, readBody(t, resp)).Kind)
}

func TestAddItemPricesFromCatalog(t *testing.T) {
	srv := newTestServer(t)
	readBody(t, postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-E2E-PRICING"}`))

	resp := postJSON(t, srv.URL+"/orders/ORD-E2E-PRICING/items", `{"productId":"LAPTOP-001","quantity":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeOrder(t, readBody(t, resp))
	require.Len(t, view.Items, 1)
	item := view.Items[0]
	assert.Equal(t, "LAPTOP-001", item.ProductID)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "1299.99", item.UnitPrice.Amount.String())
	assert.Equal(t, "USD", item.UnitPrice.Currency)
	assert.Equal(t, "2599.98", item.Subtotal.Amount.String())
	assert.Equal(t, "2599.98", view.Total.Amount.String())
}

func TestAddItemMergesQuantities(t *testing.T) {
	srv := newTestServer(t)
	readBody(t, postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-MERGE-1"}`))
	readBody(t, postJSON(t, srv.URL+"/orders/ORD-MERGE-1/items", `{"productId":"LAPTOP-001","quantity":2}`))

	resp := postJSON(t, srv.URL+"/orders/ORD-MERGE-1/items", `{"productId":"LAPTOP-001","quantity":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeOrder(t, readBody(t, resp))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "1299.99", view.Items[0].UnitPrice.Amount.String())
	assert.Equal(t, "6499.95", view.Total.Amount.String())
}

func TestAddItemCurrencyMismatch(t *testing.T) {
	srv := newTestServer(t)
	readBody(t, postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-MIX-1"}`))
	readBody(t, postJSON(t, srv.URL+"/orders/ORD-MIX-1/items", `{"productId":"LAPTOP-001","quantity":1}`))

	resp := postJSON(t, srv.URL+"/orders/ORD-MIX-1/items", `{"productId":"DOCK-EU","quantity":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, readBody(t, resp))
	assert.Equal(t, "validation", body.Kind)
	assert.Contains(t, body.Message, "USD")
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	srv := newTestServer(t)
	readBody(t, postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-QTY-1"}`))

	for _, body := range []string{
		`{"productId":"LAPTOP-001","quantity":0}`,
		`{"productId":"LAPTOP-001","quantity":-2}`,
		`{"productId":"LAPTOP-001","quantity":1.5}`,
	} {
		resp := postJSON(t, srv.URL+"/orders/ORD-QTY-1/items", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", body)
		assert.Equal(t, "quantity", decodeError(t, readBody(t, resp)).Field)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	srv := newTestServer(t)
	readBody(t, postJSON(t, srv.URL+"/orders", `{"orderId":"ORD-MISS-1"}`))

	resp := postJSON(t, srv.URL+"/orders/ORD-MISS-1/items", `{"productId":"UNOBTANIUM-9","quantity":1}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeError(t, readBody(t, resp))
	assert.Equal(t, "not_found", body.Kind)
	assert.Equal(t, "Product", body.Resource)
	assert.Equal(t, "UNOBTANIUM-9", body.ID)
}

func TestAddItemMissingOrder(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders/ORD-GHOST/items", `{"productId":"LAPTOP-001","quantity":1}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeError(t, readBody(t, resp))
	assert.Equal(t, "Order", body.Resource)
	assert.Equal(t, "ORD-GHOST", body.ID)
}

func TestGetOrderNotImplemented(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/orders/ORD-ANY")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	readBody(t, resp)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Uptime    string `json:"uptime"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Uptime)
	_, err = time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}
