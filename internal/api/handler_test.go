package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/api"
	"ms-booking/internal/app"
	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	"ms-booking/internal/order/db"
	"ms-booking/internal/order/redis"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday; the 20th satisfies the two-day lead time.
var now = time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (chi.Router, *app.State) {
	t.Helper()
	cfg := config.Load()
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	l := logger.NewWithWriter(io.Discard)

	bunDB, err := app.OpenDatabase(context.Background(), cfg.Database, l)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	state, err := app.New(cfg, l, app.Deps{
		DB:      &db.DB{Bun: bunDB},
		Lock:    redis.NewLocalLock(),
		Events:  kafka.NopPublisher{},
		Settler: order.DelaySettler{},
	})
	require.NoError(t, err)
	state.Orders.SetClock(func() time.Time { return now })

	return api.NewRouter(api.NewHandler(state)), state
}

func bearer(t *testing.T, sub, name string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "name": name}).
		SignedString([]byte("test"))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func booking() map[string]interface{} {
	return map[string]interface{}{
		"distance_km":    15,
		"booking_date":   "2025-02-20",
		"booking_slot":   "10:30",
		"address":        "12 rue de Siam, Brest",
		"payment_method": "card",
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestCatalog_FilterAndLookup(t *testing.T) {
	router, _ := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/catalog/services?category=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var services []models.Service
	decodeBody(t, rec, &services)
	require.Len(t, services, 1)
	assert.Equal(t, "s1", services[0].ID)

	rec = do(t, router, http.MethodGet, "/api/catalog/services?sort=DESC", nil, "")
	decodeBody(t, rec, &services)
	require.Len(t, services, 2)
	assert.Equal(t, "s2", services[0].ID)

	rec = do(t, router, http.MethodGet, "/api/catalog/services/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody map[string]interface{}
	decodeBody(t, rec, &errBody)
	assert.Equal(t, "not_found", errBody["error"])
	assert.Equal(t, false, errBody["success"])
}

func TestCart_LinesAndCoupon(t *testing.T) {
	router, state := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{
		"service_id": "s1", "variant_id": "v2", "option_ids": []string{"o1"}, "quantity": 2,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var line struct {
		ID    string               `json:"id"`
		Price models.LineBreakdown `json:"price"`
	}
	decodeBody(t, rec, &line)
	// (89 + 40 + 120) x 2
	assert.True(t, line.Price.LineTotal.Equal(decimal.NewFromInt(498)))

	rec = do(t, router, http.MethodPatch, "/api/cart/lines/"+line.ID, map[string]int{"quantity": 0}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Subtotal decimal.Decimal `json:"subtotal_ht"`
		Count    int             `json:"count"`
	}
	decodeBody(t, rec, &view)
	assert.Equal(t, 1, view.Count)
	assert.True(t, view.Subtotal.Equal(decimal.NewFromInt(249)))

	rec = do(t, router, http.MethodPost, "/api/cart/coupon", map[string]string{"code": "NOPE"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, state.Cart.ActiveCoupon())

	rec = do(t, router, http.MethodPost, "/api/cart/coupon", map[string]string{"code": " breizh10 "}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, state.Cart.ActiveCoupon())

	rec = do(t, router, http.MethodDelete, "/api/cart/lines/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/cart", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, state.Cart.Len())
	assert.Nil(t, state.Cart.ActiveCoupon())
}

func TestCart_RejectsUnknownVariantAndFields(t *testing.T) {
	router, _ := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{
		"service_id": "s1", "variant_id": "v9",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{
		"service_id": "s1", "colour": "red",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestCheckout_EndToEnd(t *testing.T) {
	router, state := newTestServer(t)
	auth := bearer(t, "user-42", "Bob")

	rec := do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{"service_id": "s2"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/cart/coupon", map[string]string{"code": "BREIZH10"}, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/checkout/quote", booking(), auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote struct {
		Breakdown models.OrderBreakdown `json:"breakdown"`
		IsWeekend bool                  `json:"is_weekend"`
	}
	decodeBody(t, rec, &quote)
	assert.False(t, quote.IsWeekend)
	assert.Equal(t, "286.02", quote.Breakdown.Total.StringFixed(2))
	assert.Equal(t, "BREIZH10", quote.Breakdown.CouponCode)

	rec = do(t, router, http.MethodPost, "/api/checkout", booking(), auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed models.Order
	decodeBody(t, rec, &placed)
	assert.Equal(t, models.OrderPaid, placed.Status)
	assert.Equal(t, "user-42", placed.UserID)
	assert.Equal(t, "286.02", placed.Total.StringFixed(2))
	assert.Regexp(t, `^ART-[0-9A-F]{8}$`, placed.ID)
	assert.Zero(t, state.Cart.Len())

	rec = do(t, router, http.MethodGet, "/api/orders", nil, auth)
	var mine []models.Order
	decodeBody(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, placed.ID, mine[0].ID)

	rec = do(t, router, http.MethodGet, "/api/orders", nil, "")
	var guest []models.Order
	decodeBody(t, rec, &guest)
	assert.Empty(t, guest)

	rec = do(t, router, http.MethodGet, "/api/orders/"+placed.ID+"/voucher.png", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	token, err := state.Voucher.Seal(placed)
	require.NoError(t, err)
	rec = do(t, router, http.MethodPost, "/api/admin/vouchers/verify", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verified struct {
		Voucher struct {
			OrderID string `json:"order_id"`
		} `json:"voucher"`
		Order models.Order `json:"order"`
	}
	decodeBody(t, rec, &verified)
	assert.Equal(t, placed.ID, verified.Voucher.OrderID)
	assert.Equal(t, models.OrderPaid, verified.Order.Status)

	rec = do(t, router, http.MethodPost, "/api/admin/vouchers/verify", map[string]string{"token": token[:len(token)-4] + "AAAA"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_voucher")

	rec = do(t, router, http.MethodGet, "/api/admin/transactions", nil, "")
	var txs []models.Transaction
	decodeBody(t, rec, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionSuccess, txs[0].Status)
	assert.Equal(t, placed.ID, txs[0].OrderID)

	rec = do(t, router, http.MethodGet, "/api/admin/transactions/"+txs[0].ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPut, "/api/admin/transactions/"+txs[0].ID+"/status", map[string]string{"status": "FAILED"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/admin/transactions/TX-NOPE", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/admin/orders/"+placed.ID+"/complete", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/admin/orders/"+placed.ID+"/cancel", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `outcome="success"`)
}

func TestCheckout_Rejections(t *testing.T) {
	router, _ := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/checkout", booking(), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_cart")

	do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{"service_id": "s2"}, "")

	tooSoon := booking()
	tooSoon["booking_date"] = "2025-02-19"
	rec = do(t, router, http.MethodPost, "/api/checkout", tooSoon, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_booking")

	badDate := booking()
	badDate["booking_date"] = "20/02/2025"
	rec = do(t, router, http.MethodPost, "/api/checkout", badDate, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdmin_OverrideAndAudit(t *testing.T) {
	router, state := newTestServer(t)

	do(t, router, http.MethodPost, "/api/cart/lines", map[string]interface{}{"service_id": "s2"}, "")
	rec := do(t, router, http.MethodPost, "/api/checkout", booking(), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var placed models.Order
	decodeBody(t, rec, &placed)
	assert.Equal(t, "guest", placed.UserID)

	admin := bearer(t, "op-1", "Operator")
	rec = do(t, router, http.MethodPut, "/api/admin/orders/"+placed.ID+"/status", map[string]string{"status": "BOGUS"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/admin/orders/"+placed.ID+"/status", map[string]string{"status": "CANCELLED"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPut, "/api/admin/orders/"+placed.ID+"/status", map[string]string{"status": "PAID"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/admin/logs", nil, admin)
	var entries []models.AuditLogEntry
	decodeBody(t, rec, &entries)
	require.NotEmpty(t, entries)
	assert.Equal(t, "Operator", entries[0].User)
	assert.Equal(t, models.SeverityWarning, entries[0].Severity)
	assert.Equal(t, len(entries), state.Audit.Len())

	rec = do(t, router, http.MethodGet, "/api/admin/stats", nil, admin)
	var stats order.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.OrderCount)
}

func TestAdmin_CatalogCouponsSettings(t *testing.T) {
	router, state := newTestServer(t)
	admin := bearer(t, "op-1", "Operator")

	rec := do(t, router, http.MethodPost, "/api/admin/services", map[string]interface{}{
		"id": "s3", "name": "Pose de carrelage", "base_price": "300", "category_id": "3", "active": false,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/catalog/services/s3", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/admin/services", nil, admin)
	var all []models.Service
	decodeBody(t, rec, &all)
	assert.Len(t, all, 3)

	rec = do(t, router, http.MethodDelete, "/api/admin/services/s3", nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/admin/coupons", map[string]interface{}{
		"code": "hiver", "discount_type": "FIXED", "value": "20", "active": true,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Coupon
	decodeBody(t, rec, &created)
	assert.Equal(t, "HIVER", created.Code)

	rec = do(t, router, http.MethodPatch, "/api/admin/coupons/"+created.ID, map[string]bool{"active": false}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := state.Coupons.Resolve("HIVER")
	assert.Error(t, err)

	settings := state.Settings.Get()
	settings.Installments = 0
	rec = do(t, router, http.MethodPut, "/api/admin/settings", settings, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	settings.Installments = 4
	rec = do(t, router, http.MethodPut, "/api/admin/settings", settings, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, state.Settings.Get().Installments)
}

func TestStreamLogs_PushesAuditEntries(t *testing.T) {
	router, state := newTestServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/logs/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() (string, string) {
		event, err := reader.ReadString('\n')
		require.NoError(t, err)
		data, err := reader.ReadString('\n')
		require.NoError(t, err)
		_, err = reader.ReadString('\n')
		require.NoError(t, err)
		return event, data
	}

	event, _ := readFrame()
	assert.Equal(t, "event: connected\n", event)

	state.Audit.Record("Operator", models.ActionInventory, "Stock check", models.SeverityInfo)
	event, data := readFrame()
	assert.Equal(t, "event: audit\n", event)
	assert.Contains(t, data, "Stock check")
}
