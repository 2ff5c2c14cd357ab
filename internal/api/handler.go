package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/app"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

type Handler struct {
	State  *app.State
	Logger *logger.Logger
}

func NewHandler(state *app.State) *Handler {
	return &Handler{State: state, Logger: state.Logger}
}

// NewRouter registers every route of the booking API.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)
	r.Use(auth.Middleware(h.Logger))

	r.Get("/health", h.Health)
	r.Handle("/metrics", h.State.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/services", h.ListServices)
			r.Get("/services/{serviceId}", h.GetService)
			r.Get("/categories", h.ListCategories)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/lines", h.AddCartLine)
			r.Patch("/lines/{lineId}", h.UpdateCartLine)
			r.Delete("/lines/{lineId}", h.RemoveCartLine)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
		})

		r.Post("/checkout/quote", h.Quote)
		r.Post("/checkout", h.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListMyOrders)
			r.Get("/stream", h.StreamMyOrders)
			r.Get("/{orderId}", h.GetOrder)
			r.Get("/{orderId}/voucher.png", h.GetVoucher)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/services", h.AdminListServices)
			r.Post("/services", h.CreateService)
			r.Put("/services/{serviceId}", h.UpdateService)
			r.Delete("/services/{serviceId}", h.DeleteService)

			r.Get("/coupons", h.ListCoupons)
			r.Post("/coupons", h.CreateCoupon)
			r.Patch("/coupons/{couponId}", h.SetCouponActive)

			r.Get("/orders", h.ListAllOrders)
			r.Put("/orders/{orderId}/status", h.OverrideOrderStatus)
			r.Post("/orders/{orderId}/complete", h.CompleteOrder)
			r.Post("/orders/{orderId}/cancel", h.CancelOrder)

			r.Get("/transactions", h.ListTransactions)
			r.Get("/transactions/{transactionId}", h.GetTransaction)
			r.Put("/transactions/{transactionId}/status", h.TransitionTransaction)

			r.Post("/vouchers/verify", h.VerifyVoucher)

			r.Get("/stats", h.Stats)
			r.Get("/logs", h.ListLogs)
			r.Get("/logs/stream", h.StreamLogs)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
		})
	})

	return r
}

// observe logs every request and feeds the HTTP metrics.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.Logger.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		h.State.Metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func actor(r *http.Request) string {
	return auth.User(r.Context()).DisplayName()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// statusFor maps the booking error kinds onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrLineNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidSelection):
		return http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, models.ErrInvalidCoupon):
		return http.StatusUnprocessableEntity, "invalid_coupon"
	case errors.Is(err, models.ErrInvalidBooking):
		return http.StatusUnprocessableEntity, "invalid_booking"
	case errors.Is(err, models.ErrInvalidVoucher):
		return http.StatusUnprocessableEntity, "invalid_voucher"
	case errors.Is(err, models.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, models.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout_in_progress"
	case errors.Is(err, models.ErrSettlementFailure):
		return http.StatusPaymentRequired, "settlement_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "abandoned"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		message = "internal server error"
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	writeJSON(w, status, errorResponse{
		Success:   false,
		Message:   message,
		Error:     code,
		Timestamp: time.Now().UTC(),
	})
}
