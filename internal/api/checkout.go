package api

import (
	"net/http"
	"strings"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	"ms-booking/internal/pricing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type checkoutRequest struct {
	DistanceKm       decimal.Decimal `json:"distance_km"`
	BookingDate      string          `json:"booking_date"`
	BookingSlot      string          `json:"booking_slot"`
	Address          string          `json:"address"`
	PaymentMethod    string          `json:"payment_method"`
	IncludeInsurance bool            `json:"include_insurance"`
}

type quoteResponse struct {
	Items        []models.OrderItem    `json:"items"`
	Breakdown    models.OrderBreakdown `json:"breakdown"`
	Installments []decimal.Decimal     `json:"installments,omitempty"`
	IsWeekend    bool                  `json:"is_weekend"`
}

func (h *Handler) checkoutRequest(r *http.Request) (order.CheckoutRequest, error) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		return order.CheckoutRequest{}, err
	}

	var date time.Time
	if s := strings.TrimSpace(req.BookingDate); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return order.CheckoutRequest{}, errors.Wrapf(models.ErrInvalidBooking, "booking date %q must be YYYY-MM-DD", req.BookingDate)
		}
		date = parsed
	}

	return order.CheckoutRequest{
		User:             auth.User(r.Context()),
		Cart:             h.State.Cart,
		DistanceKm:       req.DistanceKm,
		BookingDate:      date,
		BookingSlot:      req.BookingSlot,
		Address:          req.Address,
		PaymentMethod:    strings.ToUpper(req.PaymentMethod),
		IncludeInsurance: req.IncludeInsurance,
	}, nil
}

// Quote previews the breakdown of the current cart, rounded to cents.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, err := h.checkoutRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.State.Orders.Quote(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Items:        q.Items,
		Breakdown:    pricing.Rounded(q.Breakdown),
		Installments: q.Installments,
		IsWeekend:    !req.BookingDate.IsZero() && pricing.IsWeekend(req.BookingDate),
	})
}

// Checkout blocks until settlement answers. A client that disconnects while
// waiting leaves the transaction PROCESSING.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	req, err := h.checkoutRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.State.Orders.Checkout(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
