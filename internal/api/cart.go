package api

import (
	"net/http"

	"ms-booking/internal/cart"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type cartResponse struct {
	Lines    []cart.PricedLine `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal_ht"`
	Coupon   *models.Coupon    `json:"coupon,omitempty"`
	Count    int               `json:"count"`
}

type addLineRequest struct {
	ServiceID   string             `json:"service_id"`
	VariantID   string             `json:"variant_id"`
	OptionIDs   []string           `json:"option_ids"`
	Quantity    int                `json:"quantity"`
	PricingMode models.PricingMode `json:"pricing_mode"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) cartView() (cartResponse, error) {
	lines, err := h.State.Cart.Priced()
	if err != nil {
		return cartResponse{}, err
	}
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.LineTotal)
		count += l.Quantity
	}
	return cartResponse{Lines: lines, Subtotal: subtotal, Coupon: h.State.Cart.ActiveCoupon(), Count: count}, nil
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartView()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	svc, err := h.State.Catalog.GetActive(req.ServiceID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	line, err := h.State.Cart.Add(models.CartLine{
		Service:     svc,
		VariantID:   req.VariantID,
		OptionIDs:   req.OptionIDs,
		Quantity:    req.Quantity,
		PricingMode: req.PricingMode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	price, err := h.State.Engine.PriceLine(&line.Service, line.VariantID, line.OptionIDs, line.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart.PricedLine{CartLine: line, Price: price})
}

func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.State.Cart.UpdateQuantity(chi.URLParam(r, "lineId"), req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	if err := h.State.Cart.Remove(chi.URLParam(r, "lineId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.State.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.State.Cart.ApplyCoupon(req.Code)
	h.State.Metrics.CouponApplied(err == nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.State.Cart.RemoveCoupon()
	w.WriteHeader(http.StatusNoContent)
}
