package api

import (
	"fmt"
	"net/http"

	"ms-booking/internal/models"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
)

type statusRequest struct {
	Status string `json:"status"`
}

type couponActiveRequest struct {
	Active bool `json:"active"`
}

// ---------------- INVENTORY ----------------

func (h *Handler) AdminListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Catalog.List(filterFromQuery(r, false)))
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var svc models.Service
	if err := decode(r, &svc); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.State.Catalog.Add(actor(r), svc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var svc models.Service
	if err := decode(r, &svc); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.State.Catalog.Update(actor(r), chi.URLParam(r, "serviceId"), svc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.State.Catalog.Delete(actor(r), chi.URLParam(r, "serviceId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- COUPONS ----------------

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Coupons.List())
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var c models.Coupon
	if err := decode(r, &c); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.State.Coupons.Add(actor(r), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) SetCouponActive(w http.ResponseWriter, r *http.Request) {
	var req couponActiveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.State.Coupons.SetActive(actor(r), chi.URLParam(r, "couponId"), req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ---------------- ORDERS ----------------

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.State.Orders.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// OverrideOrderStatus sets any known status, bypassing the lifecycle.
func (h *Handler) OverrideOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.State.Orders.OverrideOrderStatus(r.Context(), chi.URLParam(r, "orderId"), models.OrderStatus(req.Status), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.State.Orders.CompleteOrder(r.Context(), chi.URLParam(r, "orderId"), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.State.Orders.CancelOrder(r.Context(), chi.URLParam(r, "orderId"), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ---------------- TRANSACTIONS ----------------

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.State.Orders.ListTransactions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.State.Orders.GetTransaction(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) TransitionTransaction(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.State.Orders.TransitionTransaction(r.Context(), chi.URLParam(r, "transactionId"), models.TransactionStatus(req.Status), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.State.Orders.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ---------------- AUDIT & SETTINGS ----------------

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Audit.Entries())
}

// StreamLogs follows the audit log live.
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	setupSSEHeaders(w)
	ctx := r.Context()
	entries := h.State.Emitter.SubscribeToAudit(ctx)

	if err := sse.WriteEvent(w, "connected", map[string]string{"status": "connected"}); err != nil {
		return
	}
	h.Logger.Info("SSE", "Operator connected to audit stream")

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := sse.WriteEvent(w, "audit", entry); err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to write audit event: %v", err))
				return
			}
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Operator disconnected from audit stream")
			return
		}
	}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Settings.Get())
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s models.Settings
	if err := decode(r, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.State.Settings.Update(actor(r), s)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
