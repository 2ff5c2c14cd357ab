package api

import (
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	"ms-booking/internal/sse"
	"ms-booking/internal/voucher"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.State.Orders.ListOrdersByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.State.Orders.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GetVoucher renders the QR voucher of an order as a PNG image.
func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	o, err := h.State.Orders.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	png, err := h.State.Voucher.PNG(*o)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", o.ID+".png"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type verifyVoucherRequest struct {
	Token string `json:"token"`
}

type verifyVoucherResponse struct {
	Voucher voucher.Payload `json:"voucher"`
	Order   *models.Order   `json:"order"`
}

// VerifyVoucher opens a scanned voucher token and returns it with the current
// state of the order it names.
func (h *Handler) VerifyVoucher(w http.ResponseWriter, r *http.Request) {
	var req verifyVoucherRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.State.Voucher.Open(req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.State.Orders.GetOrder(r.Context(), payload.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyVoucherResponse{Voucher: payload, Order: o})
}

// StreamMyOrders pushes status changes of the caller's orders as they happen.
func (h *Handler) StreamMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		userID = order.GuestUserID
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	events := h.State.Emitter.SubscribeToUserOrders(ctx, userID)

	if err := sse.WriteEvent(w, "connected", map[string]string{"status": "connected", "user_id": userID}); err != nil {
		return
	}
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to order events for user: %s", userID))

	for {
		select {
		case o, ok := <-events:
			if !ok {
				return
			}
			if err := sse.WriteEvent(w, "order", o); err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to write order event: %v", err))
				return
			}
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from order events for: %s", userID))
			return
		}
	}
}

// setupSSEHeaders also lifts the server write deadline, which would otherwise
// cut long-lived streams.
func setupSSEHeaders(w http.ResponseWriter) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}
