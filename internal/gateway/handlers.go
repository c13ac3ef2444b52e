package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/fincra-gateway/internal/common"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/order"
)

// Handler exposes the storefront-facing routes of the gateway.
type Handler struct {
	Gateway  *Gateway
	Orders   OrderStore
	Settings SettingsSource
}

type paymentMethod struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PaymentMethods lists Fincra as a checkout option while it is enabled.
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Settings == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "payment methods unavailable", nil)
		return
	}
	cfg, err := h.Settings.Get(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_UNAVAILABLE", "payment methods unavailable", nil)
		return
	}
	methods := []paymentMethod{}
	if cfg.Enabled {
		methods = append(methods, paymentMethod{ID: ID, Title: cfg.Title, Description: cfg.Description})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": methods})
}

// Checkout starts a hosted checkout for the order in the URL.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Gateway == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "payment gateway unavailable", nil)
		return
	}
	orderID, ok := common.ParseOrderID(chi.URLParam(r, "orderId"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	obs.Tag(r.Context(), "order_ref", common.FormatOrderID(orderID))
	res, err := h.Gateway.ProcessPayment(r.Context(), orderID)
	if err != nil {
		status := http.StatusBadGateway
		if appErr, ok := common.AsAppError(err); ok && appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
			obs.Tag(r.Context(), "checkout_error", appErr.Code)
		}
		common.JSON(w, status, Failure(err))
		return
	}
	common.JSON(w, http.StatusOK, res)
}

type orderReceived struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Paid    bool   `json:"paid"`
	Message string `json:"message,omitempty"`
}

// OrderReceived is the return page the hosted checkout redirects to. The
// success message is only shown once the webhook has marked the order paid.
func (h *Handler) OrderReceived(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Orders == nil || h.Settings == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "order lookup unavailable", nil)
		return
	}
	orderID, ok := common.ParseOrderID(chi.URLParam(r, "orderId"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	o, err := h.Orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "ORDER_FETCH_ERROR", "unable to load order", nil)
		return
	}
	resp := orderReceived{OrderID: o.Reference(), Status: string(o.Status), Paid: o.IsPaid()}
	if resp.Paid {
		if cfg, err := h.Settings.Get(r.Context()); err == nil {
			resp.Message = cfg.SuccessMessage
		}
	}
	common.JSON(w, http.StatusOK, resp)
}
