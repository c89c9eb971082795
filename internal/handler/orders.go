package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/service"
)

// CreateOrder оформляет заказ текущего покупателя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	o, err := h.service.CreateOrder(r.Context(), partyID, service.CreateOrderInput{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		DeliveryMethod: model.DeliveryMethod(req.DeliveryMethod),
		Schedule:       model.Schedule{Date: req.ScheduledDate, Time: req.ScheduledTime},
		BuyerAddress:   req.BuyerAddress,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListBuyerOrders возвращает заказы текущей стороны как покупателя.
func (h *Handler) ListBuyerOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, model.RoleBuyer)
}

// ListSellerOrders возвращает заказы текущей стороны как продавца.
func (h *Handler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, model.RoleSeller)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, role model.Role) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), partyID, role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ покупателю или продавцу.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), partyID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// SetOrderStatus меняет статус заказа от имени продавца.
// Статус берётся из тела {"status": ...} или из параметра ?status=.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		var req statusRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "status is required")
			return
		}
		status = req.Status
	}

	o, err := h.service.SetOrderStatus(r.Context(), partyID, chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelOrder отменяет заказ текущего покупателя.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	o, err := h.service.CancelOrder(r.Context(), partyID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{
		Success:            true,
		CancellationCharge: o.CancellationCharge.InexactFloat64(),
	})
}
