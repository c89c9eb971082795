package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/nearbymart/internal/service"
)

// CreateStore заводит магазин текущей стороны.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	var req createStoreRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	st, err := h.service.CreateStore(r.Context(), partyID, service.StoreInput{
		Name:       req.Name,
		Address:    req.Address,
		Location:   req.Location,
		Categories: req.Categories,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStoreResponse(st))
}

// GetStore возвращает магазин по идентификатору.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetStore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}

// MyStore возвращает магазин текущей стороны.
func (h *Handler) MyStore(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	st, err := h.service.MyStore(r.Context(), partyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}

// UpdateMyStore изменяет адрес, категории и координату магазина текущей стороны.
func (h *Handler) UpdateMyStore(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	var req updateStoreRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	st, err := h.service.UpdateMyStore(r.Context(), partyID, service.StoreUpdate{
		Address:    req.Address,
		Location:   req.Location,
		Categories: req.Categories,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}
