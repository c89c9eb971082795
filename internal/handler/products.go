package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/model"
)

// SearchProducts ищет активные товары. Координаты задаются парой lat/lon.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	items, err := h.service.SearchProducts(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(items))
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		SearchTerm:      strings.TrimSpace(q.Get("search")),
		ExcludeSellerID: q.Get("exclude_seller_id"),
		SellerID:        q.Get("seller_id"),
	}

	lat, lon := q.Get("lat"), q.Get("lon")
	if (lat == "") != (lon == "") {
		return f, model.Invalid("location", "lat and lon must be given together")
	}
	if lat != "" {
		latV, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return f, model.Invalid("lat", "must be a number")
		}
		lonV, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return f, model.Invalid("lon", "must be a number")
		}
		f.Origin = &model.Coordinate{Latitude: latV, Longitude: lonV}
	}

	if v := q.Get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, model.Invalid("radius_km", "must be a number")
		}
		f.RadiusKm = radius
	}

	if v := q.Get("categories"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}

	return f, nil
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListMyProducts возвращает все товары текущего продавца.
func (h *Handler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListMyProducts(r.Context(), partyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProduct размещает товар в магазине текущего продавца.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), partyID, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// UpdateProduct изменяет товар текущего продавца.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), partyID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// DeactivateProduct снимает товар с продажи.
func (h *Handler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	partyID, ok := h.partyID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeactivateProduct(r.Context(), partyID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
