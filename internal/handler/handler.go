// Package handler содержит HTTP-обработчики API маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/middleware"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	SearchProducts(ctx context.Context, f catalog.Filter) ([]catalog.ProductWithDistance, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListMyProducts(ctx context.Context, sellerID string) ([]model.Product, error)
	CreateProduct(ctx context.Context, sellerID string, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, sellerID, productID string, in service.ProductInput) (*model.Product, error)
	DeactivateProduct(ctx context.Context, sellerID, productID string) error

	CreateStore(ctx context.Context, ownerID string, in service.StoreInput) (*model.Store, error)
	GetStore(ctx context.Context, id string) (*model.Store, error)
	MyStore(ctx context.Context, ownerID string) (*model.Store, error)
	UpdateMyStore(ctx context.Context, ownerID string, in service.StoreUpdate) (*model.Store, error)

	CreateOrder(ctx context.Context, buyerID string, in service.CreateOrderInput) (*model.Order, error)
	ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error)
	GetOrder(ctx context.Context, partyID, orderID string) (*model.Order, error)
	SetOrderStatus(ctx context.Context, sellerID, orderID, status string) (*model.Order, error)
	CancelOrder(ctx context.Context, buyerID, orderID string) (*model.Order, error)
}

// Options необязательные параметры HTTP-слоя.
type Options struct {
	// Gatherer источник метрик для /metrics; nil отключает маршрут.
	Gatherer prometheus.Gatherer
	// SearchLimiter ограничивает частоту поисковых запросов.
	SearchLimiter func(http.Handler) http.Handler
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменную ошибку в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stateErr *model.StateError

	switch {
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: stateErr.Error(), Status: string(stateErr.Current)})
	case errors.Is(err, model.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: http.StatusText(http.StatusForbidden)})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	case errors.Is(err, model.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "order was modified concurrently, retry"})
	case errors.Is(err, model.ErrStoreExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "store already exists"})
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func validationMessage(err error) string {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (h *Handler) partyID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetPartyIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return id, ok
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// Health отвечает на проверку живости.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
