package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/service"
)

type storeSummaryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

type productResponse struct {
	ID                string                `json:"id"`
	SellerID          string                `json:"seller_id"`
	StoreID           string                `json:"store_id"`
	Category          string                `json:"category"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Price             float64               `json:"price"`
	MinQuantity       int                   `json:"min_quantity"`
	MaxQuantity       *int                  `json:"max_quantity"`
	PickupAvailable   bool                  `json:"pickup_available"`
	DeliveryAvailable bool                  `json:"delivery_available"`
	Active            bool                  `json:"active"`
	CreatedAt         string                `json:"created_at"`
	DistanceKm        *float64              `json:"distance_km,omitempty"`
	Store             *storeSummaryResponse `json:"store,omitempty"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:                p.ID,
		SellerID:          p.SellerID,
		StoreID:           p.StoreID,
		Category:          p.Category,
		Title:             p.Title,
		Description:       p.Description,
		Price:             p.Price.InexactFloat64(),
		MinQuantity:       p.MinQuantity,
		MaxQuantity:       p.MaxQuantity,
		PickupAvailable:   p.PickupAvailable,
		DeliveryAvailable: p.DeliveryAvailable,
		Active:            p.Active,
		CreatedAt:         formatTime(p.CreatedAt),
	}
}

func toSearchResponse(items []catalog.ProductWithDistance) []productResponse {
	resp := make([]productResponse, 0, len(items))
	for i := range items {
		pr := toProductResponse(&items[i].Product)
		pr.DistanceKm = items[i].DistanceKm
		if s := items[i].Store; s != nil {
			pr.Store = &storeSummaryResponse{
				ID:          s.ID,
				Name:        s.Name,
				Rating:      s.Rating,
				ReviewCount: s.ReviewCount,
			}
		}
		resp = append(resp, pr)
	}
	return resp
}

type productRequest struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	MinQuantity       int             `json:"min_quantity"`
	MaxQuantity       *int            `json:"max_quantity"`
	PickupAvailable   bool            `json:"pickup_available"`
	DeliveryAvailable bool            `json:"delivery_available"`
}

func (r productRequest) input() service.ProductInput {
	minQty := r.MinQuantity
	if minQty == 0 {
		minQty = 1
	}
	return service.ProductInput{
		Title:             r.Title,
		Description:       r.Description,
		Category:          r.Category,
		Price:             r.Price,
		MinQuantity:       minQty,
		MaxQuantity:       r.MaxQuantity,
		PickupAvailable:   r.PickupAvailable,
		DeliveryAvailable: r.DeliveryAvailable,
	}
}

type storeResponse struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"owner_id"`
	Name        string            `json:"name"`
	Address     string            `json:"address"`
	Location    *model.Coordinate `json:"location"`
	Categories  []string          `json:"categories"`
	Rating      float64           `json:"rating"`
	ReviewCount int               `json:"review_count"`
	CreatedAt   string            `json:"created_at"`
}

func toStoreResponse(s *model.Store) storeResponse {
	categories := s.Categories
	if categories == nil {
		categories = []string{}
	}
	return storeResponse{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Name:        s.Name,
		Address:     s.Address,
		Location:    s.Location,
		Categories:  categories,
		Rating:      s.Rating,
		ReviewCount: s.ReviewCount,
		CreatedAt:   formatTime(s.CreatedAt),
	}
}

type createStoreRequest struct {
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Location   *model.Coordinate `json:"location"`
	Categories []string          `json:"categories"`
}

type updateStoreRequest struct {
	Address    *string           `json:"address"`
	Location   *model.Coordinate `json:"location"`
	Categories []string          `json:"categories"`
}

type createOrderRequest struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	DeliveryMethod string `json:"delivery_method"`
	ScheduledDate  string `json:"scheduled_date"`
	ScheduledTime  string `json:"scheduled_time"`
	BuyerAddress   string `json:"buyer_address"`
}

type orderResponse struct {
	ID                 string  `json:"id"`
	BuyerID            string  `json:"buyer_id"`
	SellerID           string  `json:"seller_id"`
	ProductID          string  `json:"product_id"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	DeliveryMethod     string  `json:"delivery_method"`
	DeliveryFee        float64 `json:"delivery_fee"`
	TotalPrice         float64 `json:"total_price"`
	ScheduledDate      string  `json:"scheduled_date"`
	ScheduledTime      string  `json:"scheduled_time"`
	BuyerAddress       string  `json:"buyer_address,omitempty"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	AcceptedAt         *string `json:"accepted_at"`
	CompletedAt        *string `json:"completed_at"`
	CancelledAt        *string `json:"cancelled_at"`
	ExpiresAt          string  `json:"expires_at"`
	CancellationCharge float64 `json:"cancellation_charge"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:                 o.ID,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		ProductID:          o.ProductID,
		Quantity:           o.Quantity,
		UnitPrice:          o.UnitPrice.InexactFloat64(),
		DeliveryMethod:     string(o.DeliveryMethod),
		DeliveryFee:        o.DeliveryFee.InexactFloat64(),
		TotalPrice:         o.TotalPrice.InexactFloat64(),
		ScheduledDate:      o.Schedule.Date,
		ScheduledTime:      o.Schedule.Time,
		BuyerAddress:       o.BuyerAddress,
		Status:             string(o.Status),
		CreatedAt:          formatTime(o.CreatedAt),
		AcceptedAt:         formatOptionalTime(o.AcceptedAt),
		CompletedAt:        formatOptionalTime(o.CompletedAt),
		CancelledAt:        formatOptionalTime(o.CancelledAt),
		ExpiresAt:          formatTime(o.ExpiresAt),
		CancellationCharge: o.CancellationCharge.InexactFloat64(),
	}
}

type cancelResponse struct {
	Success            bool    `json:"success"`
	CancellationCharge float64 `json:"cancellation_charge"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
