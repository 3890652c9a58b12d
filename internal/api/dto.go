package api

import (
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/resolver"
)

// OrderListResponse wraps paginated order listings.
type OrderListResponse struct {
	Orders []catalog.OrderRow `json:"orders"`
	Total  int                `json:"total"`
}

// OrderDetailResponse is one imported order with its cards in print order.
type OrderDetailResponse struct {
	Order *catalog.OrderRow `json:"order"`
	Cards []catalog.CardRow `json:"cards"`
}

// ImportResponse reports the outcome of a freshly imported order.
type ImportResponse struct {
	OrderID  int64            `json:"order_id"`
	Outcome  resolver.Outcome `json:"outcome"`
	Resolved int              `json:"resolved"`
	Failed   int              `json:"failed"`
	Skipped  int              `json:"skipped"`
}

// CardStatusResponse reports one card's resolution state for UI display.
type CardStatusResponse struct {
	Card            *catalog.CardRow `json:"card"`
	ImageDownloaded bool             `json:"image_downloaded"`
}
