package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/imaging"
	"github.com/jponter/proxyforge/internal/importer"
)

// RouterConfig bundles the collaborators the API routes need.
type RouterConfig struct {
	Service     *importer.Service
	Store       catalog.Store
	Bitmaps     *imaging.BitmapCache
	JPEGQuality int

	AuthEnabled bool
	AuthToken   string

	// SSEHandler, if non-nil, is mounted at GET /events inside the auth group.
	SSEHandler http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Service, cfg.Store)
	ih := NewImageHandler(cfg.Store, cfg.Bitmaps, cfg.JPEGQuality)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.AuthToken))

	// Orders.
	r.Post("/orders", h.ImportOrder)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderID}", h.GetOrder)
	r.Get("/orders/{orderID}/cards/{cardID}", h.CardStatus)
	r.Post("/orders/{orderID}/cards/{cardID}/resolve", h.ReResolveCard)

	// Card images.
	r.Get("/images/{fingerprint}", ih.ServeImage)
	r.Get("/images/{fingerprint}/thumbnail", ih.ServeThumbnail)

	// SSE endpoint (protected by same auth middleware).
	if cfg.SSEHandler != nil {
		r.Get("/events", cfg.SSEHandler.ServeHTTP)
	}

	return r
}
