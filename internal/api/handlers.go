package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/importer"
	"github.com/jponter/proxyforge/internal/models"
)

const maxOrderBytes = 10 << 20 // 10 MB

// Handler holds API route handlers.
type Handler struct {
	svc   *importer.Service
	store catalog.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *importer.Service, store catalog.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

// ImportOrder handles POST /api/orders. The request body is the raw order
// XML document.
func (h *Handler) ImportOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOrderBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	res, err := h.svc.ImportXML(r.Context(), "api", data)
	if err != nil {
		if errors.Is(err, apperr.ErrMalformedOrder) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("import failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		OrderID:  res.OrderID,
		Outcome:  res.Report.Outcome,
		Resolved: res.Report.Resolved,
		Failed:   res.Report.Failed,
		Skipped:  res.Report.Skipped,
	})
}

// ListOrders handles GET /api/orders with optional pagination.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	orders, total, err := h.store.ListOrders(limit, offset)
	if err != nil {
		slog.Error("list orders failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if orders == nil {
		orders = []catalog.OrderRow{}
	}
	writeJSON(w, http.StatusOK, OrderListResponse{Orders: orders, Total: total})
}

// GetOrder handles GET /api/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid order id"))
		return
	}
	order, cardRows, err := h.store.GetOrder(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("get order failed", slog.Int64("order_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if cardRows == nil {
		cardRows = []catalog.CardRow{}
	}
	writeJSON(w, http.StatusOK, OrderDetailResponse{Order: order, Cards: cardRows})
}

// CardStatus handles GET /api/orders/{orderID}/cards/{cardID}.
func (h *Handler) CardStatus(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid order id"))
		return
	}
	cardID := chi.URLParam(r, "cardID")
	row, err := h.store.CardStatus(id, cardID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("card status failed", slog.String("card_id", cardID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CardStatusResponse{
		Card:            row,
		ImageDownloaded: row.Status == string(models.StatusResolved),
	})
}

// ReResolveCard handles POST /api/orders/{orderID}/cards/{cardID}/resolve.
// It retries the image fetch for one failed card.
func (h *Handler) ReResolveCard(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid order id"))
		return
	}
	cardID := chi.URLParam(r, "cardID")

	card, err := h.svc.ReResolve(r.Context(), id, cardID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case card != nil:
			// Fetch failed again; report the card state rather than hiding it.
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"card":    card,
				"failure": card.FailureReason,
			})
		default:
			slog.Error("re-resolve failed", slog.String("card_id", cardID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}
