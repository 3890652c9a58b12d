package api

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/imaging"
)

const defaultThumbnailPx = 256

// fingerprintRe matches hex SHA-256 digests, the only valid image keys.
var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ImageHandler serves resolved card images from the catalog image cache.
type ImageHandler struct {
	store   catalog.Store
	bitmaps *imaging.BitmapCache
	quality int
}

// NewImageHandler creates a handler backed by the catalog image cache.
func NewImageHandler(store catalog.Store, bitmaps *imaging.BitmapCache, jpegQuality int) *ImageHandler {
	return &ImageHandler{store: store, bitmaps: bitmaps, quality: jpegQuality}
}

// ServeImage handles GET /api/images/{fingerprint}: the original encoded
// bytes as fetched from the lookup service.
func (h *ImageHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")
	if !fingerprintRe.MatchString(fp) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid fingerprint"))
		return
	}
	data, err := h.store.GetImage(fp)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("serve image failed", slog.String("fingerprint", fp), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

// ServeThumbnail handles GET /api/images/{fingerprint}/thumbnail?size=N:
// a JPEG scaled so the longest side is at most N pixels.
func (h *ImageHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")
	if !fingerprintRe.MatchString(fp) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid fingerprint"))
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 || size > 2048 {
		size = defaultThumbnailPx
	}

	data, err := h.store.GetImage(fp)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("thumbnail lookup failed", slog.String("fingerprint", fp), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	img, err := h.bitmaps.Bitmap(data)
	if err != nil {
		// Bytes are cached but unrenderable; the card metadata stays
		// usable, only the image view degrades.
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("image cannot be decoded"))
		return
	}

	out, err := imaging.Encode(imaging.Thumbnail(img, uint(size)), imaging.EncodeOptions{
		Format:  imaging.FormatJPEG,
		Quality: h.quality,
	})
	if err != nil {
		slog.Error("thumbnail encode failed", slog.String("fingerprint", fp), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(out)
}
