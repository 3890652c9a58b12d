// Package imaging converts between encoded image bytes and decoded bitmaps,
// with a fingerprint-keyed cache for the derived bitmaps.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"github.com/jponter/proxyforge/internal/apperr"
)

// Format is a target encoding for Encode.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// EncodeOptions parameterize re-encoding for storage.
type EncodeOptions struct {
	Format  Format
	Quality int // JPEG quality 1-100; ignored for PNG
}

// Decode converts raw encoded bytes into a bitmap. Empty input or an
// unrecognized raster format yields apperr.ErrUnsupportedImage. Decoding is
// idempotent and side-effect free; identical bytes always produce an
// identical pixel buffer.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image buffer", apperr.ErrUnsupportedImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnsupportedImage, err)
	}
	return img, nil
}

// Encode re-encodes a bitmap for storage. JPEG is lossy at the configured
// quality and is used to normalize storage footprint.
func Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("imaging: encode png: %w", err)
		}
	case FormatJPEG, "":
		q := opts.Quality
		if q <= 0 || q > 100 {
			q = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("imaging: unknown target format %q", opts.Format)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales the bitmap so its longest side is at most maxPx,
// preserving aspect ratio. Bitmaps already within bounds are returned as is.
func Thumbnail(img image.Image, maxPx uint) image.Image {
	b := img.Bounds()
	w, h := uint(b.Dx()), uint(b.Dy())
	if w <= maxPx && h <= maxPx {
		return img
	}
	if w >= h {
		return resize.Resize(maxPx, 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, maxPx, img, resize.Lanczos3)
}
