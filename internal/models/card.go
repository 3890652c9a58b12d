// Package models defines the domain types for Proxyforge.
package models

import "time"

// Default physical card dimensions in millimetres (poker card with bleed).
const (
	DefaultCardWidthMM  = 83.0
	DefaultCardHeightMM = 118.0
)

// ResolutionStatus is the terminal state of one card's resolution.
type ResolutionStatus string

const (
	StatusDraft    ResolutionStatus = "draft"
	StatusFetching ResolutionStatus = "fetching"
	StatusResolved ResolutionStatus = "resolved"
	StatusFailed   ResolutionStatus = "failed"
	StatusSkipped  ResolutionStatus = "skipped"
)

// Order is the header metadata of one print job. It is immutable once parsed.
type Order struct {
	Quantity int    `json:"quantity"`
	Bracket  int    `json:"bracket"`
	Stock    string `json:"stock"`
	Foil     bool   `json:"foil"`
	CardBack string `json:"cardback"`
}

// CardSpec is a draft card entry extracted from the order XML before
// resolution. BleedChecked is nil when the document carried no explicit
// per-card flag; the resolver then applies the configured global default.
type CardSpec struct {
	Name         string
	ID           string
	Description  string
	Query        string
	BleedChecked *bool
}

// Card is a fully resolved card entity. ID is immutable after construction
// and is the sole key used for equality and lookup.
type Card struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Query        string  `json:"query"`
	BleedEnabled bool    `json:"bleed_enabled"`
	WidthMM      float64 `json:"width_mm"`
	HeightMM     float64 `json:"height_mm"`

	// ImageBytes is the owned encoded image buffer; empty while pending or
	// after a failed resolution. The decoded bitmap is a derived cache held
	// elsewhere, keyed by the fingerprint of these bytes.
	ImageBytes      []byte           `json:"-"`
	ImageDownloaded bool             `json:"image_downloaded"`
	Status          ResolutionStatus `json:"status"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	ResolvedAt      time.Time        `json:"resolved_at,omitempty"`
}

// NewCard constructs a Card from a draft with default dimensions. The card
// starts in the draft state with no image bytes.
func NewCard(spec CardSpec, bleed bool) *Card {
	return &Card{
		ID:           spec.ID,
		Name:         spec.Name,
		Description:  spec.Description,
		Query:        spec.Query,
		BleedEnabled: bleed,
		WidthMM:      DefaultCardWidthMM,
		HeightMM:     DefaultCardHeightMM,
		Status:       StatusDraft,
	}
}

// SetImage replaces the encoded image buffer and marks the card resolved.
// Any bitmap derived from the previous bytes is invalidated implicitly:
// derived caches key on the byte fingerprint, which changes with the buffer.
func (c *Card) SetImage(data []byte) {
	c.ImageBytes = data
	c.ImageDownloaded = true
	c.Status = StatusResolved
	c.FailureReason = ""
	c.ResolvedAt = time.Now()
}

// MarkFailed records a resolution failure. The card keeps its slot in the
// collection so ordering and count still match the order document.
func (c *Card) MarkFailed(reason string) {
	c.ImageBytes = nil
	c.ImageDownloaded = false
	c.Status = StatusFailed
	c.FailureReason = reason
}
