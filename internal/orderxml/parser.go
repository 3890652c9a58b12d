// Package orderxml parses third-party print order documents into domain values.
//
// Parsing is a pure transform: no network or file I/O happens here. Missing
// optional elements fall back to documented defaults; a missing <order> root
// or <fronts> section is a fatal structural error.
package orderxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/models"
)

// Defaults applied when an optional element is absent or blank.
const (
	DefaultStock       = "Unknown"
	DefaultCardBack    = "DefaultCardBack"
	DefaultCardName    = "Unknown"
	DefaultCardID      = "Unknown"
	DefaultDescription = "No Description"
	DefaultQuery       = "Default Query"
)

type orderDoc struct {
	XMLName  xml.Name   `xml:"order"`
	Quantity string     `xml:"quantity"`
	Bracket  string     `xml:"bracket"`
	Stock    string     `xml:"stock"`
	Foil     string     `xml:"foil"`
	CardBack string     `xml:"cardback"`
	Fronts   *frontsDoc `xml:"fronts"`
}

type frontsDoc struct {
	Cards []cardDoc `xml:"card"`
}

type cardDoc struct {
	Name         string  `xml:"name"`
	ID           string  `xml:"id"`
	Description  string  `xml:"description"`
	Query        string  `xml:"query"`
	BleedChecked *string `xml:"bleedchecked"`
}

// Parse converts a raw order XML document into an Order and its ordered
// draft card list. It returns apperr.ErrMalformedOrder (wrapped) when the
// input is blank, not valid XML, or missing the <order> root or <fronts>
// section. Nothing partial is returned on error.
func Parse(data []byte) (*models.Order, []models.CardSpec, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", apperr.ErrMalformedOrder)
	}

	var doc orderDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrMalformedOrder, err)
	}
	if doc.Fronts == nil {
		return nil, nil, fmt.Errorf("%w: missing <fronts> section", apperr.ErrMalformedOrder)
	}

	order := &models.Order{
		Quantity: parseInt(doc.Quantity),
		Bracket:  parseInt(doc.Bracket),
		Stock:    orDefault(doc.Stock, DefaultStock),
		Foil:     parseBool(doc.Foil),
		CardBack: orDefault(doc.CardBack, DefaultCardBack),
	}

	specs := make([]models.CardSpec, 0, len(doc.Fronts.Cards))
	for _, c := range doc.Fronts.Cards {
		spec := models.CardSpec{
			Name:        orDefault(c.Name, DefaultCardName),
			ID:          orDefault(c.ID, DefaultCardID),
			Description: orDefault(c.Description, DefaultDescription),
			Query:       orDefault(c.Query, DefaultQuery),
		}
		if c.BleedChecked != nil {
			v := parseBool(*c.BleedChecked)
			spec.BleedChecked = &v
		}
		specs = append(specs, spec)
	}

	return order, specs, nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// parseInt returns 0 for blank or unparsable numeric elements.
func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// parseBool returns false for blank or unparsable boolean elements.
func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return false
	}
	return b
}
