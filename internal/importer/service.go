// Package importer is the service layer tying the pipeline together:
// parse order XML, resolve cards, assemble the collection, and record the
// outcome in the catalog.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jponter/proxyforge/internal/cards"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/checksum"
	"github.com/jponter/proxyforge/internal/models"
	"github.com/jponter/proxyforge/internal/orderxml"
	"github.com/jponter/proxyforge/internal/resolver"
)

// Events receives pipeline notifications. Implementations must be safe for
// concurrent use; card events fire from resolver workers.
type Events interface {
	CardResolved(card *models.Card)
	CardFailed(card *models.Card)
	ImportCompleted(orderID int64, report *resolver.Report)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) CardResolved(*models.Card) {}

func (NopEvents) CardFailed(*models.Card) {}

func (NopEvents) ImportCompleted(int64, *resolver.Report) {}

// Config holds the configuration snapshot the pipeline depends on.
type Config struct {
	BleedDefault  bool
	MaxConcurrent int

	// CardWidthMM and CardHeightMM override the default card dimensions
	// when positive.
	CardWidthMM  float64
	CardHeightMM float64
}

// Service runs imports end to end.
type Service struct {
	res    *resolver.Resolver
	store  catalog.Store
	cfg    Config
	events Events
}

// NewService creates an import service. events may be nil.
func NewService(res *resolver.Resolver, store catalog.Store, cfg Config, events Events) *Service {
	if events == nil {
		events = NopEvents{}
	}
	return &Service{res: res, store: store, cfg: cfg, events: events}
}

// ImportResult is the outcome of one order import.
type ImportResult struct {
	OrderID    int64
	Order      *models.Order
	Collection *cards.Collection
	Report     *resolver.Report
}

// ImportXML imports one order document. Parse-time structural errors abort
// the whole import; per-card resolution failures are recorded on the card
// and never abort siblings. Duplicate card ids after the first occurrence
// are dropped before resolution so the collection uniqueness invariant
// holds without failing the import.
func (s *Service) ImportXML(ctx context.Context, source string, data []byte) (*ImportResult, error) {
	order, specs, err := orderxml.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", source, err)
	}

	specs, dropped := dedupe(specs)
	if dropped > 0 {
		slog.Warn("import: dropped duplicate card ids",
			slog.String("source", source), slog.Int("count", dropped))
	}

	report := s.res.Resolve(ctx, specs, resolver.Options{
		BleedDefault:  s.cfg.BleedDefault,
		MaxConcurrent: s.cfg.MaxConcurrent,
		CardWidthMM:   s.cfg.CardWidthMM,
		CardHeightMM:  s.cfg.CardHeightMM,
		Progress:      s.progress,
	})
	report.Skipped += dropped

	coll := cards.NewCollection()
	if err := coll.AddRange(report.Cards); err != nil {
		// Drafts are deduplicated above, so this cannot fire for id
		// conflicts; surface anything else.
		return nil, fmt.Errorf("import %s: assemble collection: %w", source, err)
	}

	orderID, err := s.record(source, order, report)
	if err != nil {
		return nil, err
	}

	s.events.ImportCompleted(orderID, report)
	slog.Info("import completed",
		slog.String("source", source),
		slog.Int64("order_id", orderID),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("resolved", report.Resolved),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped))

	return &ImportResult{
		OrderID:    orderID,
		Order:      order,
		Collection: coll,
		Report:     report,
	}, nil
}

// ReResolve retries the fetch for a single card of a recorded order and
// updates the catalog with the new outcome.
func (s *Service) ReResolve(ctx context.Context, orderID int64, cardID string) (*models.Card, error) {
	row, err := s.store.CardStatus(orderID, cardID)
	if err != nil {
		return nil, err
	}

	card := models.NewCard(models.CardSpec{ID: row.CardID, Name: row.Name}, row.Bleed)
	fetchErr := s.res.ReResolve(ctx, card)
	s.progress(card)

	fp := ""
	if card.ImageDownloaded {
		fp = checksum.Fingerprint(card.ImageBytes)
		if err := s.store.PutImage(fp, card.ImageBytes); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateCard(orderID, card.ID, string(card.Status), fp, card.FailureReason); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return card, fetchErr
	}
	return card, nil
}

func (s *Service) progress(card *models.Card) {
	if card.Status == models.StatusResolved {
		s.events.CardResolved(card)
		return
	}
	s.events.CardFailed(card)
}

func (s *Service) record(source string, order *models.Order, report *resolver.Report) (int64, error) {
	rec := catalog.ImportRecord{
		Order: catalog.OrderRow{
			Source:   source,
			Quantity: order.Quantity,
			Bracket:  order.Bracket,
			Stock:    order.Stock,
			Foil:     order.Foil,
			CardBack: order.CardBack,
			Outcome:  string(report.Outcome),
			Resolved: report.Resolved,
			Failed:   report.Failed,
			Skipped:  report.Skipped,
		},
		Images: make(map[string][]byte),
	}
	for i, card := range report.Cards {
		fp := ""
		if card.ImageDownloaded {
			fp = checksum.Fingerprint(card.ImageBytes)
			rec.Images[fp] = card.ImageBytes
		}
		rec.Cards = append(rec.Cards, catalog.CardRow{
			Position:    i,
			CardID:      card.ID,
			Name:        card.Name,
			Status:      string(card.Status),
			Fingerprint: fp,
			Failure:     card.FailureReason,
			Bleed:       card.BleedEnabled,
		})
	}

	orderID, err := s.store.RecordImport(rec)
	if err != nil {
		return 0, fmt.Errorf("import %s: record: %w", source, err)
	}
	return orderID, nil
}

// dedupe drops drafts whose id repeats an earlier draft, case-insensitively.
// Drafts with empty ids pass through; the resolver skips them itself.
func dedupe(specs []models.CardSpec) ([]models.CardSpec, int) {
	seen := make(map[string]struct{}, len(specs))
	out := specs[:0:0]
	dropped := 0
	for _, spec := range specs {
		if spec.ID == "" {
			out = append(out, spec)
			continue
		}
		key := strings.ToLower(spec.ID)
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, spec)
	}
	return out, dropped
}
