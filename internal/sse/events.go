package sse

import (
	"github.com/jponter/proxyforge/internal/models"
	"github.com/jponter/proxyforge/internal/resolver"
)

// ImportEvents adapts the broker to the importer's event hooks, translating
// pipeline mutations into SSE broadcasts.
type ImportEvents struct {
	Broker *Broker
}

func (e ImportEvents) CardResolved(card *models.Card) {
	e.Broker.PublishCardEvent("resolved", CardEvent{
		CardID: card.ID,
		Name:   card.Name,
		Status: string(card.Status),
	})
}

func (e ImportEvents) CardFailed(card *models.Card) {
	e.Broker.PublishCardEvent("failed", CardEvent{
		CardID:  card.ID,
		Name:    card.Name,
		Status:  string(card.Status),
		Failure: card.FailureReason,
	})
}

func (e ImportEvents) ImportCompleted(orderID int64, report *resolver.Report) {
	e.Broker.Publish(Event{
		Type: "import.completed",
		Data: map[string]any{
			"order_id": orderID,
			"outcome":  string(report.Outcome),
			"resolved": report.Resolved,
			"failed":   report.Failed,
			"skipped":  report.Skipped,
		},
	})
}
