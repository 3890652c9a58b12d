// Package resolver turns draft card specs into fully realized cards by
// fanning out image fetches with bounded concurrency.
package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jponter/proxyforge/internal/fetch"
	"github.com/jponter/proxyforge/internal/models"
)

// Outcome summarises a whole resolution run.
type Outcome string

const (
	// Completed means every valid draft reached a terminal state.
	Completed Outcome = "completed"
	// PartiallyResolved means the run was cancelled; finished cards are
	// preserved and unfinished slots are marked failed.
	PartiallyResolved Outcome = "partially_resolved"
)

const defaultMaxConcurrent = 4

// Options configure one resolution run.
type Options struct {
	// BleedDefault is applied to cards whose draft carried no explicit
	// per-card bleed flag. It is the one piece of external configuration
	// the pipeline depends on, injected here rather than read globally.
	BleedDefault bool

	// MaxConcurrent caps simultaneously in-flight fetches. Zero or less
	// uses a small default.
	MaxConcurrent int

	// CardWidthMM and CardHeightMM override the default physical card
	// dimensions when positive.
	CardWidthMM  float64
	CardHeightMM float64

	// Progress, if non-nil, is called once per card reaching a terminal
	// state. It may be called from multiple goroutines.
	Progress func(card *models.Card)
}

// Report is the result of one resolution run. Cards holds one entry per
// valid (non-skipped) draft, in original draft order, regardless of fetch
// completion order.
type Report struct {
	Cards    []*models.Card
	Outcome  Outcome
	Resolved int
	Failed   int
	Skipped  int
}

// Resolver coordinates fetch and card construction.
type Resolver struct {
	fetcher fetch.Fetcher
}

// New creates a resolver using the given fetcher.
func New(f fetch.Fetcher) *Resolver {
	return &Resolver{fetcher: f}
}

// Resolve processes every draft independently: drafts without an identifier
// are skipped and consume no output slot; the rest are fetched concurrently
// and land in their original position. A failed fetch never aborts sibling
// cards. Cancellation abandons in-flight fetches, keeps completed cards,
// and reports PartiallyResolved.
func (r *Resolver) Resolve(ctx context.Context, specs []models.CardSpec, opts Options) *Report {
	report := &Report{}

	// Assign output slots up front so completion order cannot reorder cards.
	valid := make([]models.CardSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.ID == "" {
			report.Skipped++
			continue
		}
		valid = append(valid, spec)
	}

	slots := make([]*models.Card, len(valid))

	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, spec := range valid {
		g.Go(func() error {
			card := r.resolveOne(ctx, spec, opts)
			// Each task owns exactly one slot; no two tasks share an index.
			slots[i] = card
			if opts.Progress != nil {
				opts.Progress(card)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Cards = slots
	for _, card := range slots {
		if card.Status == models.StatusResolved {
			report.Resolved++
		} else {
			report.Failed++
		}
	}

	report.Outcome = Completed
	if ctx.Err() != nil && report.Failed > 0 {
		report.Outcome = PartiallyResolved
	}
	return report
}

func (r *Resolver) resolveOne(ctx context.Context, spec models.CardSpec, opts Options) *models.Card {
	bleed := opts.BleedDefault
	if spec.BleedChecked != nil {
		bleed = *spec.BleedChecked
	}
	card := models.NewCard(spec, bleed)
	if opts.CardWidthMM > 0 {
		card.WidthMM = opts.CardWidthMM
	}
	if opts.CardHeightMM > 0 {
		card.HeightMM = opts.CardHeightMM
	}

	if err := ctx.Err(); err != nil {
		card.MarkFailed("resolution cancelled before fetch")
		return card
	}

	card.Status = models.StatusFetching
	data, err := r.fetcher.Fetch(ctx, spec.ID)
	if err != nil {
		card.MarkFailed(err.Error())
		return card
	}
	card.SetImage(data)
	return card
}

// ReResolve re-enters the fetching state for a single existing card and
// replaces its image bytes in place. This is the only transition out of a
// terminal state.
func (r *Resolver) ReResolve(ctx context.Context, card *models.Card) error {
	card.Status = models.StatusFetching
	data, err := r.fetcher.Fetch(ctx, card.ID)
	if err != nil {
		card.MarkFailed(err.Error())
		return err
	}
	card.SetImage(data)
	return nil
}
