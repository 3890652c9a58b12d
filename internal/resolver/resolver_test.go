package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/models"
	"github.com/jponter/proxyforge/internal/testutil"
)

func specs(ids ...string) []models.CardSpec {
	out := make([]models.CardSpec, len(ids))
	for i, id := range ids {
		out[i] = models.CardSpec{ID: id, Name: "card " + id, Description: "d", Query: "q"}
	}
	return out
}

func TestResolve_AllSucceedInDraftOrder(t *testing.T) {
	stub := &testutil.StubFetcher{
		Responses: map[string][]byte{
			"001": []byte("a"), "002": []byte("b"), "003": []byte("c"),
		},
		// A small delay makes completion order unlikely to match draft order
		// without the index-addressed result buffer.
		Delay: 10 * time.Millisecond,
	}
	r := New(stub)

	report := r.Resolve(context.Background(), specs("001", "002", "003"), Options{BleedDefault: true})
	if report.Outcome != Completed {
		t.Fatalf("outcome = %s, want completed", report.Outcome)
	}
	if report.Resolved != 3 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("counts = %d/%d/%d", report.Resolved, report.Failed, report.Skipped)
	}
	for i, want := range []string{"001", "002", "003"} {
		card := report.Cards[i]
		if card.ID != want {
			t.Errorf("Cards[%d].ID = %q, want %q", i, card.ID, want)
		}
		if !card.ImageDownloaded || card.Status != models.StatusResolved {
			t.Errorf("Cards[%d] not resolved: %+v", i, card)
		}
	}
}

func TestResolve_FailureIsolation(t *testing.T) {
	stub := &testutil.StubFetcher{
		Responses: map[string][]byte{"001": []byte("a"), "003": []byte("c")},
		Errs:      map[string]error{"002": &apperr.TransientFetchError{Cause: context.DeadlineExceeded}},
	}
	r := New(stub)

	report := r.Resolve(context.Background(), specs("001", "002", "003"), Options{})
	if report.Outcome != Completed {
		t.Fatalf("outcome = %s, want completed", report.Outcome)
	}
	if len(report.Cards) != 3 {
		t.Fatalf("len(Cards) = %d, want 3: failed cards keep their slot", len(report.Cards))
	}
	failed := report.Cards[1]
	if failed.Status != models.StatusFailed || failed.ImageDownloaded {
		t.Errorf("card 002 should be failed: %+v", failed)
	}
	if failed.FailureReason == "" {
		t.Error("failed card must retain its failure reason")
	}
	if report.Cards[0].Status != models.StatusResolved || report.Cards[2].Status != models.StatusResolved {
		t.Error("siblings of a failed card must still resolve")
	}
	if report.Resolved != 2 || report.Failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", report.Resolved, report.Failed)
	}
}

func TestResolve_SkipsDraftsWithoutID(t *testing.T) {
	stub := &testutil.StubFetcher{Responses: map[string][]byte{"001": []byte("a")}}
	r := New(stub)

	in := []models.CardSpec{{ID: ""}, {ID: "001", Name: "one"}}
	report := r.Resolve(context.Background(), in, Options{})
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(report.Cards) != 1 {
		t.Fatalf("len(Cards) = %d, want 1: skipped drafts consume no slot", len(report.Cards))
	}
	if report.Cards[0].ID != "001" {
		t.Errorf("Cards[0].ID = %q", report.Cards[0].ID)
	}
}

func TestResolve_BleedDefaultInheritance(t *testing.T) {
	explicit := false
	in := []models.CardSpec{
		{ID: "001"},                          // inherits global default
		{ID: "002", BleedChecked: &explicit}, // keeps explicit flag
	}

	for _, def := range []bool{true, false} {
		stub := &testutil.StubFetcher{
			Responses: map[string][]byte{"001": []byte("a"), "002": []byte("b")},
		}
		report := New(stub).Resolve(context.Background(), in, Options{BleedDefault: def})
		if got := report.Cards[0].BleedEnabled; got != def {
			t.Errorf("default %v: inherited bleed = %v, want %v", def, got, def)
		}
		if report.Cards[1].BleedEnabled {
			t.Errorf("default %v: explicit false flag must win", def)
		}
	}
}

func TestResolve_CardDimensionOverride(t *testing.T) {
	stub := &testutil.StubFetcher{Responses: map[string][]byte{"001": []byte("a")}}
	r := New(stub)

	report := r.Resolve(context.Background(), specs("001"), Options{})
	if w, h := report.Cards[0].WidthMM, report.Cards[0].HeightMM; w != models.DefaultCardWidthMM || h != models.DefaultCardHeightMM {
		t.Fatalf("default dimensions = %gx%g", w, h)
	}

	report = r.Resolve(context.Background(), specs("001"), Options{CardWidthMM: 63, CardHeightMM: 88})
	if w, h := report.Cards[0].WidthMM, report.Cards[0].HeightMM; w != 63 || h != 88 {
		t.Fatalf("overridden dimensions = %gx%g, want 63x88", w, h)
	}
}

func TestResolve_BoundedConcurrency(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	responses := make(map[string][]byte, len(ids))
	for _, id := range ids {
		responses[id] = []byte(id)
	}
	stub := &testutil.StubFetcher{Responses: responses, Delay: 20 * time.Millisecond}

	report := New(stub).Resolve(context.Background(), specs(ids...), Options{MaxConcurrent: 2})
	if report.Resolved != len(ids) {
		t.Fatalf("Resolved = %d, want %d", report.Resolved, len(ids))
	}
	if got := stub.MaxInFlight(); got > 2 {
		t.Errorf("max in-flight fetches = %d, want <= 2", got)
	}
}

func TestResolve_CancellationPreservesCompletedWork(t *testing.T) {
	stub := &testutil.StubFetcher{
		Responses: map[string][]byte{
			"001": []byte("a"), "002": []byte("b"), "003": []byte("c"), "004": []byte("d"),
		},
		Delay: 40 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	report := New(stub).Resolve(ctx, specs("001", "002", "003", "004"), Options{MaxConcurrent: 1})
	if report.Outcome != PartiallyResolved {
		t.Fatalf("outcome = %s, want partially_resolved", report.Outcome)
	}
	if report.Resolved == 0 {
		t.Error("cards completed before cancellation must be preserved")
	}
	if report.Failed == 0 {
		t.Error("unfinished slots must be marked failed")
	}
	if len(report.Cards) != 4 {
		t.Errorf("len(Cards) = %d, want 4: ordering survives cancellation", len(report.Cards))
	}
	for i, want := range []string{"001", "002", "003", "004"} {
		if report.Cards[i].ID != want {
			t.Errorf("Cards[%d].ID = %q, want %q", i, report.Cards[i].ID, want)
		}
	}
}

func TestResolve_ProgressCallbackPerCard(t *testing.T) {
	stub := &testutil.StubFetcher{
		Responses: map[string][]byte{"001": []byte("a")},
		Errs:      map[string]error{"002": apperr.ErrInvalidRequest},
	}

	var mu sync.Mutex
	seen := map[string]models.ResolutionStatus{}
	opts := Options{Progress: func(card *models.Card) {
		mu.Lock()
		seen[card.ID] = card.Status
		mu.Unlock()
	}}

	New(stub).Resolve(context.Background(), specs("001", "002"), opts)
	if seen["001"] != models.StatusResolved {
		t.Errorf("progress for 001 = %s, want resolved", seen["001"])
	}
	if seen["002"] != models.StatusFailed {
		t.Errorf("progress for 002 = %s, want failed", seen["002"])
	}
}

func TestReResolve_LeavesTerminalStateOnExplicitRequest(t *testing.T) {
	stub := &testutil.StubFetcher{Errs: map[string]error{"001": apperr.ErrCorruptResponse}}
	r := New(stub)

	report := r.Resolve(context.Background(), specs("001"), Options{})
	card := report.Cards[0]
	if card.Status != models.StatusFailed {
		t.Fatalf("setup: card should have failed")
	}

	// The service recovers; an explicit re-resolve succeeds.
	stub.Errs = nil
	stub.Responses = map[string][]byte{"001": []byte("recovered")}
	if err := r.ReResolve(context.Background(), card); err != nil {
		t.Fatalf("ReResolve: %v", err)
	}
	if card.Status != models.StatusResolved || !card.ImageDownloaded {
		t.Errorf("card after re-resolve: %+v", card)
	}
	if string(card.ImageBytes) != "recovered" {
		t.Errorf("image bytes = %q", card.ImageBytes)
	}
}
