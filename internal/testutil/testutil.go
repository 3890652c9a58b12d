// Package testutil provides shared test helpers: temp catalogs, a stub
// fetcher, and order XML builders.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jponter/proxyforge/internal/catalog"
)

// TestCatalog creates a temporary SQLite catalog that is automatically
// cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "proxyforge-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// StubFetcher is an in-memory fetch.Fetcher for tests. Responses maps card
// ids to image bytes; Errs maps ids to injected failures. Unknown ids fail.
type StubFetcher struct {
	Responses map[string][]byte
	Errs      map[string]error

	// Delay, if set, is waited (or interrupted by ctx) before responding.
	Delay time.Duration

	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
}

// Fetch implements fetch.Fetcher.
func (s *StubFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, id)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := s.Errs[id]; ok {
		return nil, err
	}
	if data, ok := s.Responses[id]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("stub: no response for %q", id)
}

// Calls returns the ids fetched so far, in call order.
func (s *StubFetcher) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// MaxInFlight returns the peak number of concurrent Fetch calls observed.
func (s *StubFetcher) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// PNG returns a small deterministic encoded PNG, distinct per seed.
func PNG(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(seed * 31), G: uint8(x * 60), B: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// OrderXML builds a minimal valid order document with one <card> per id.
func OrderXML(ids ...string) []byte {
	var b strings.Builder
	b.WriteString("<order><quantity>1</quantity><fronts>")
	for _, id := range ids {
		fmt.Fprintf(&b, "<card><name>card %s</name><id>%s</id></card>", id, id)
	}
	b.WriteString("</fronts></order>")
	return []byte(b.String())
}
