// Package cards provides the ordered, identity-indexed card container
// consumed by layout and export code.
package cards

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/models"
)

// ChangeFunc is called after a mutation with the number of elements added
// or removed (negative for removals). Bulk operations report exactly once.
type ChangeFunc func(delta int)

// Collection is an ordered sequence of cards with unique identifiers.
// Insertion order is the print order. Identifier comparison is
// case-insensitive; attempting to add a card whose id already exists is
// rejected rather than overwriting the existing entry.
type Collection struct {
	mu    sync.RWMutex
	items []*models.Card
	byID  map[string]int // lowercased id -> index in items

	onChange ChangeFunc
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]int)}
}

// OnChange registers the single change-notification callback. The adapter
// layer translates these into whatever UI observation mechanism it uses.
func (c *Collection) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Add inserts one card at the end of the collection. It returns
// apperr.ErrDuplicateID when a card with the same id already exists.
func (c *Collection) Add(card *models.Card) error {
	c.mu.Lock()
	key := strings.ToLower(card.ID)
	if _, exists := c.byID[key]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", apperr.ErrDuplicateID, card.ID)
	}
	c.byID[key] = len(c.items)
	c.items = append(c.items, card)
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(1)
	}
	return nil
}

// AddRange inserts cards in order with a single change notification. The
// insert is atomic: if any card duplicates an existing or sibling id,
// nothing is inserted.
func (c *Collection) AddRange(batch []*models.Card) error {
	if len(batch) == 0 {
		return nil
	}

	c.mu.Lock()
	seen := make(map[string]struct{}, len(batch))
	for _, card := range batch {
		key := strings.ToLower(card.ID)
		if _, exists := c.byID[key]; exists {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", apperr.ErrDuplicateID, card.ID)
		}
		if _, dup := seen[key]; dup {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", apperr.ErrDuplicateID, card.ID)
		}
		seen[key] = struct{}{}
	}
	for _, card := range batch {
		c.byID[strings.ToLower(card.ID)] = len(c.items)
		c.items = append(c.items, card)
	}
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(len(batch))
	}
	return nil
}

// Remove deletes the card with the given id, preserving the order of the
// remaining elements. It returns apperr.ErrNotFound when absent.
func (c *Collection) Remove(id string) error {
	c.mu.Lock()
	key := strings.ToLower(id)
	idx, ok := c.byID[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: card %s", apperr.ErrNotFound, id)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	delete(c.byID, key)
	for i := idx; i < len(c.items); i++ {
		c.byID[strings.ToLower(c.items[i].ID)] = i
	}
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(-1)
	}
	return nil
}

// RemoveAll empties the collection with a single change notification.
func (c *Collection) RemoveAll() {
	c.mu.Lock()
	n := len(c.items)
	c.items = nil
	c.byID = make(map[string]int)
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil && n > 0 {
		fn(-n)
	}
}

// FindByID returns the card with the given id using a case-insensitive
// match, or nil when absent. Callers must check for nil.
func (c *Collection) FindByID(id string) *models.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx, ok := c.byID[strings.ToLower(id)]; ok {
		return c.items[idx]
	}
	return nil
}

// Get returns the card at position i in print order.
func (c *Collection) Get(i int) (*models.Card, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return nil, fmt.Errorf("%w: %d of %d", apperr.ErrIndexOutOfRange, i, len(c.items))
	}
	return c.items[i], nil
}

// Count returns the number of cards.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Cards returns a snapshot of the card sequence in print order. The slice
// is a copy; the elements are borrowed references owned by the collection.
func (c *Collection) Cards() []*models.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Card, len(c.items))
	copy(out, c.items)
	return out
}
