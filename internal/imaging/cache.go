package imaging

import (
	"image"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jponter/proxyforge/internal/checksum"
)

// BitmapCache holds decoded bitmaps keyed by the fingerprint of their
// encoded bytes. Because the key is derived from content, replacing a
// card's encoded buffer invalidates its cached bitmap by construction:
// the new bytes simply hash to a different key.
type BitmapCache struct {
	mu      sync.Mutex
	entries map[string]image.Image
	order   []string // insertion order, oldest first
	cap     int

	group singleflight.Group
}

// NewBitmapCache creates a cache holding at most capacity decoded bitmaps.
// A capacity of zero or less disables eviction.
func NewBitmapCache(capacity int) *BitmapCache {
	return &BitmapCache{
		entries: make(map[string]image.Image),
		cap:     capacity,
	}
}

// Bitmap returns the decoded bitmap for the given encoded bytes, decoding at
// most once per distinct content even under concurrent callers.
func (c *BitmapCache) Bitmap(data []byte) (image.Image, error) {
	key := checksum.Fingerprint(data)

	c.mu.Lock()
	if img, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		img, err := Decode(data)
		if err != nil {
			return nil, err
		}
		c.store(key, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Len returns the number of cached bitmaps.
func (c *BitmapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Invalidate drops the cached bitmap for the given encoded bytes, if any.
func (c *BitmapCache) Invalidate(data []byte) {
	key := checksum.Fingerprint(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *BitmapCache) store(key string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = img
	c.order = append(c.order, key)
	for c.cap > 0 && len(c.entries) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
