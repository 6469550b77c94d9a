package conversation

import (
	"container/list"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/elsastre/luisa/internal/rules"
)

// ReplyCache is an in-memory LRU with TTL for FAQ-style replies. Keys are
// normalized down to sorted significant words, so "¿cuál es el horario?"
// and "horario?" hit the same entry.
type ReplyCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List
	hits    int64
	misses  int64

	now func() time.Time
}

type cacheEntry struct {
	key       string
	reply     string
	expiresAt time.Time
}

// CacheStats is the snapshot served on the ops cache endpoint.
type CacheStats struct {
	Size           int     `json:"size"`
	MaxSize        int     `json:"max_size"`
	TTLSeconds     float64 `json:"ttl_seconds"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

func NewReplyCache(maxSize int, ttl time.Duration) *ReplyCache {
	return &ReplyCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

var cacheStopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"de": {}, "del": {}, "que": {}, "y": {}, "a": {}, "en": {},
	"por": {}, "para": {},
}

func normalizeCacheKey(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, rules.Normalize(text))
	words := strings.Fields(cleaned)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := cacheStopwords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 10 {
			break
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// Get returns the cached reply for an equivalent text, if present and not
// expired.
func (c *ReplyCache) Get(text string) (string, bool) {
	key := normalizeCacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		return "", false
	}
	c.order.MoveToBack(el)
	c.hits++
	return entry.reply, true
}

// Set stores a reply, evicting the least recently used entries when full.
func (c *ReplyCache) Set(text, reply string) {
	key := normalizeCacheKey(text)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.reply = reply
		entry.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToBack(el)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	el := c.order.PushBack(&cacheEntry{
		key:       key,
		reply:     reply,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = el
}

// CleanupExpired drops expired entries and reports how many were removed.
func (c *ReplyCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*cacheEntry)
		if now.After(entry.expiresAt) {
			c.order.Remove(el)
			delete(c.entries, entry.key)
			removed++
		}
		el = next
	}
	return removed
}

func (c *ReplyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

func (c *ReplyCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Size:           len(c.entries),
		MaxSize:        c.maxSize,
		TTLSeconds:     c.ttl.Seconds(),
		Hits:           c.hits,
		Misses:         c.misses,
		HitRatePercent: rate,
	}
}
