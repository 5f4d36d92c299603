package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"kanban-board/domain"
)

const cardsCacheKey = "cards"

// Cache wraps a Backend with Redis-backed caching for read operations.
//
// A read that misses only fills the cache when no write went through this
// Cache while it was loading, so a slow load cannot restore a record that a
// later write has already replaced.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
	group singleflight.Group

	// mu orders cache fills against evictions; writes counts evictions.
	mu     sync.Mutex
	writes uint64
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching but keeps eviction on writes.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) ListCards(ctx context.Context) ([]domain.Card, error) {
	if cards, ok := c.loadCardsFromCache(ctx); ok {
		return cards, nil
	}

	// The load is shared by every collapsed caller, so one of them giving up
	// must not fail the others.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(cardsCacheKey, func() (any, error) {
		seen := c.writeCount()
		cards, err := c.base.ListCards(loadCtx)
		if err != nil {
			return nil, err
		}
		c.storeCards(loadCtx, cards, seen)
		return cards, nil
	})
	if err != nil {
		return nil, err
	}

	cards := v.([]domain.Card)
	return append([]domain.Card(nil), cards...), nil
}

func (c *Cache) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	if card, ok := c.loadCardFromCache(ctx, id); ok {
		return card, nil
	}

	seen := c.writeCount()
	card, err := c.base.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}

	if card != nil {
		c.storeCard(ctx, *card, seen)
	}
	return card, nil
}

func (c *Cache) PutCard(ctx context.Context, card domain.Card) error {
	if err := c.base.PutCard(ctx, card); err != nil {
		return err
	}

	c.evict(ctx, card.ID)
	return nil
}

func (c *Cache) DeleteCard(ctx context.Context, id string) error {
	if err := c.base.DeleteCard(ctx, id); err != nil {
		return err
	}

	c.evict(ctx, id)
	return nil
}

func (c *Cache) loadCardsFromCache(ctx context.Context) ([]domain.Card, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cardsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, cardsCacheKey).Err()
		}
		return nil, false
	}
	var cards []domain.Card
	if err := json.Unmarshal(data, &cards); err != nil || cards == nil {
		_ = c.redis.Del(ctx, cardsCacheKey).Err()
		return nil, false
	}
	return cards, true
}

func (c *Cache) loadCardFromCache(ctx context.Context, id string) (*domain.Card, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cardCacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, cardCacheKey(id)).Err()
		}
		return nil, false
	}
	var card domain.Card
	if err := json.Unmarshal(data, &card); err != nil {
		_ = c.redis.Del(ctx, cardCacheKey(id)).Err()
		return nil, false
	}
	return &card, true
}

func (c *Cache) storeCards(ctx context.Context, cards []domain.Card, seen uint64) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return
	}
	c.fill(ctx, cardsCacheKey, data, seen)
}

func (c *Cache) storeCard(ctx context.Context, card domain.Card, seen uint64) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(card)
	if err != nil {
		return
	}
	c.fill(ctx, cardCacheKey(card.ID), data, seen)
}

// fill stores data under key unless a write was evicted since seen was read.
func (c *Cache) fill(ctx context.Context, key string, data []byte, seen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writes != seen {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) writeCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *Cache) evict(ctx context.Context, id string) {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, cardsCacheKey, cardCacheKey(id)).Result()
}

func cardCacheKey(id string) string {
	return "card:" + id
}
