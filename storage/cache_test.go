package storage

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-board/domain"
)

type stubBackend struct {
	listCardsFn  func(ctx context.Context) ([]domain.Card, error)
	getCardFn    func(ctx context.Context, id string) (*domain.Card, error)
	putCardFn    func(ctx context.Context, card domain.Card) error
	deleteCardFn func(ctx context.Context, id string) error
}

func (s *stubBackend) ListCards(ctx context.Context) ([]domain.Card, error) {
	if s.listCardsFn == nil {
		return nil, errors.New("unexpected ListCards call")
	}
	return s.listCardsFn(ctx)
}

func (s *stubBackend) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	if s.getCardFn == nil {
		return nil, errors.New("unexpected GetCard call")
	}
	return s.getCardFn(ctx, id)
}

func (s *stubBackend) PutCard(ctx context.Context, card domain.Card) error {
	if s.putCardFn == nil {
		return errors.New("unexpected PutCard call")
	}
	return s.putCardFn(ctx, card)
}

func (s *stubBackend) DeleteCard(ctx context.Context, id string) error {
	if s.deleteCardFn == nil {
		return errors.New("unexpected DeleteCard call")
	}
	return s.deleteCardFn(ctx, id)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheListCardsMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	expected := []domain.Card{{ID: "1", Title: "Write code", Category: "todo"}}

	var calls int
	cache := NewCache(&stubBackend{
		listCardsFn: func(ctx context.Context) ([]domain.Card, error) {
			calls++
			return append([]domain.Card(nil), expected...), nil
		},
	}, client, time.Minute)

	cards, err := cache.ListCards(ctx)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if !reflect.DeepEqual(cards, expected) {
		t.Fatalf("unexpected cards: %#v", cards)
	}
	if ttl := mr.TTL(cardsCacheKey); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.ListCards(ctx)
	if err != nil {
		t.Fatalf("list cached cards: %v", err)
	}
	if !reflect.DeepEqual(cached, expected) {
		t.Fatalf("unexpected cached cards: %#v", cached)
	}
	if calls != 1 {
		t.Fatalf("expected cached list to avoid backend, calls=%d", calls)
	}
}

func TestCacheListCardsCachesEmptyTable(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		listCardsFn: func(ctx context.Context) ([]domain.Card, error) {
			calls++
			return nil, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		cards, err := cache.ListCards(ctx)
		if err != nil {
			t.Fatalf("list cards: %v", err)
		}
		if len(cards) != 0 {
			t.Fatalf("expected no cards, got %#v", cards)
		}
	}
	if calls != 1 {
		t.Fatalf("expected empty list to be cached, calls=%d", calls)
	}
	if got, _ := mr.Get(cardsCacheKey); got != "[]" {
		t.Fatalf("expected empty array in cache, got %q", got)
	}
}

func TestCacheListCardsCollapsesConcurrentMisses(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	cache := NewCache(&stubBackend{
		listCardsFn: func(ctx context.Context) ([]domain.Card, error) {
			calls.Add(1)
			<-release
			return []domain.Card{{ID: "1"}}, nil
		},
	}, client, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.ListCards(ctx); err != nil {
				t.Errorf("list cards: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 5 {
		t.Fatalf("unexpected backend calls: %d", n)
	}
}

// slowReadBackend serves reads from mem but holds the first read of each
// kind after it has looked at the data, until release is closed.
type slowReadBackend struct {
	*Memory
	loaded   chan struct{}
	release  chan struct{}
	listOnce sync.Once
	getOnce  sync.Once
}

func newSlowReadBackend(seed ...domain.Card) *slowReadBackend {
	return &slowReadBackend{
		Memory:  NewMemory(seed...),
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *slowReadBackend) ListCards(ctx context.Context) ([]domain.Card, error) {
	cards, err := b.Memory.ListCards(ctx)
	b.listOnce.Do(func() {
		close(b.loaded)
		<-b.release
	})
	return cards, err
}

func (b *slowReadBackend) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	card, err := b.Memory.GetCard(ctx, id)
	b.getOnce.Do(func() {
		close(b.loaded)
		<-b.release
	})
	return card, err
}

func TestCacheListCardsLoadRacingWriteIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	backend := newSlowReadBackend(domain.Card{ID: "1", Title: "old", Category: "todo"})
	cache := NewCache(backend, client, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.ListCards(ctx)
		done <- err
	}()
	<-backend.loaded

	if err := cache.PutCard(ctx, domain.Card{ID: "1", Title: "new", Category: "todo"}); err != nil {
		t.Fatalf("put card: %v", err)
	}
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("list cards: %v", err)
	}

	if mr.Exists(cardsCacheKey) {
		t.Fatal("list loaded before the write must not be cached")
	}
	cards, err := cache.ListCards(ctx)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 1 || cards[0].Title != "new" {
		t.Fatalf("expected the written card, got %#v", cards)
	}
}

func TestCacheGetCardLoadRacingWriteIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	backend := newSlowReadBackend(domain.Card{ID: "1", Title: "old", Category: "todo"})
	cache := NewCache(backend, client, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetCard(ctx, "1")
		done <- err
	}()
	<-backend.loaded

	if err := cache.PutCard(ctx, domain.Card{ID: "1", Title: "new", Category: "todo"}); err != nil {
		t.Fatalf("put card: %v", err)
	}
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("get card: %v", err)
	}

	if mr.Exists(cardCacheKey("1")) {
		t.Fatal("card loaded before the write must not be cached")
	}
	card, err := cache.GetCard(ctx, "1")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if card == nil || card.Title != "new" {
		t.Fatalf("expected the written card, got %#v", card)
	}
}

func TestCacheListCardsLoadOutlivesCancelledCaller(t *testing.T) {
	mr, client := newTestRedis(t)
	loaded := make(chan struct{})
	release := make(chan struct{})
	var loadErr error
	cache := NewCache(&stubBackend{
		listCardsFn: func(ctx context.Context) ([]domain.Card, error) {
			close(loaded)
			<-release
			loadErr = ctx.Err()
			return []domain.Card{{ID: "1"}}, loadErr
		},
	}, client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.ListCards(ctx)
		done <- err
	}()
	<-loaded
	cancel()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if loadErr != nil {
		t.Fatalf("shared load saw the caller's cancellation: %v", loadErr)
	}
	if !mr.Exists(cardsCacheKey) {
		t.Fatal("expected the shared load to fill the cache")
	}
}

func TestCacheGetCardMissThenHit(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		getCardFn: func(ctx context.Context, id string) (*domain.Card, error) {
			calls++
			return &domain.Card{ID: id, Title: "t", Category: "doing"}, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		card, err := cache.GetCard(ctx, "42")
		if err != nil {
			t.Fatalf("get card: %v", err)
		}
		if card == nil || card.ID != "42" || card.Category != "doing" {
			t.Fatalf("unexpected card: %#v", card)
		}
	}
	if calls != 1 {
		t.Fatalf("expected cached get to avoid backend, calls=%d", calls)
	}
}

func TestCacheGetCardAbsentIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		getCardFn: func(ctx context.Context, id string) (*domain.Card, error) {
			calls++
			return nil, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		card, err := cache.GetCard(ctx, "missing")
		if err != nil || card != nil {
			t.Fatalf("expected absent card, got %#v, %v", card, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected absent cards to hit backend each time, calls=%d", calls)
	}
	if mr.Exists(cardCacheKey("missing")) {
		t.Fatal("absent card must not be cached")
	}
}

func TestCachePutCardEvicts(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var put domain.Card
	cache := NewCache(&stubBackend{
		putCardFn: func(ctx context.Context, card domain.Card) error {
			put = card
			return nil
		},
	}, client, time.Minute)

	_ = mr.Set(cardsCacheKey, `[{"id":"1"}]`)
	_ = mr.Set(cardCacheKey("1"), `{"id":"1"}`)
	_ = mr.Set(cardCacheKey("2"), `{"id":"2"}`)

	card := domain.Card{ID: "1", Title: "new", Category: "done"}
	if err := cache.PutCard(ctx, card); err != nil {
		t.Fatalf("put card: %v", err)
	}
	if put != card {
		t.Fatalf("backend got %#v", put)
	}
	if mr.Exists(cardsCacheKey) || mr.Exists(cardCacheKey("1")) {
		t.Fatal("expected list and card keys to be evicted")
	}
	if !mr.Exists(cardCacheKey("2")) {
		t.Fatal("unrelated card must stay cached")
	}
}

func TestCachePutCardErrorKeepsCache(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	boom := errors.New("boom")

	cache := NewCache(&stubBackend{
		putCardFn: func(ctx context.Context, card domain.Card) error { return boom },
	}, client, time.Minute)
	_ = mr.Set(cardsCacheKey, `[]`)

	if err := cache.PutCard(ctx, domain.Card{ID: "1"}); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !mr.Exists(cardsCacheKey) {
		t.Fatal("failed write must not evict")
	}
}

func TestCacheDeleteCardEvicts(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	cache := NewCache(&stubBackend{
		deleteCardFn: func(ctx context.Context, id string) error { return nil },
	}, client, time.Minute)
	_ = mr.Set(cardsCacheKey, `[{"id":"9"}]`)
	_ = mr.Set(cardCacheKey("9"), `{"id":"9"}`)

	if err := cache.DeleteCard(ctx, "9"); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if mr.Exists(cardsCacheKey) || mr.Exists(cardCacheKey("9")) {
		t.Fatal("expected keys to be evicted")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	cache := NewCache(&stubBackend{
		listCardsFn: func(ctx context.Context) ([]domain.Card, error) {
			return []domain.Card{{ID: "1"}}, nil
		},
	}, client, time.Minute)
	_ = mr.Set(cardsCacheKey, "not-json")

	cards, err := cache.ListCards(ctx)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "1" {
		t.Fatalf("unexpected cards: %#v", cards)
	}
}

func TestCacheRedisDownFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	mr.Close()

	cache := NewCache(&stubBackend{
		getCardFn: func(ctx context.Context, id string) (*domain.Card, error) {
			return &domain.Card{ID: id}, nil
		},
		putCardFn: func(ctx context.Context, card domain.Card) error { return nil },
	}, client, time.Minute)

	card, err := cache.GetCard(ctx, "1")
	if err != nil || card == nil {
		t.Fatalf("expected backend fallback, got %#v, %v", card, err)
	}
	if err := cache.PutCard(ctx, domain.Card{ID: "1"}); err != nil {
		t.Fatalf("put must not fail on redis errors: %v", err)
	}
}

func TestCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemory(domain.Card{ID: "1", Title: "t", Category: "todo"}), nil, time.Minute)

	cards, err := cache.ListCards(ctx)
	if err != nil || len(cards) != 1 {
		t.Fatalf("unexpected result: %#v, %v", cards, err)
	}
	if err := cache.DeleteCard(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	cards, _ = cache.ListCards(ctx)
	if len(cards) != 0 {
		t.Fatalf("expected empty store, got %#v", cards)
	}
}
