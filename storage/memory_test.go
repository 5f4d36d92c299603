package storage

import (
	"context"
	"sync"
	"testing"

	"kanban-board/domain"
)

func TestMemoryLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.PutCard(ctx, domain.Card{ID: "same", Title: "v", Category: "todo"})
		}(i)
	}
	wg.Wait()
	if err := m.PutCard(ctx, domain.Card{ID: "same", Title: "final", Category: "done"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	card, err := m.GetCard(ctx, "same")
	if err != nil || card == nil {
		t.Fatalf("get: %#v, %v", card, err)
	}
	if card.Title != "final" || card.Category != "done" {
		t.Fatalf("expected last write to win, got %#v", card)
	}
}

func TestMemoryDeleteAbsent(t *testing.T) {
	if err := NewMemory().DeleteCard(context.Background(), "missing"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().ListCards(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
