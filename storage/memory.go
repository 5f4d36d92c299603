package storage

import (
	"context"
	"sync"

	"kanban-board/domain"
)

// Memory keeps cards in process memory. It is used for local runs and tests.
type Memory struct {
	mu    sync.RWMutex
	cards map[string]domain.Card
}

// NewMemory returns an empty in-memory store seeded with the given cards.
func NewMemory(seed ...domain.Card) *Memory {
	m := &Memory{cards: make(map[string]domain.Card, len(seed))}
	for _, c := range seed {
		m.cards[c.ID] = c
	}
	return m
}

func (m *Memory) ListCards(ctx context.Context) ([]domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cards := make([]domain.Card, 0, len(m.cards))
	for _, c := range m.cards {
		cards = append(cards, c)
	}
	return cards, nil
}

func (m *Memory) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) PutCard(ctx context.Context, card domain.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cards[card.ID] = card
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteCard(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cards, id)
	m.mu.Unlock()
	return nil
}
