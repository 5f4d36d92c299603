package storage

import (
	"context"

	"kanban-board/domain"
)

// Backend is the keyed card table every store implementation and decorator
// satisfies. Writes are create-or-replace and the last completed write wins.
type Backend interface {
	// ListCards returns every stored card in unspecified order.
	ListCards(ctx context.Context) ([]domain.Card, error)
	// GetCard returns nil without error when the id is absent.
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	PutCard(ctx context.Context, card domain.Card) error
	// DeleteCard treats an absent id as success.
	DeleteCard(ctx context.Context, id string) error
}
