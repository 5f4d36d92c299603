package api

import (
	"context"

	"kanban-board/domain"
)

// Storage abstracts card persistence for the router.
type Storage interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	PutCard(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id string) error
}

// Request is a single routed invocation. RouteKey has the form
// "<METHOD> <pattern>", for example "GET /cards/{id}".
type Request struct {
	RouteKey       string
	PathParameters map[string]string
	Body           []byte
}

// Response carries an already encoded JSON body.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// UpsertIntent records which route binding asked for an upsert. Both intents
// perform the same create-or-replace write and differ only in the reply.
type UpsertIntent int

const (
	IntentPut UpsertIntent = iota
	IntentPost
)

func (i UpsertIntent) String() string {
	if i == IntentPost {
		return "POST"
	}
	return "PUT"
}

// UnsupportedRouteError is returned for any route key the router does not serve.
type UnsupportedRouteError struct {
	RouteKey string
}

func (e *UnsupportedRouteError) Error() string {
	return `Unsupported route: "` + e.RouteKey + `"`
}
