package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
)

// Route keys served by the router.
const (
	RouteListCards  = "GET /cards"
	RouteGetCard    = "GET /cards/{id}"
	RoutePutCard    = "PUT /cards"
	RoutePostCard   = "POST /cards"
	RouteDeleteCard = "DELETE /cards/{id}"
)

// Router maps route keys onto card store operations. It keeps no state
// between invocations.
type Router struct {
	store  Storage
	policy domain.FieldPolicy
	logger *log.Logger
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithFieldPolicy sets the policy applied to upsert bodies. The default is
// domain.Lenient.
func WithFieldPolicy(p domain.FieldPolicy) RouterOption {
	return func(r *Router) {
		r.policy = p
	}
}

// NewRouter returns a router over store. A nil logger disables request metrics.
func NewRouter(store Storage, logger *log.Logger, opts ...RouterOption) *Router {
	r := &Router{store: store, policy: domain.Lenient, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route executes the operation selected by req.RouteKey. Every outcome is a
// JSON body: 200 on success, 400 with the error message as a JSON string on
// any failure.
func (r *Router) Route(ctx context.Context, req Request) Response {
	metrics := newCardRequestMetrics(r.logger, req.RouteKey)

	var (
		result any
		err    error
	)
	switch req.RouteKey {
	case RouteListCards:
		result, err = r.listCards(ctx, metrics)
	case RouteGetCard:
		result, err = r.getCard(ctx, req.PathParameters["id"], metrics)
	case RoutePutCard:
		result, err = r.upsertCard(ctx, IntentPut, req.Body, metrics)
	case RoutePostCard:
		result, err = r.upsertCard(ctx, IntentPost, req.Body, metrics)
	case RouteDeleteCard:
		result, err = r.deleteCard(ctx, req.PathParameters["id"], metrics)
	default:
		err = &UnsupportedRouteError{RouteKey: req.RouteKey}
	}

	if err != nil {
		return r.respond(metrics, http.StatusBadRequest, err.Error(), err)
	}
	return r.respond(metrics, http.StatusOK, result, nil)
}

// reject answers a request that failed before it could be routed.
func (r *Router) reject(routeKey string, err error) Response {
	metrics := newCardRequestMetrics(r.logger, routeKey)
	return r.respond(metrics, http.StatusBadRequest, err.Error(), err)
}

func (r *Router) respond(metrics *cardRequestMetrics, status int, value any, err error) Response {
	body, encodeErr := sonic.Marshal(value)
	if encodeErr != nil {
		status = http.StatusBadRequest
		err = encodeErr
		body, _ = sonic.Marshal(encodeErr.Error())
	}
	metrics.Log(status, err)
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func (r *Router) listCards(ctx context.Context, metrics *cardRequestMetrics) (any, error) {
	start := time.Now()
	cards, err := r.store.ListCards(ctx)
	metrics.ObserveStore(time.Since(start))
	if err != nil {
		return nil, err
	}
	metrics.SetCardsReturned(len(cards))
	// An empty table is reported as null rather than [].
	if len(cards) == 0 {
		return nil, nil
	}
	return cards, nil
}

func (r *Router) getCard(ctx context.Context, id string, metrics *cardRequestMetrics) (any, error) {
	if id == "" {
		return nil, &domain.MissingFieldError{Field: "id"}
	}
	start := time.Now()
	card, err := r.store.GetCard(ctx, id)
	metrics.ObserveStore(time.Since(start))
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	return card, nil
}

func (r *Router) upsertCard(ctx context.Context, intent UpsertIntent, body []byte, metrics *cardRequestMetrics) (any, error) {
	var card domain.Card
	if err := sonic.ConfigStd.Unmarshal(body, &card); err != nil {
		return nil, err
	}
	if err := r.policy.Check(card); err != nil {
		return nil, err
	}
	start := time.Now()
	err := r.store.PutCard(ctx, card)
	metrics.ObserveStore(time.Since(start))
	if err != nil {
		return nil, err
	}
	return intent.String() + " item " + card.ID, nil
}

func (r *Router) deleteCard(ctx context.Context, id string, metrics *cardRequestMetrics) (any, error) {
	if id == "" {
		return nil, &domain.MissingFieldError{Field: "id"}
	}
	start := time.Now()
	err := r.store.DeleteCard(ctx, id)
	metrics.ObserveStore(time.Since(start))
	if err != nil {
		return nil, err
	}
	return "Deleted item " + id, nil
}
