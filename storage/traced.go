package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kanban-board/domain"
)

const tracerName = "kanban-board/storage"

// Traced records one span per backend operation.
type Traced struct {
	base   Backend
	tracer trace.Tracer
}

// NewTraced wraps base using the given tracer provider, or the global one
// when tp is nil.
func NewTraced(base Backend, tp trace.TracerProvider) *Traced {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Traced{base: base, tracer: tp.Tracer(tracerName)}
}

func (t *Traced) ListCards(ctx context.Context) (cards []domain.Card, err error) {
	ctx, span := t.tracer.Start(ctx, "storage.ListCards")
	defer func() {
		span.SetAttributes(attribute.Int("cards.count", len(cards)))
		end(span, err)
	}()
	return t.base.ListCards(ctx)
}

func (t *Traced) GetCard(ctx context.Context, id string) (card *domain.Card, err error) {
	ctx, span := t.tracer.Start(ctx, "storage.GetCard", trace.WithAttributes(attribute.String("card.id", id)))
	defer func() {
		span.SetAttributes(attribute.Bool("card.found", card != nil))
		end(span, err)
	}()
	return t.base.GetCard(ctx, id)
}

func (t *Traced) PutCard(ctx context.Context, card domain.Card) (err error) {
	ctx, span := t.tracer.Start(ctx, "storage.PutCard", trace.WithAttributes(
		attribute.String("card.id", card.ID),
		attribute.String("card.category", card.Category),
	))
	defer func() { end(span, err) }()
	return t.base.PutCard(ctx, card)
}

func (t *Traced) DeleteCard(ctx context.Context, id string) (err error) {
	ctx, span := t.tracer.Start(ctx, "storage.DeleteCard", trace.WithAttributes(attribute.String("card.id", id)))
	defer func() { end(span, err) }()
	return t.base.DeleteCard(ctx, id)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
