package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"kanban-board/domain"
)

func TestCardRequestMetricsLog(t *testing.T) {
	logger, hook := test.NewNullLogger()

	metrics := newCardRequestMetrics(logger, RouteListCards)
	metrics.start = metrics.start.Add(-50 * time.Millisecond)
	metrics.ObserveStore(10 * time.Millisecond)
	metrics.ObserveStore(-time.Millisecond)
	metrics.SetCardsReturned(3)
	metrics.Log(http.StatusOK, nil)

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "cards.request.metrics" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Data["route"] != RouteListCards || entry.Data["status"] != http.StatusOK {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
	if entry.Data["store_ms"] != 10.0 {
		t.Fatalf("unexpected store_ms: %#v", entry.Data["store_ms"])
	}
	if total, _ := entry.Data["total_ms"].(float64); total < 50 {
		t.Fatalf("expected total_ms >= 50, got %#v", entry.Data["total_ms"])
	}
	if entry.Data["cards_returned"] != 3 {
		t.Fatalf("unexpected cards_returned: %#v", entry.Data["cards_returned"])
	}
	if _, ok := entry.Data["error"]; ok {
		t.Fatal("unexpected error field")
	}
}

func TestCardRequestMetricsOmitsUnsetFields(t *testing.T) {
	logger, hook := test.NewNullLogger()

	newCardRequestMetrics(logger, "PATCH /cards").Log(http.StatusBadRequest, errors.New("nope"))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected log entry")
	}
	if entry.Data["error"] != "nope" {
		t.Fatalf("unexpected error field: %#v", entry.Data["error"])
	}
	for _, key := range []string{"store_ms", "cards_returned"} {
		if _, ok := entry.Data[key]; ok {
			t.Fatalf("unexpected %s field", key)
		}
	}
}

func TestCardRequestMetricsNilLogger(t *testing.T) {
	var m *cardRequestMetrics
	m.Log(http.StatusOK, nil)
	newCardRequestMetrics(nil, RouteListCards).Log(http.StatusOK, nil)
}

func TestRouterLogsOneEntryPerRequest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.InfoLevel)
	r := NewRouter(&mockStore{cards: []domain.Card{{ID: "1"}, {ID: "2"}}}, logger)

	r.Route(context.Background(), Request{RouteKey: RouteListCards})
	r.Route(context.Background(), Request{RouteKey: "PATCH /cards"})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Data["cards_returned"] != 2 || entries[0].Data["status"] != http.StatusOK {
		t.Fatalf("unexpected list entry: %#v", entries[0].Data)
	}
	if entries[1].Data["status"] != http.StatusBadRequest || entries[1].Data["error"] != `Unsupported route: "PATCH /cards"` {
		t.Fatalf("unexpected unsupported entry: %#v", entries[1].Data)
	}
}
