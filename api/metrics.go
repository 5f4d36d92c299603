package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type cardRequestMetrics struct {
	logger        *log.Logger
	route         string
	start         time.Time
	storeDuration time.Duration
	cardsReturned int
	listed        bool
}

func newCardRequestMetrics(logger *log.Logger, route string) *cardRequestMetrics {
	return &cardRequestMetrics{
		logger: logger,
		route:  route,
		start:  time.Now(),
	}
}

func (m *cardRequestMetrics) ObserveStore(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.storeDuration += duration
}

func (m *cardRequestMetrics) SetCardsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.cardsReturned = count
	m.listed = true
}

func (m *cardRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.listed {
		fields["cards_returned"] = m.cardsReturned
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("cards.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
