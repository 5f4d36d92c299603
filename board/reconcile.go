package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
)

// ReconcileResult counts what a Reconcile pass did with failed cards.
type ReconcileResult struct {
	// Confirmed cards turned out to match the store.
	Confirmed int
	// Reverted cards took the stored values back.
	Reverted int
	// Removed cards had a failed delete whose record is gone.
	Removed int
	// Flagged cards have no stored record and stay StatusFailed.
	Flagged int
}

// Reconcile compares every StatusFailed card with a fresh snapshot of the
// store. Cards with writes in flight are left alone.
func (c *Controller) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	cards, err := c.remote.ListCards(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch snapshot: %w", err)
	}
	stored := make(map[string]domain.Card, len(cards))
	for _, card := range cards {
		stored[card.ID] = card
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.cards {
		if st.status != StatusFailed || st.id == "" {
			continue
		}
		record, found := stored[st.id]
		switch {
		case st.failedDelete && !found:
			c.forget(st)
			res.Removed++
		case !found:
			res.Flagged++
		case record == st.card():
			st.failedDelete = false
			c.setStatus(st, StatusSynced)
			res.Confirmed++
		default:
			c.applyRemote(st, record)
			res.Reverted++
		}
	}

	if res != (ReconcileResult{}) {
		c.logger.WithFields(log.Fields{
			"confirmed": res.Confirmed,
			"reverted":  res.Reverted,
			"removed":   res.Removed,
			"flagged":   res.Flagged,
		}).Info("board reconciled")
	}
	return res, nil
}
