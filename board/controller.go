// Package board keeps the visible kanban board in step with the card store.
//
// Every gesture mutates the view first and then issues the matching remote
// write without waiting for it. Writes for one card run strictly in the order
// they were issued, and each card carries a Status so unconfirmed changes stay
// visible until Reconcile settles them.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
)

// Remote is the card store as seen by the board.
type Remote interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	PutCard(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id string) error
}

// CardState is a read-only copy of one card as the controller tracks it.
type CardState struct {
	Handle   Handle
	ID       string
	Title    string
	Category string
	Status   Status
}

type cardState struct {
	handle   Handle
	id       string
	title    string
	category string
	status   Status

	// revision counts upserts issued for this card; only the completion of
	// the latest one may settle the status.
	revision uint64
	deleting bool
	// failedDelete marks a Failed status caused by a rejected delete.
	failedDelete bool
}

func (s *cardState) card() domain.Card {
	return domain.Card{ID: s.id, Title: s.title, Category: s.category}
}

func (s *cardState) snapshot() CardState {
	return CardState{Handle: s.handle, ID: s.id, Title: s.title, Category: s.category, Status: s.status}
}

// Controller owns the board state. All methods are safe for concurrent use
// and none of them waits for a remote write.
type Controller struct {
	remote Remote
	view   View
	logger *log.Logger

	ctx       context.Context
	newID     func() string
	newHandle func() Handle

	mu    sync.Mutex
	cards map[Handle]*cardState
	byID  map[string]Handle

	writes *writeQueue
}

// Option customises a Controller.
type Option func(*Controller)

// WithContext sets the context remote writes run under.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithIDGenerator replaces domain.NewCardID as the source of new card ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a controller writing through remote and rendering into view.
func New(remote Remote, view View, logger *log.Logger, opts ...Option) *Controller {
	if remote == nil || view == nil {
		panic("board: remote and view are required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	c := &Controller{
		remote:    remote,
		view:      view,
		logger:    logger,
		ctx:       context.Background(),
		newID:     domain.NewCardID,
		newHandle: func() Handle { return Handle(uuid.NewString()) },
		cards:     make(map[Handle]*cardState),
		byID:      make(map[string]Handle),
		writes:    newWriteQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadAll fetches every stored card and mounts it into its column. Fetch
// failures and empty stores are only logged. Cards already on the board are
// refreshed in place.
func (c *Controller) LoadAll(ctx context.Context) {
	cards, err := c.remote.ListCards(ctx)
	if err != nil {
		c.logger.Errorf("load cards failed: %v", err)
		return
	}
	if len(cards) == 0 {
		c.logger.Info("no cards to load")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mounted := 0
	for _, card := range cards {
		if card.ID == "" {
			c.logger.Warn("skipping stored card without id")
			continue
		}
		if h, ok := c.byID[card.ID]; ok {
			if st := c.cards[h]; st.status == StatusSynced {
				c.applyRemote(st, card)
			}
			continue
		}
		if !c.view.HasColumn(card.Category) {
			c.logger.WithFields(log.Fields{
				"card_id":  card.ID,
				"category": card.Category,
			}).Warn("skipping card with unknown column")
			continue
		}

		st := &cardState{
			handle:   c.newHandle(),
			id:       card.ID,
			title:    card.Title,
			category: card.Category,
			status:   StatusSynced,
		}
		if err := c.view.MountCard(st.handle, st.category, st.title); err != nil {
			c.logger.Errorf("mount card failed, err: %v, card: %s", err, card.ID)
			continue
		}
		c.view.SetElementID(st.handle, ElementID(st.id))
		c.view.SetStatus(st.handle, st.status)
		c.cards[st.handle] = st
		c.byID[st.id] = st.handle
		mounted++
	}
	c.logger.Debugf("loaded %d of %d cards", mounted, len(cards))
}

// CreateDraft mounts an empty, focused card in the column of category. Nothing
// is written until the draft gets a title.
func (c *Controller) CreateDraft(category string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.view.HasColumn(category) {
		return "", fmt.Errorf("no column for category %q", category)
	}
	st := &cardState{handle: c.newHandle(), category: category, status: StatusDraft}
	if err := c.view.MountCard(st.handle, category, ""); err != nil {
		return "", err
	}
	c.cards[st.handle] = st
	c.view.SetStatus(st.handle, st.status)
	c.view.Focus(st.handle)
	return st.handle, nil
}

// CommitEdit applies an edited title. A non-empty title creates the card when
// it is a draft and updates it otherwise. An empty title removes the element
// without any remote call, even for a stored card; the stored record is left
// untouched in that case.
func (c *Controller) CommitEdit(h Handle, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.cards[h]
	if !ok {
		c.logger.Warnf("commit on unknown card element %s", h)
		return
	}
	if st.deleting {
		c.logger.Debugf("ignoring edit of card %s while it is being deleted", st.id)
		return
	}

	title = strings.TrimSpace(title)
	if title == "" {
		if st.id != "" {
			c.logger.WithField("card_id", st.id).Warn("card cleared locally, stored record kept")
		}
		c.forget(st)
		return
	}

	if st.id == "" {
		st.id = c.newID()
		c.byID[st.id] = h
		c.view.SetElementID(h, ElementID(st.id))
	}
	st.title = title
	c.view.SetTitle(h, title)
	c.upsert(st)
}

// MoveCard handles a drop. It is a no-op unless from and to are set and
// differ, the card exists and the target column exists. Only the category
// changes.
func (c *Controller) MoveCard(elementID, from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	id, ok := ParseElementID(elementID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.byID[id]
	if !ok {
		return
	}
	st := c.cards[h]
	if st.deleting || !c.view.HasColumn(to) {
		return
	}
	if st.category != from {
		c.logger.WithFields(log.Fields{
			"card_id": id,
			"from":    from,
			"current": st.category,
		}).Debug("drop origin differs from tracked category")
	}

	if err := c.view.MoveCard(h, to); err != nil {
		c.logger.Errorf("move card failed, err: %v, card: %s", err, id)
		return
	}
	st.category = to
	c.upsert(st)
}

// DeleteCard asks the store to delete the card and removes the element once
// the store confirms. A card without id is left alone; a rejected delete
// leaves the element in place with StatusFailed.
func (c *Controller) DeleteCard(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.cards[h]
	if !ok {
		c.logger.Warnf("delete on unknown card element %s", h)
		return
	}
	if st.id == "" {
		c.logger.Error("cannot delete card without id")
		return
	}
	if st.deleting {
		return
	}

	st.deleting = true
	c.setStatus(st, StatusPending)
	id := st.id
	c.writes.submit(id, func() {
		err := c.remote.DeleteCard(c.ctx, id)
		c.finishDelete(h, id, err)
	})
}

// DragStart marks every column other than the card's own as a drop target.
func (c *Controller) DragStart(elementID string) {
	id, ok := ParseElementID(elementID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.byID[id]
	if !ok {
		return
	}
	current := c.cards[h].category
	for _, category := range c.view.Columns() {
		if category != current {
			c.view.MarkDropTarget(category)
		}
	}
}

// DragEnd clears every drop target mark, whether or not a drop happened.
func (c *Controller) DragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ClearDropTargets()
}

// Wait blocks until every issued remote write has completed.
func (c *Controller) Wait() {
	c.writes.wait()
}

// Card returns the tracked state of the card behind h.
func (c *Controller) Card(h Handle) (CardState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.cards[h]
	if !ok {
		return CardState{}, false
	}
	return st.snapshot(), true
}

// HandleFor returns the element handle of a stored card id.
func (c *Controller) HandleFor(id string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.byID[id]
	return h, ok
}

// upsert issues a write of the card's current fields. Callers hold c.mu.
func (c *Controller) upsert(st *cardState) {
	st.revision++
	rev := st.revision
	card := st.card()
	h := st.handle
	st.failedDelete = false
	c.setStatus(st, StatusPending)

	c.writes.submit(card.ID, func() {
		err := c.remote.PutCard(c.ctx, card)
		c.finishUpsert(h, rev, card, err)
	})
}

func (c *Controller) finishUpsert(h Handle, rev uint64, card domain.Card, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.WithFields(log.Fields{
			"card_id":  card.ID,
			"revision": rev,
		}).Errorf("save card failed: %v", err)
	}
	st, ok := c.cards[h]
	if !ok || rev != st.revision || st.deleting {
		return
	}
	if err != nil {
		c.setStatus(st, StatusFailed)
		return
	}
	c.setStatus(st, StatusSynced)
}

func (c *Controller) finishDelete(h Handle, id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.cards[h]
	if !ok {
		return
	}
	if err != nil {
		c.logger.WithField("card_id", id).Errorf("delete card failed: %v", err)
		st.deleting = false
		st.failedDelete = true
		c.setStatus(st, StatusFailed)
		return
	}
	c.forget(st)
}

// applyRemote overwrites local fields with a stored record. Callers hold c.mu.
func (c *Controller) applyRemote(st *cardState, card domain.Card) {
	if card.Title != st.title {
		st.title = card.Title
		c.view.SetTitle(st.handle, card.Title)
	}
	if card.Category != st.category {
		if !c.view.HasColumn(card.Category) {
			c.logger.WithFields(log.Fields{
				"card_id":  card.ID,
				"category": card.Category,
			}).Warn("stored category has no column, keeping local one")
		} else if err := c.view.MoveCard(st.handle, card.Category); err != nil {
			c.logger.Errorf("move card failed, err: %v, card: %s", err, card.ID)
		} else {
			st.category = card.Category
		}
	}
	st.failedDelete = false
	c.setStatus(st, StatusSynced)
}

func (c *Controller) setStatus(st *cardState, status Status) {
	st.status = status
	c.view.SetStatus(st.handle, status)
}

// forget removes the element and all tracking for st. Callers hold c.mu.
func (c *Controller) forget(st *cardState) {
	c.view.RemoveCard(st.handle)
	delete(c.cards, st.handle)
	if st.id != "" && c.byID[st.id] == st.handle {
		delete(c.byID, st.id)
	}
}
