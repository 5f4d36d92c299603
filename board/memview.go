package board

import (
	"fmt"
	"slices"
	"sync"
)

// MemoryCard is one card element held by a MemoryView.
type MemoryCard struct {
	Handle    Handle
	ElementID string
	Title     string
	Category  string
	Status    Status
}

var _ View = (*MemoryView)(nil)

// MemoryView is a View kept entirely in memory, for tests and headless use.
type MemoryView struct {
	mu      sync.Mutex
	columns []string
	order   map[string][]Handle
	cards   map[Handle]*MemoryCard
	targets map[string]bool
	focused Handle
}

// NewMemoryView creates a board with one column per category, in order.
func NewMemoryView(categories ...string) *MemoryView {
	v := &MemoryView{
		columns: slices.Clone(categories),
		order:   make(map[string][]Handle, len(categories)),
		cards:   make(map[Handle]*MemoryCard),
		targets: make(map[string]bool),
	}
	for _, category := range categories {
		v.order[category] = nil
	}
	return v
}

func (v *MemoryView) Columns() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.columns)
}

func (v *MemoryView) HasColumn(category string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.order[category]
	return ok
}

func (v *MemoryView) MountCard(h Handle, category, title string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.order[category]; !ok {
		return fmt.Errorf("no column for category %q", category)
	}
	if _, ok := v.cards[h]; ok {
		return fmt.Errorf("card element %s already mounted", h)
	}
	v.cards[h] = &MemoryCard{Handle: h, Title: title, Category: category}
	v.order[category] = append(v.order[category], h)
	return nil
}

func (v *MemoryView) SetElementID(h Handle, elementID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cards[h]; ok {
		c.ElementID = elementID
	}
}

func (v *MemoryView) MoveCard(h Handle, category string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cards[h]
	if !ok {
		return fmt.Errorf("card element %s not mounted", h)
	}
	if _, ok := v.order[category]; !ok {
		return fmt.Errorf("no column for category %q", category)
	}
	v.detach(c)
	c.Category = category
	v.order[category] = append(v.order[category], h)
	return nil
}

func (v *MemoryView) SetTitle(h Handle, title string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cards[h]; ok {
		c.Title = title
	}
}

func (v *MemoryView) RemoveCard(h Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cards[h]
	if !ok {
		return
	}
	v.detach(c)
	delete(v.cards, h)
	if v.focused == h {
		v.focused = ""
	}
}

func (v *MemoryView) Focus(h Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.cards[h]; ok {
		v.focused = h
	}
}

func (v *MemoryView) SetStatus(h Handle, status Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cards[h]; ok {
		c.Status = status
	}
}

func (v *MemoryView) MarkDropTarget(category string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.order[category]; ok {
		v.targets[category] = true
	}
}

func (v *MemoryView) ClearDropTargets() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.targets)
}

// Card returns a copy of the element behind h.
func (v *MemoryView) Card(h Handle) (MemoryCard, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cards[h]
	if !ok {
		return MemoryCard{}, false
	}
	return *c, true
}

// Column returns the elements of a column in display order.
func (v *MemoryView) Column(category string) []MemoryCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]MemoryCard, 0, len(v.order[category]))
	for _, h := range v.order[category] {
		out = append(out, *v.cards[h])
	}
	return out
}

// Len returns the number of mounted elements.
func (v *MemoryView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cards)
}

// DropTargets returns the marked columns in board order.
func (v *MemoryView) DropTargets() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, category := range v.columns {
		if v.targets[category] {
			out = append(out, category)
		}
	}
	return out
}

// Focused returns the handle of the focused element, if any.
func (v *MemoryView) Focused() Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focused
}

func (v *MemoryView) detach(c *MemoryCard) {
	hs := v.order[c.Category]
	if i := slices.Index(hs, c.Handle); i >= 0 {
		v.order[c.Category] = slices.Delete(hs, i, i+1)
	}
}
