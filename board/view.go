package board

import (
	"strings"
)

// ElementIDPrefix is prepended to a card id to form its element id.
const ElementIDPrefix = "card-id-"

// ElementID returns the element id for a stored card id.
func ElementID(cardID string) string {
	return ElementIDPrefix + cardID
}

// ParseElementID extracts the card id from an element id. It reports false
// for drafts and for ids without the prefix.
func ParseElementID(elementID string) (string, bool) {
	id, ok := strings.CutPrefix(elementID, ElementIDPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Handle identifies a card element for its whole lifetime, including the
// draft phase before it has a card id.
type Handle string

// View is the rendering surface the controller drives. Implementations only
// mirror what they are told; all decisions are taken by the controller.
type View interface {
	// Columns lists the category of every column on the board.
	Columns() []string
	HasColumn(category string) bool

	// MountCard appends a new card element to the column of category.
	MountCard(h Handle, category, title string) error
	SetElementID(h Handle, elementID string)
	// MoveCard reparents the element into the column of category.
	MoveCard(h Handle, category string) error
	SetTitle(h Handle, title string)
	RemoveCard(h Handle)
	Focus(h Handle)
	SetStatus(h Handle, status Status)

	MarkDropTarget(category string)
	ClearDropTargets()
}
