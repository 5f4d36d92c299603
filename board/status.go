package board

// Status tracks how far a card's local state has reached the store.
type Status int

const (
	// StatusDraft cards exist only on the board and have no id.
	StatusDraft Status = iota
	// StatusPending cards have a write in flight.
	StatusPending
	// StatusSynced cards match the last write the store confirmed.
	StatusSynced
	// StatusFailed cards have a local change the store rejected or never saw.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPending:
		return "pending"
	case StatusSynced:
		return "synced"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
