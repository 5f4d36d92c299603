package domain

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastCardID int64

// NewCardID returns a card id derived from the current time in milliseconds.
// Ids are strictly increasing within a process, so two cards created in the
// same millisecond still get distinct keys.
func NewCardID() string {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastCardID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastCardID, last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}
