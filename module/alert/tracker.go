// Package alert implements the subscribers that raise and clear alerts from streamed validator state.
package alert

import (
	"sync"

	"github.com/canopy-network/spectroscope/lib"
)

// condition is the alert state of one validator
type condition struct {
	raised bool
	value  uint64              // the value the alert was raised with
	last   *lib.ChainTimestamp // the newest timestamp applied
}

// tracker remembers the alert state of every validator seen by a subscriber
type tracker struct {
	conditions map[string]*condition
	mu         sync.Mutex
}

func newTracker() *tracker {
	return &tracker{conditions: make(map[string]*condition)}
}

// apply() runs fn on the validator's condition under lock
// updates older than the newest one already applied are dropped; stream delivery is not ordered
func (t *tracker) apply(id *lib.ValidatorIdentity, ts *lib.ChainTimestamp, fn func(c *condition)) (stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.PublicKey.String()
	c, found := t.conditions[key]
	if !found {
		c = new(condition)
		t.conditions[key] = c
	}
	if ts.Before(c.last) {
		return true
	}
	if ts != nil {
		c.last = &lib.ChainTimestamp{Epoch: ts.Epoch, Slot: ts.Slot}
	}
	fn(c)
	return false
}

// raised() returns the number of validators currently alerting
func (t *tracker) raised() (n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.conditions {
		if c.raised {
			n++
		}
	}
	return
}
