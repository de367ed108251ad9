package lib

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

/*
	WatchList is the live set of validator public keys observed by the streaming driver.

	All mutation and the snapshot used to build an outbound watch request are mutually exclusive.
	Every successful mutation signals Changed() so the driver can re-send its watch request.
*/

// WatchList is a lock protected set of validator public keys
type WatchList struct {
	keys    mapset.Set    // hex encoded public keys
	misses  uint64        // total removals of absent keys
	changed chan struct{} // coalescing change notification
	log     LoggerI
	mu      sync.RWMutex
}

// NewWatchList() creates a watch-list seeded with the keys
func NewWatchList(log LoggerI, keys ...HexBytes) *WatchList {
	w := &WatchList{
		keys:    mapset.NewThreadUnsafeSet(),
		changed: make(chan struct{}, 1),
		log:     log,
	}
	for _, k := range keys {
		w.keys.Add(k.String())
	}
	return w
}

// Add() unions the keys into the set and returns the number that were not already present
func (w *WatchList) Add(keys ...HexBytes) (added int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, k := range keys {
		if w.keys.Add(k.String()) {
			added++
		}
	}
	if added != 0 {
		w.notify()
	}
	return
}

// Remove() subtracts the keys from the set
// An absent key is a non-fatal lookup-miss: it is logged, counted and returned, and the rest are still processed
func (w *WatchList) Remove(keys ...HexBytes) (removed int, misses []HexBytes) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, k := range keys {
		s := k.String()
		if !w.keys.Contains(s) {
			w.misses++
			misses = append(misses, k)
			w.log.Warnf("Failed to remove key %s: not found in the watch-list", s)
			continue
		}
		w.keys.Remove(s)
		removed++
	}
	if removed != 0 {
		w.notify()
	}
	return
}

// Replace() atomically swaps the entire set
func (w *WatchList) Replace(keys ...HexBytes) {
	next := mapset.NewThreadUnsafeSet()
	for _, k := range keys {
		next.Add(k.String())
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys = next
	w.notify()
}

// Count() returns the number of watched keys
func (w *WatchList) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keys.Cardinality()
}

// Misses() returns the total number of lookup-misses recorded by Remove()
func (w *WatchList) Misses() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.misses
}

// Contains() reports whether the key is watched
func (w *WatchList) Contains(key HexBytes) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keys.Contains(key.String())
}

// Snapshot() returns a sorted copy of the set taken at a single point in time
func (w *WatchList) Snapshot() []HexBytes {
	w.mu.RLock()
	items := w.keys.ToSlice()
	w.mu.RUnlock()
	list := make([]HexBytes, 0, len(items))
	for _, item := range items {
		// keys are only ever inserted from HexBytes.String()
		bz, _ := StringToBytes(item.(string))
		list = append(list, bz)
	}
	return SortHexBytes(list)
}

// Changed() fires (at most one pending signal) after any mutation
func (w *WatchList) Changed() <-chan struct{} { return w.changed }

// notify() performs a non-blocking send; must be called under lock
func (w *WatchList) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
