package lib

import (
	"strings"
)

/*
	This file implements the tagged variants that flow through the dispatch pipeline.

	Every Update and Action variant declares a Kind. Modules declare the KindSet they consume and
	the dispatcher routes by set membership, so adding a new variant only requires a new Kind.
*/

// Kind tags a concrete Update or Action variant
type Kind uint8

const (
	KindStatusUpdate Kind = iota + 1
	KindBalanceUpdate
	KindDatabaseUpdate
	KindRaiseAlert
	KindClearAlert
	KindRaiseUpdateKeys

	numKinds = int(KindRaiseUpdateKeys) // highest defined kind
)

// String() returns the variant name of the kind
func (k Kind) String() string {
	switch k {
	case KindStatusUpdate:
		return "StatusUpdate"
	case KindBalanceUpdate:
		return "BalanceUpdate"
	case KindDatabaseUpdate:
		return "DatabaseUpdate"
	case KindRaiseAlert:
		return "RaiseAlert"
	case KindClearAlert:
		return "ClearAlert"
	case KindRaiseUpdateKeys:
		return "RaiseUpdateKeys"
	default:
		return "UnknownKind"
	}
}

// KindSet is an immutable set of kinds represented as a bitmask
type KindSet uint32

// NewKindSet() builds a set from the listed kinds
func NewKindSet(kinds ...Kind) (s KindSet) {
	for _, k := range kinds {
		s |= 1 << k
	}
	return
}

// Has() reports set membership
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

// Intersects() reports whether the two sets share at least one kind
func (s KindSet) Intersects(o KindSet) bool { return s&o != 0 }

// Empty() is true when no kind is in the set
func (s KindSet) Empty() bool { return s == 0 }

// Kinds() lists the members in enum order
func (s KindSet) Kinds() (kinds []Kind) {
	for k := Kind(1); int(k) <= numKinds; k++ {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return
}

// String() returns the members as a comma separated list
func (s KindSet) String() string {
	var names []string
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Update is a raw observed state change for a validator
type Update interface {
	Kind() Kind
}

var (
	_ Update = StatusUpdate{}
	_ Update = BalanceUpdate{}
	_ Update = DatabaseUpdate{}
)

// StatusUpdate carries the lifecycle status of a validator
type StatusUpdate struct {
	Status ValidatorStatus `json:"status"`
}

func (StatusUpdate) Kind() Kind { return KindStatusUpdate }

// BalanceUpdate carries the balances of a validator, in gwei
type BalanceUpdate struct {
	Balance          uint64 `json:"balance"`
	EffectiveBalance uint64 `json:"effectiveBalance"`
}

func (BalanceUpdate) Kind() Kind { return KindBalanceUpdate }

// DatabaseUpdate is a command-originated request to change or query the persisted validator set
type DatabaseUpdate struct {
	RequestType   RequestType     `json:"updateType"`
	Status        ValidatorStatus `json:"status"`
	ValidatorKeys []HexBytes      `json:"validatorKeys"`
}

func (DatabaseUpdate) Kind() Kind { return KindDatabaseUpdate }

// Batch is a correlated group of updates dispatched together
// Validator and Timestamp are nil for command-originated batches
type Batch struct {
	Validator *ValidatorIdentity `json:"validator,omitempty"`
	Timestamp *ChainTimestamp    `json:"timestamp,omitempty"`
	Updates   []Update           `json:"updates"`
}

// NewBatch() constructs a batch; the update slice is copied so later caller mutation can't leak in
func NewBatch(validator *ValidatorIdentity, timestamp *ChainTimestamp, updates ...Update) *Batch {
	return &Batch{
		Validator: validator,
		Timestamp: timestamp,
		Updates:   append([]Update(nil), updates...),
	}
}

// Kinds() returns the set of kinds present in the batch
func (b *Batch) Kinds() (s KindSet) {
	if b == nil {
		return
	}
	for _, u := range b.Updates {
		s |= NewKindSet(u.Kind())
	}
	return
}

// Filter() returns a new batch with only the updates whose kind is in the set, order preserved
func (b *Batch) Filter(kinds KindSet) *Batch {
	if b == nil {
		return nil
	}
	filtered := &Batch{Validator: b.Validator, Timestamp: b.Timestamp}
	for _, u := range b.Updates {
		if kinds.Has(u.Kind()) {
			filtered.Updates = append(filtered.Updates, u)
		}
	}
	return filtered
}

// Empty() is true for a batch without updates
func (b *Batch) Empty() bool { return b == nil || len(b.Updates) == 0 }
