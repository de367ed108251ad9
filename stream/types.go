package stream

import "github.com/canopy-network/spectroscope/lib"

// ActionSetKeys asks the source to stream exactly the listed validators
const ActionSetKeys = "SET_KEYS"

// ValidatorInfo is one validator state message received from the source
type ValidatorInfo struct {
	PublicKey        lib.HexBytes        `json:"publicKey"`
	Index            uint64              `json:"index"`
	Status           lib.ValidatorStatus `json:"status"`
	Balance          uint64              `json:"balance"`
	EffectiveBalance uint64              `json:"effectiveBalance"`
	Epoch            uint64              `json:"epoch"`
}

// WatchRequest replaces the set of validators streamed by the source
type WatchRequest struct {
	Action     string         `json:"action"`
	PublicKeys []lib.HexBytes `json:"publicKeys"`
}

// NewWatchRequest() builds the request for a watch-list snapshot
func NewWatchRequest(keys []lib.HexBytes) WatchRequest {
	if keys == nil {
		keys = []lib.HexBytes{}
	}
	return WatchRequest{Action: ActionSetKeys, PublicKeys: keys}
}

// BuildBatch() converts a message into a batch with one status and one balance update
// The source reports epochs only so the slot is always zero
func BuildBatch(msg *ValidatorInfo) *lib.Batch {
	return lib.NewBatch(
		&lib.ValidatorIdentity{PublicKey: msg.PublicKey, Index: msg.Index},
		&lib.ChainTimestamp{Epoch: msg.Epoch, Slot: 0},
		lib.StatusUpdate{Status: msg.Status},
		lib.BalanceUpdate{Balance: msg.Balance, EffectiveBalance: msg.EffectiveBalance},
	)
}
