package rpc

import "github.com/canopy-network/spectroscope/lib"

// NodesRequest is the body of every nodes command
type NodesRequest struct {
	ValidatorKeys []lib.HexBytes `json:"validatorKeys"`
	// Status is required by 'up' and ignored by the other commands
	Status *lib.ValidatorStatus `json:"status,omitempty"`
}

// NodesResponse is the result of a mutating command
type NodesResponse struct {
	Status int `json:"status"`
	Count  int `json:"count"`
}

// KeysResponse is the result of a get command
type KeysResponse struct {
	ValidatorKeys []lib.HexBytes `json:"validatorKeys"`
}

// WatchListResponse describes the validators currently streamed
type WatchListResponse struct {
	Count         int            `json:"count"`
	Misses        uint64         `json:"misses"`
	ValidatorKeys []lib.HexBytes `json:"validatorKeys"`
}
