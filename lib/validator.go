package lib

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

/* This file defines the value types that identify a validator and order the state observed for it */

// ValidatorIdentity uniquely identifies a validator across updates
type ValidatorIdentity struct {
	PublicKey HexBytes `json:"pubkey"` // the BLS public key of the validator
	Index     uint64   `json:"idx"`    // the index in the beacon state registry
}

// String() returns a short human readable form of the identity
func (v *ValidatorIdentity) String() string {
	if v == nil {
		return "<none>"
	}
	return fmt.Sprintf("%d/%s", v.Index, BytesToTruncatedString(v.PublicKey))
}

// ChainTimestamp orders updates; delivery may be out of order
type ChainTimestamp struct {
	Epoch uint64 `json:"epoch"`
	Slot  uint64 `json:"slot"`
}

// Before() orders timestamps by epoch then slot; a nil timestamp is never before anything
func (t *ChainTimestamp) Before(o *ChainTimestamp) bool {
	if t == nil || o == nil {
		return false
	}
	if t.Epoch != o.Epoch {
		return t.Epoch < o.Epoch
	}
	return t.Slot < o.Slot
}

// ValidatorStatus mirrors the beacon chain validator status enum
type ValidatorStatus int32

const (
	StatusUnknown            ValidatorStatus = 0
	StatusDeposited          ValidatorStatus = 1
	StatusPending            ValidatorStatus = 2
	StatusActive             ValidatorStatus = 3
	StatusExiting            ValidatorStatus = 4
	StatusSlashing           ValidatorStatus = 5
	StatusExited             ValidatorStatus = 6
	StatusInvalid            ValidatorStatus = 7
	StatusPartiallyDeposited ValidatorStatus = 8
)

var statusNames = map[ValidatorStatus]string{
	StatusUnknown:            "UNKNOWN_STATUS",
	StatusDeposited:          "DEPOSITED",
	StatusPending:            "PENDING",
	StatusActive:             "ACTIVE",
	StatusExiting:            "EXITING",
	StatusSlashing:           "SLASHING",
	StatusExited:             "EXITED",
	StatusInvalid:            "INVALID",
	StatusPartiallyDeposited: "PARTIALLY_DEPOSITED",
}

// String() returns the canonical name of the status
func (s ValidatorStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "STATUS_" + strconv.Itoa(int(s))
}

// Valid() reports whether the status is one of the known enum values
func (s ValidatorStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// UnmarshalJSON() accepts the numeric value or the canonical name
func (s *ValidatorStatus) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var str string
	switch x := v.(type) {
	case float64:
		str = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		str = x
	default:
		return ErrUnknownStatus(string(b))
	}
	status, err := ParseValidatorStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseValidatorStatus() accepts either the canonical name (case insensitive) or the numeric value
func ParseValidatorStatus(s string) (ValidatorStatus, ErrorI) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if status := ValidatorStatus(n); status.Valid() {
			return status, nil
		}
		return 0, ErrUnknownStatus(s)
	}
	for status, name := range statusNames {
		if strings.EqualFold(name, s) {
			return status, nil
		}
	}
	return 0, ErrUnknownStatus(s)
}

// RequestType is the kind of discrete command received by the command driver
type RequestType int32

const (
	RequestAdd RequestType = 1
	RequestUp  RequestType = 2
	RequestDel RequestType = 3
	RequestGet RequestType = 4
)

// String() returns the lowercase command name
func (r RequestType) String() string {
	switch r {
	case RequestAdd:
		return "add"
	case RequestUp:
		return "up"
	case RequestDel:
		return "del"
	case RequestGet:
		return "get"
	default:
		return "request_" + strconv.Itoa(int(r))
	}
}

// Mutating() is true for every request kind that changes the persisted set
func (r RequestType) Mutating() bool { return r == RequestAdd || r == RequestUp || r == RequestDel }

// ParseRequestType() converts a command name into a RequestType
func ParseRequestType(s string) (RequestType, ErrorI) {
	for _, r := range []RequestType{RequestAdd, RequestUp, RequestDel, RequestGet} {
		if strings.EqualFold(r.String(), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return 0, ErrUnknownRequestType(s)
}
