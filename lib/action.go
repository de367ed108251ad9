package lib

// Action is produced by a Subscriber from one or more Updates and consumed by Plugins
type Action interface {
	Kind() Kind
	// Validator() is the identity the action was derived from; nil for command-originated actions
	Validator() *ValidatorIdentity
}

var (
	_ Action = RaiseAlert{}
	_ Action = ClearAlert{}
	_ Action = RaiseUpdateKeys{}
)

// AlertType names the condition an alert reports
type AlertType string

const (
	AlertStatus     AlertType = "validator_status"
	AlertLowBalance AlertType = "low_balance"
)

// Alert describes a condition observed for a validator
type Alert struct {
	Validator ValidatorIdentity `json:"validator"`
	Type      AlertType         `json:"event"`
	Value     *uint64           `json:"value,omitempty"` // optional numeric payload (ex. the balance)
	Detail    string            `json:"detail,omitempty"`
	Timestamp *ChainTimestamp   `json:"timestamp,omitempty"`
}

// Fields() flattens the alert into the event record written by sinks
func (a Alert) Fields() map[string]any {
	m := map[string]any{
		"event":  string(a.Type),
		"pubkey": a.Validator.PublicKey.String(),
		"idx":    a.Validator.Index,
		"value":  nil,
	}
	if a.Value != nil {
		m["value"] = *a.Value
	}
	if a.Detail != "" {
		m["detail"] = a.Detail
	}
	if a.Timestamp != nil {
		m["epoch"] = a.Timestamp.Epoch
	}
	return m
}

// RaiseAlert signals that a condition started
type RaiseAlert struct {
	Alert Alert `json:"alert"`
}

func (RaiseAlert) Kind() Kind                      { return KindRaiseAlert }
func (a RaiseAlert) Validator() *ValidatorIdentity { return &a.Alert.Validator }

// ClearAlert signals that a previously raised condition ended
type ClearAlert struct {
	Alert Alert `json:"alert"`
}

func (ClearAlert) Kind() Kind                      { return KindClearAlert }
func (a ClearAlert) Validator() *ValidatorIdentity { return &a.Alert.Validator }

// RaiseUpdateKeys forwards a database request to persistence plugins
type RaiseUpdateKeys struct {
	Update DatabaseUpdate `json:"update"`
}

func (RaiseUpdateKeys) Kind() Kind                    { return KindRaiseUpdateKeys }
func (RaiseUpdateKeys) Validator() *ValidatorIdentity { return nil }

// ActionKinds() returns the set of kinds present in the list
func ActionKinds(actions []Action) (s KindSet) {
	for _, a := range actions {
		s |= NewKindSet(a.Kind())
	}
	return
}

// FilterActions() returns a new slice with the actions whose kind is in the set, order preserved
func FilterActions(actions []Action, kinds KindSet) (filtered []Action) {
	for _, a := range actions {
		if kinds.Has(a.Kind()) {
			filtered = append(filtered, a)
		}
	}
	return
}

// Result is the opaque output of a Plugin; the dispatcher never interprets it
type Result interface{}

// CountResult is the number of records or messages a plugin affected
type CountResult struct {
	Request RequestType `json:"request,omitempty"`
	Count   int         `json:"count"`
}

// KeysResult is a list of validator keys returned by a query
type KeysResult struct {
	Keys []HexBytes `json:"validatorKeys"`
}
