package alert

import (
	"context"
	"fmt"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
)

const (
	BalanceType      = "balance_alert"
	OptionThreshold  = "threshold"
	OptionEffective  = "use_effective"
	DefaultThreshold = int64(31_000_000_000) // gwei
)

var _ module.Subscriber = &BalanceAlerter{}

// BalanceAlerter raises an alert when a validator balance drops below the threshold and clears it on recovery
type BalanceAlerter struct {
	name      string
	threshold uint64
	effective bool
	state     *tracker
	log       lib.LoggerI
}

// BalanceFactory() describes the balance_alert module type
func BalanceFactory() module.Factory {
	return module.Factory{
		Type: BalanceType,
		Role: module.RoleSubscriber,
		Options: []module.ConfigOption{
			{Name: OptionThreshold, Type: module.OptionInt, Description: "balance in gwei below which an alert is raised", Default: DefaultThreshold},
			{Name: OptionEffective, Type: module.OptionBool, Description: "compare the effective balance instead of the balance", Default: false},
		},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			threshold := opts.Int(OptionThreshold)
			if threshold <= 0 {
				return nil, module.ErrInvalidOption(name, OptionThreshold, fmt.Errorf("must be positive, got %d", threshold))
			}
			return NewBalanceAlerter(name, uint64(threshold), opts.Bool(OptionEffective), deps.Logger), nil
		},
	}
}

// NewBalanceAlerter() creates the subscriber
func NewBalanceAlerter(name string, threshold uint64, effective bool, log lib.LoggerI) *BalanceAlerter {
	return &BalanceAlerter{name: name, threshold: threshold, effective: effective, state: newTracker(), log: log}
}

func (b *BalanceAlerter) Name() string { return b.name }

func (b *BalanceAlerter) ConsumedKinds() lib.KindSet { return lib.NewKindSet(lib.KindBalanceUpdate) }

// Consume() compares each balance update against the threshold
func (b *BalanceAlerter) Consume(_ context.Context, batch *lib.Batch) (actions []lib.Action, err lib.ErrorI) {
	if batch.Validator == nil {
		return nil, module.ErrMissingIdentity(b.name)
	}
	for _, u := range batch.Updates {
		update, ok := u.(lib.BalanceUpdate)
		if !ok {
			return nil, module.ErrUnhandledKind(b.name, u.Kind())
		}
		balance := update.Balance
		if b.effective {
			balance = update.EffectiveBalance
		}
		stale := b.state.apply(batch.Validator, batch.Timestamp, func(c *condition) {
			low := balance < b.threshold
			switch {
			case low && !c.raised:
				c.raised, c.value = true, balance
				actions = append(actions, lib.RaiseAlert{Alert: b.alert(batch, balance)})
			case !low && c.raised:
				c.raised, c.value = false, 0
				actions = append(actions, lib.ClearAlert{Alert: b.alert(batch, balance)})
			}
		})
		if stale {
			b.log.Debugf("Dropping stale balance %d for validator %s", balance, batch.Validator)
		}
	}
	return
}

// Raised() returns the number of validators with an open balance alert
func (b *BalanceAlerter) Raised() int { return b.state.raised() }

func (b *BalanceAlerter) alert(batch *lib.Batch, balance uint64) lib.Alert {
	return lib.Alert{
		Validator: *batch.Validator,
		Type:      lib.AlertLowBalance,
		Value:     &balance,
		Detail:    fmt.Sprintf("threshold %d", b.threshold),
		Timestamp: batch.Timestamp,
	}
}
