package alert

import (
	"context"
	"strings"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
)

const (
	StatusType           = "status_alert"
	OptionAlertStatuses  = "alert_statuses"
	DefaultAlertStatuses = "SLASHING,EXITING,EXITED"
)

var _ module.Subscriber = &StatusAlerter{}

// StatusAlerter raises an alert when a validator enters one of the configured statuses and clears it when it leaves
type StatusAlerter struct {
	name     string
	statuses map[lib.ValidatorStatus]struct{}
	state    *tracker
	log      lib.LoggerI
}

// StatusFactory() describes the status_alert module type
func StatusFactory() module.Factory {
	return module.Factory{
		Type: StatusType,
		Role: module.RoleSubscriber,
		Options: []module.ConfigOption{{
			Name:        OptionAlertStatuses,
			Type:        module.OptionString,
			Description: "comma separated validator statuses that raise an alert",
			Default:     DefaultAlertStatuses,
		}},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			statuses, err := ParseStatuses(opts.String(OptionAlertStatuses))
			if err != nil {
				return nil, module.ErrInvalidOption(name, OptionAlertStatuses, err)
			}
			return NewStatusAlerter(name, statuses, deps.Logger), nil
		},
	}
}

// ParseStatuses() parses a comma separated list of status names or numbers
func ParseStatuses(s string) ([]lib.ValidatorStatus, lib.ErrorI) {
	var statuses []lib.ValidatorStatus
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := lib.ParseValidatorStatus(part)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// NewStatusAlerter() creates the subscriber
func NewStatusAlerter(name string, statuses []lib.ValidatorStatus, log lib.LoggerI) *StatusAlerter {
	set := make(map[lib.ValidatorStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return &StatusAlerter{name: name, statuses: set, state: newTracker(), log: log}
}

func (s *StatusAlerter) Name() string { return s.name }

func (s *StatusAlerter) ConsumedKinds() lib.KindSet { return lib.NewKindSet(lib.KindStatusUpdate) }

// Consume() compares each status update against the alerting set
func (s *StatusAlerter) Consume(_ context.Context, batch *lib.Batch) (actions []lib.Action, err lib.ErrorI) {
	if batch.Validator == nil {
		return nil, module.ErrMissingIdentity(s.name)
	}
	for _, u := range batch.Updates {
		update, ok := u.(lib.StatusUpdate)
		if !ok {
			return nil, module.ErrUnhandledKind(s.name, u.Kind())
		}
		status := update.Status
		stale := s.state.apply(batch.Validator, batch.Timestamp, func(c *condition) {
			_, alerting := s.statuses[status]
			switch {
			case alerting && (!c.raised || c.value != uint64(status)):
				c.raised, c.value = true, uint64(status)
				actions = append(actions, lib.RaiseAlert{Alert: s.alert(batch, status)})
			case !alerting && c.raised:
				c.raised, c.value = false, 0
				actions = append(actions, lib.ClearAlert{Alert: s.alert(batch, status)})
			}
		})
		if stale {
			s.log.Debugf("Dropping stale status %s for validator %s", status, batch.Validator)
		}
	}
	return
}

// Raised() returns the number of validators with an open status alert
func (s *StatusAlerter) Raised() int { return s.state.raised() }

func (s *StatusAlerter) alert(batch *lib.Batch, status lib.ValidatorStatus) lib.Alert {
	value := uint64(status)
	return lib.Alert{
		Validator: *batch.Validator,
		Type:      lib.AlertStatus,
		Value:     &value,
		Detail:    status.String(),
		Timestamp: batch.Timestamp,
	}
}
