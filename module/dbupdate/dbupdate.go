// Package dbupdate forwards command-originated database requests to the persistence plugins.
package dbupdate

import (
	"context"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
)

// Type is the module type referenced by configuration
const Type = "db_update"

var _ module.Subscriber = &Subscriber{}

// Subscriber turns every DatabaseUpdate into a RaiseUpdateKeys action
type Subscriber struct {
	name string
	log  lib.LoggerI
}

// Factory() describes the db_update module type
func Factory() module.Factory {
	return module.Factory{
		Type: Type,
		Role: module.RoleSubscriber,
		New: func(name string, _ module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			return New(name, deps.Logger), nil
		},
	}
}

// New() creates the subscriber
func New(name string, log lib.LoggerI) *Subscriber {
	return &Subscriber{name: name, log: log}
}

func (s *Subscriber) Name() string { return s.name }

func (s *Subscriber) ConsumedKinds() lib.KindSet { return lib.NewKindSet(lib.KindDatabaseUpdate) }

// Consume() emits one action per database update, in batch order
func (s *Subscriber) Consume(_ context.Context, batch *lib.Batch) (actions []lib.Action, err lib.ErrorI) {
	for _, u := range batch.Updates {
		update, ok := u.(lib.DatabaseUpdate)
		if !ok {
			return nil, module.ErrUnhandledKind(s.name, u.Kind())
		}
		s.log.Debugf("Forwarding %s request for %d keys", update.RequestType, len(update.ValidatorKeys))
		actions = append(actions, lib.RaiseUpdateKeys{Update: update})
	}
	return
}
