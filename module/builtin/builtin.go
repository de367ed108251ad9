// Package builtin assembles a registry holding every module type shipped with the monitor.
package builtin

import (
	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/canopy-network/spectroscope/module/alert"
	"github.com/canopy-network/spectroscope/module/alertlog"
	"github.com/canopy-network/spectroscope/module/alertmetrics"
	"github.com/canopy-network/spectroscope/module/badgerdb"
	"github.com/canopy-network/spectroscope/module/dbupdate"
	"github.com/canopy-network/spectroscope/module/kafka"
)

// Factories() lists the shipped module types
func Factories() []module.Factory {
	return []module.Factory{
		dbupdate.Factory(),
		alert.StatusFactory(),
		alert.BalanceFactory(),
		badgerdb.Factory(),
		alertlog.Factory(),
		alertmetrics.Factory(),
		kafka.Factory(),
	}
}

// NewRegistry() returns a registry with every shipped module type added
func NewRegistry(deps module.Deps) (*module.Registry, lib.ErrorI) {
	r := module.NewRegistry(deps)
	for _, f := range Factories() {
		if err := r.Add(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
