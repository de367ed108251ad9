// Package alertlog writes raised and cleared alerts to the process log.
package alertlog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
)

const (
	Type        = "alert_log"
	OptionLevel = "level"
)

var _ module.Plugin = &Plugin{}

// Plugin logs every alert action it receives
type Plugin struct {
	name  string
	level string
	log   lib.LoggerI
}

// Factory() describes the alert_log module type
func Factory() module.Factory {
	return module.Factory{
		Type: Type,
		Role: module.RolePlugin,
		Options: []module.ConfigOption{{
			Name:        OptionLevel,
			Type:        module.OptionString,
			Description: "log level of raised alerts: debug, info, warn or error",
			Default:     "warn",
		}},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			level := strings.ToLower(opts.String(OptionLevel))
			switch level {
			case "debug", "info", "warn", "error":
			default:
				return nil, module.ErrInvalidOption(name, OptionLevel, fmt.Errorf("unknown level %q", level))
			}
			return New(name, level, deps.Logger), nil
		},
	}
}

// New() creates the plugin
func New(name, level string, log lib.LoggerI) *Plugin {
	return &Plugin{name: name, level: level, log: log}
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) ConsumedKinds() lib.KindSet {
	return lib.NewKindSet(lib.KindRaiseAlert, lib.KindClearAlert)
}

// Consume() logs raised alerts at the configured level and cleared alerts at info
func (p *Plugin) Consume(_ context.Context, actions []lib.Action) ([]lib.Result, lib.ErrorI) {
	for _, a := range actions {
		switch x := a.(type) {
		case lib.RaiseAlert:
			p.logAt(p.level, "RAISE "+Format(x.Alert))
		case lib.ClearAlert:
			p.logAt("info", "CLEAR "+Format(x.Alert))
		default:
			return nil, module.ErrUnhandledKind(p.name, a.Kind())
		}
	}
	return []lib.Result{lib.CountResult{Count: len(actions)}}, nil
}

func (p *Plugin) logAt(level, msg string) {
	switch level {
	case "debug":
		p.log.Debug(msg)
	case "info":
		p.log.Info(msg)
	case "error":
		p.log.Error(msg)
	default:
		p.log.Warn(msg)
	}
}

// Format() renders the alert fields as sorted key=value pairs
func Format(a lib.Alert) string {
	fields := a.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			v = "none"
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
