// Package alertmetrics exposes open validator alerts as Prometheus gauges.
package alertmetrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Type            = "alertmetrics"
	OptionNamespace = "namespace"
)

var _ module.Plugin = &Plugin{}

// Plugin sets a per validator gauge to 1 on raise and 0 on clear and counts every transition
type Plugin struct {
	name        string
	active      *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	log         lib.LoggerI
}

// Factory() describes the alertmetrics module type; metrics are served by the process metrics server
func Factory() module.Factory {
	return module.Factory{
		Type: Type,
		Role: module.RolePlugin,
		Options: []module.ConfigOption{{
			Name:        OptionNamespace,
			Type:        module.OptionString,
			Description: "prometheus namespace of the alert metrics",
			Default:     "spectroscope",
		}},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			return New(name, opts.String(OptionNamespace), prometheus.DefaultRegisterer, deps.Logger)
		},
	}
}

// New() creates the plugin and registers its collectors
// Collectors already registered by an earlier instance with the same namespace are shared
func New(name, namespace string, reg prometheus.Registerer, log lib.LoggerI) (*Plugin, lib.ErrorI) {
	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validator_alert",
		Help:      "Open validator alerts (1 raised, 0 cleared)",
	}, []string{"event", "pubkey", "index"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validator_alert_transitions_total",
		Help:      "Alert raise and clear transitions by event",
	}, []string{"event", "action"})
	var err error
	if active, err = register(reg, active); err != nil {
		return nil, module.ErrConnect(name, err)
	}
	if transitions, err = register(reg, transitions); err != nil {
		return nil, module.ErrConnect(name, err)
	}
	return &Plugin{name: name, active: active, transitions: transitions, log: log}, nil
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) ConsumedKinds() lib.KindSet {
	return lib.NewKindSet(lib.KindRaiseAlert, lib.KindClearAlert)
}

// Consume() applies every alert transition to the gauges
func (p *Plugin) Consume(_ context.Context, actions []lib.Action) ([]lib.Result, lib.ErrorI) {
	for _, a := range actions {
		switch x := a.(type) {
		case lib.RaiseAlert:
			p.gauge(x.Alert).Set(1)
			p.transitions.WithLabelValues(string(x.Alert.Type), "raise").Inc()
		case lib.ClearAlert:
			p.gauge(x.Alert).Set(0)
			p.transitions.WithLabelValues(string(x.Alert.Type), "clear").Inc()
		default:
			return nil, module.ErrUnhandledKind(p.name, a.Kind())
		}
	}
	return []lib.Result{lib.CountResult{Count: len(actions)}}, nil
}

func (p *Plugin) gauge(a lib.Alert) prometheus.Gauge {
	return p.active.WithLabelValues(string(a.Type), a.Validator.PublicKey.String(), strconv.FormatUint(a.Validator.Index, 10))
}

// register() registers the collector or returns the identical one already registered
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
