package module

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/canopy-network/spectroscope/lib"
)

/*
	The Registry holds the factories of every known module type and builds named instances from configuration.

	Each factory declares a Role; after construction the instance is checked against the interface of that role,
	and an instance that does not satisfy it is rejected. Nothing is classified by inspecting concrete types.
*/

// Registry maps module types to their factories
type Registry struct {
	factories map[string]Factory
	deps      Deps
	log       lib.LoggerI
	mu        sync.RWMutex
}

// NewRegistry() creates an empty registry; deps are handed to every constructor
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = lib.NewNullLogger()
	}
	return &Registry{
		factories: make(map[string]Factory),
		deps:      deps,
		log:       deps.Logger,
	}
}

// Add() makes a module type available for registration
func (r *Registry) Add(f Factory) lib.ErrorI {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.factories[f.Type]; found {
		return ErrDuplicateFactory(f.Type)
	}
	r.factories[f.Type] = f
	return nil
}

// Factories() lists the known factories sorted by type
func (r *Registry) Factories() (list []Factory) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.factories {
		list = append(list, f)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Type < list[j].Type })
	return
}

// Register() validates the options, constructs the module and classifies it by its declared role
func (r *Registry) Register(moduleType, name string, raw map[string]any) (*Handle, lib.ErrorI) {
	r.mu.RLock()
	f, found := r.factories[moduleType]
	r.mu.RUnlock()
	if !found {
		return nil, ErrUnknownModuleType(moduleType)
	}
	if name == "" {
		name = moduleType
	}
	opts, err := r.validateOptions(f, name, raw)
	if err != nil {
		return nil, err
	}
	deps := r.deps
	deps.Logger = r.deps.Logger.Named(name)
	m, err := f.New(name, opts, deps)
	if err != nil {
		return nil, err
	}
	h := &Handle{Name: name, Type: moduleType, Role: f.Role, Kinds: m.ConsumedKinds(), module: m}
	switch f.Role {
	case RoleSubscriber:
		h.subscriber, found = m.(Subscriber)
	case RolePlugin:
		h.plugin, found = m.(Plugin)
	default:
		found = false
	}
	if !found {
		_ = h.Close()
		return nil, ErrClassification(name, f.Role)
	}
	r.log.Infof("Registered %s %s (type=%s) consuming %s", f.Role, name, moduleType, h.Kinds)
	return h, nil
}

// RegisterAll() builds every configured module in order
// On any failure the modules built so far are closed and the error is returned
func (r *Registry) RegisterAll(configs []lib.ModuleConfig) (*Modules, lib.ErrorI) {
	modules, names := new(Modules), make(map[string]struct{}, len(configs))
	for _, c := range configs {
		name := c.InstanceName()
		if _, dup := names[name]; dup {
			_ = modules.Close()
			return nil, ErrDuplicateName(name)
		}
		names[name] = struct{}{}
		h, err := r.Register(c.Type, name, c.Options)
		if err != nil {
			_ = modules.Close()
			return nil, err
		}
		if h.Role == RoleSubscriber {
			modules.Subscribers = append(modules.Subscribers, h)
		} else {
			modules.Plugins = append(modules.Plugins, h)
		}
	}
	return modules, nil
}

// validateOptions() applies defaults and type checks the raw options against the factory schema
func (r *Registry) validateOptions(f Factory, name string, raw map[string]any) (Options, lib.ErrorI) {
	opts, known := make(Options, len(f.Options)), make(map[string]struct{}, len(f.Options))
	for _, o := range f.Options {
		known[o.Name] = struct{}{}
		v, ok := raw[o.Name]
		if !ok || v == nil {
			if o.Required {
				return nil, ErrMissingOption(name, o.Name)
			}
			if o.Default == nil {
				continue
			}
			v = o.Default
		}
		value, typed := o.coerce(v)
		if !typed {
			return nil, ErrMistypedOption(name, o.Name, o.Type, v)
		}
		opts[o.Name] = value
	}
	for k := range raw {
		if _, ok := known[k]; !ok {
			r.log.Warnf("Ignoring unknown option %q for module %s", k, name)
		}
	}
	return opts, nil
}

// Handle is a constructed, classified module instance
type Handle struct {
	Name  string
	Type  string
	Role  Role
	Kinds lib.KindSet

	module     Module
	subscriber Subscriber
	plugin     Plugin
}

// ConsumeBatch() runs a subscriber
func (h *Handle) ConsumeBatch(ctx context.Context, batch *lib.Batch) ([]lib.Action, lib.ErrorI) {
	if h.subscriber == nil {
		return nil, ErrWrongRole(h.Name, RoleSubscriber)
	}
	return h.subscriber.Consume(ctx, batch)
}

// ConsumeActions() runs a plugin
func (h *Handle) ConsumeActions(ctx context.Context, actions []lib.Action) ([]lib.Result, lib.ErrorI) {
	if h.plugin == nil {
		return nil, ErrWrongRole(h.Name, RolePlugin)
	}
	return h.plugin.Consume(ctx, actions)
}

// Close() releases the module if it holds resources
func (h *Handle) Close() lib.ErrorI {
	if c, ok := h.module.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return ErrCloseModule(h.Name, err)
		}
	}
	return nil
}

// Modules are the registered instances grouped by role in registration order
type Modules struct {
	Subscribers []*Handle
	Plugins     []*Handle
}

// Close() closes every module and returns the first error
func (m *Modules) Close() (err lib.ErrorI) {
	if m == nil {
		return nil
	}
	for _, h := range append(append([]*Handle(nil), m.Subscribers...), m.Plugins...) {
		if e := h.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}

// Names() lists the instance names of both roles in registration order
func (m *Modules) Names() (names []string) {
	for _, h := range m.Subscribers {
		names = append(names, h.Name)
	}
	for _, h := range m.Plugins {
		names = append(names, h.Name)
	}
	return
}
