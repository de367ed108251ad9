package module

import (
	"context"
	"fmt"
	"math"

	"github.com/canopy-network/spectroscope/lib"
)

/*
	This file defines the two capability roles a module may play in the dispatch pipeline.

	A Subscriber turns the updates of one Batch into Actions (stage 1).
	A Plugin turns a list of Actions into Results (stage 2) and is usually a side-effecting sink.
*/

// Role is the declared capability of a module
type Role int

const (
	RoleSubscriber Role = iota + 1
	RolePlugin
)

// String() returns the role name
func (r Role) String() string {
	switch r {
	case RoleSubscriber:
		return "subscriber"
	case RolePlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Module is the behavior shared by every role
type Module interface {
	// Name() is the unique instance name used in logs and metrics
	Name() string
	// ConsumedKinds() is fixed after construction
	ConsumedKinds() lib.KindSet
}

// Subscriber consumes a batch already filtered to its consumed kinds
type Subscriber interface {
	Module
	Consume(ctx context.Context, batch *lib.Batch) ([]lib.Action, lib.ErrorI)
}

// Plugin consumes actions already filtered to its consumed kinds
type Plugin interface {
	Module
	Consume(ctx context.Context, actions []lib.Action) ([]lib.Result, lib.ErrorI)
}

// OptionType is the expected type of a configuration option value
type OptionType string

const (
	OptionString OptionType = "string"
	OptionInt    OptionType = "int"
	OptionBool   OptionType = "bool"
	OptionFloat  OptionType = "float"
)

// ConfigOption describes one option accepted by a module type
type ConfigOption struct {
	Name        string     `json:"name"`
	Type        OptionType `json:"type"`
	Description string     `json:"description"`
	Required    bool       `json:"required,omitempty"`
	Default     any        `json:"default,omitempty"`
}

// coerce() converts a raw (usually json decoded) value into the declared type
func (o ConfigOption) coerce(v any) (any, bool) {
	switch o.Type {
	case OptionString:
		s, ok := v.(string)
		return s, ok
	case OptionBool:
		b, ok := v.(bool)
		return b, ok
	case OptionFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case uint64:
			return float64(n), true
		}
	case OptionInt:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int64:
			return n, true
		case uint64:
			if n > math.MaxInt64 {
				return nil, false
			}
			return int64(n), true
		case float64:
			// json numbers decode as float64; only integral values are accepted
			if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
				return nil, false
			}
			return int64(n), true
		}
	}
	return nil, false
}

// Options are validated option values keyed by name
// Int options are stored as int64 and float options as float64
type Options map[string]any

// String() returns the string option or ""
func (o Options) String(name string) string {
	s, _ := o[name].(string)
	return s
}

// Int() returns the int option or 0
func (o Options) Int(name string) int64 {
	n, _ := o[name].(int64)
	return n
}

// Bool() returns the bool option or false
func (o Options) Bool(name string) bool {
	b, _ := o[name].(bool)
	return b
}

// Float() returns the float option or 0
func (o Options) Float(name string) float64 {
	f, _ := o[name].(float64)
	return f
}

// Has() reports whether the option was configured or defaulted
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// Deps are the process level collaborators handed to every factory
type Deps struct {
	Logger      lib.LoggerI
	DataDirPath string
}

// Constructor builds a module instance from validated options
type Constructor func(name string, opts Options, deps Deps) (Module, lib.ErrorI)

// Factory describes a module type that may be instantiated by configuration
type Factory struct {
	Type    string         // the type name referenced by lib.ModuleConfig.Type
	Role    Role           // the role the constructed instance must fulfil
	Options []ConfigOption // the option schema
	New     Constructor
}

// Describe() returns a human readable schema line per option
func (f Factory) Describe() (lines []string) {
	for _, o := range f.Options {
		line := fmt.Sprintf("%s (%s): %s", o.Name, o.Type, o.Description)
		if o.Required {
			line += " [required]"
		} else if o.Default != nil {
			line += fmt.Sprintf(" [default: %v]", o.Default)
		}
		lines = append(lines, line)
	}
	return
}
