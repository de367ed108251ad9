package module

import (
	"errors"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/stretchr/testify/require"
)

// notAModule satisfies Module but neither role interface
type notAModule struct{}

func (notAModule) Name() string               { return "nothing" }
func (notAModule) ConsumedKinds() lib.KindSet { return lib.NewKindSet(lib.KindStatusUpdate) }

func newTestRegistry(t *testing.T, built map[string]Module) *Registry {
	r := NewRegistry(Deps{Logger: lib.NewNullLogger()})
	require.NoError(t, r.Add(Factory{
		Type: "sub",
		Role: RoleSubscriber,
		Options: []ConfigOption{
			{Name: "threshold", Type: OptionInt, Description: "a threshold", Required: true},
			{Name: "label", Type: OptionString, Description: "a label", Default: "default"},
		},
		New: func(name string, opts Options, _ Deps) (Module, lib.ErrorI) {
			s := &testSubscriber{name: name + ":" + opts.String("label"), kinds: lib.NewKindSet(lib.KindStatusUpdate)}
			built[name] = s
			return s, nil
		},
	}))
	require.NoError(t, r.Add(Factory{
		Type: "sink",
		Role: RolePlugin,
		New: func(name string, _ Options, _ Deps) (Module, lib.ErrorI) {
			p := &testPlugin{name: name, kinds: lib.NewKindSet(lib.KindRaiseAlert)}
			built[name] = p
			return p, nil
		},
	}))
	require.NoError(t, r.Add(Factory{
		Type: "liar",
		Role: RolePlugin,
		New: func(name string, _ Options, _ Deps) (Module, lib.ErrorI) {
			// declares plugin but builds a subscriber
			s := &testSubscriber{name: name, kinds: lib.NewKindSet(lib.KindStatusUpdate)}
			built[name] = s
			return s, nil
		},
	}))
	require.NoError(t, r.Add(Factory{
		Type: "neither",
		Role: RoleSubscriber,
		New:  func(string, Options, Deps) (Module, lib.ErrorI) { return notAModule{}, nil },
	}))
	require.NoError(t, r.Add(Factory{
		Type: "unreachable",
		Role: RolePlugin,
		New: func(name string, _ Options, _ Deps) (Module, lib.ErrorI) {
			return nil, ErrConnect(name, errors.New("connection refused"))
		},
	}))
	return r
}

func TestRegistryAddDuplicate(t *testing.T) {
	r := newTestRegistry(t, map[string]Module{})
	err := r.Add(Factory{Type: "sink", Role: RolePlugin})
	require.True(t, lib.IsCode(err, lib.RegistryModule, lib.CodeDuplicateFactory))
	// factories are listed sorted by type
	var types []string
	for _, f := range r.Factories() {
		types = append(types, f.Type)
	}
	require.Equal(t, []string{"liar", "neither", "sink", "sub", "unreachable"}, types)
}

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name       string
		detail     string
		moduleType string
		options    map[string]any
		code       lib.ErrorCode
		expected   *Handle
	}{
		{
			name:       "unknown type",
			detail:     "no factory for the type",
			moduleType: "bogus",
			code:       lib.CodeUnknownModuleType,
		},
		{
			name:       "missing required option",
			detail:     "threshold is required",
			moduleType: "sub",
			code:       lib.CodeMissingOption,
		},
		{
			name:       "mistyped option",
			detail:     "threshold must be an int",
			moduleType: "sub",
			options:    map[string]any{"threshold": "ten"},
			code:       lib.CodeMistypedOption,
		},
		{
			name:       "role mismatch",
			detail:     "the instance does not implement the declared role",
			moduleType: "liar",
			code:       lib.CodeClassification,
		},
		{
			name:       "role undeterminable",
			detail:     "the instance implements neither role",
			moduleType: "neither",
			code:       lib.CodeClassification,
		},
		{
			name:       "connect failure",
			detail:     "constructor failures propagate",
			moduleType: "unreachable",
			code:       lib.CodeConnect,
		},
		{
			name:       "subscriber",
			detail:     "defaults are applied and unknown options are ignored",
			moduleType: "sub",
			options:    map[string]any{"threshold": float64(10), "extra": true},
			expected:   &Handle{Name: "sub", Type: "sub", Role: RoleSubscriber, Kinds: lib.NewKindSet(lib.KindStatusUpdate)},
		},
		{
			name:       "plugin",
			detail:     "a plugin is classified as a plugin",
			moduleType: "sink",
			expected:   &Handle{Name: "sink", Type: "sink", Role: RolePlugin, Kinds: lib.NewKindSet(lib.KindRaiseAlert)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			built := map[string]Module{}
			r := newTestRegistry(t, built)
			h, err := r.Register(test.moduleType, "", test.options)
			if test.expected == nil {
				require.Error(t, err)
				require.Equal(t, lib.RegistryModule, err.Module())
				require.Equal(t, test.code, err.Code())
				require.Nil(t, h)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected.Name, h.Name)
			require.Equal(t, test.expected.Type, h.Type)
			require.Equal(t, test.expected.Role, h.Role)
			require.Equal(t, test.expected.Kinds, h.Kinds)
		})
	}
}

func TestRegistryDefaultOption(t *testing.T) {
	built := map[string]Module{}
	r := newTestRegistry(t, built)
	h, err := r.Register("sub", "named", map[string]any{"threshold": 1})
	require.NoError(t, err)
	require.Equal(t, "named", h.Name)
	// the label default was applied before construction
	require.Equal(t, "named:default", built["named"].Name())
}

func TestRegistryRejectedModuleIsClosed(t *testing.T) {
	built := map[string]Module{}
	r := newTestRegistry(t, built)
	_, err := r.Register("liar", "", nil)
	require.Error(t, err)
	require.True(t, built["liar"].(*testSubscriber).closed)
}

func TestRegisterAll(t *testing.T) {
	built := map[string]Module{}
	r := newTestRegistry(t, built)
	modules, err := r.RegisterAll([]lib.ModuleConfig{
		{Type: "sink", Name: "first-sink"},
		{Type: "sub", Options: map[string]any{"threshold": 1}},
		{Type: "sink", Name: "second-sink"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sub", "first-sink", "second-sink"}, modules.Names())
	require.NoError(t, modules.Close())
	require.True(t, built["first-sink"].(*testPlugin).closed)
}

func TestRegisterAllFailure(t *testing.T) {
	tests := []struct {
		name    string
		detail  string
		configs []lib.ModuleConfig
		code    lib.ErrorCode
	}{
		{
			name:   "duplicate name",
			detail: "two instances cannot share a name",
			configs: []lib.ModuleConfig{
				{Type: "sink"},
				{Type: "sink"},
			},
			code: lib.CodeDuplicateName,
		},
		{
			name:   "later module fails",
			detail: "the already built sink must be closed",
			configs: []lib.ModuleConfig{
				{Type: "sink"},
				{Type: "unreachable"},
			},
			code: lib.CodeConnect,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			built := map[string]Module{}
			r := newTestRegistry(t, built)
			modules, err := r.RegisterAll(test.configs)
			require.Nil(t, modules)
			require.True(t, lib.IsCode(err, lib.RegistryModule, test.code))
			require.True(t, built["sink"].(*testPlugin).closed)
		})
	}
}
