package badgerdb

import (
	"context"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/stretchr/testify/require"
)

func newTestPlugin(t *testing.T) *Plugin {
	db, err := Open("", true)
	require.NoError(t, err)
	p := New(Type, db, DefaultDBName, DefaultColName, lib.NewNullLogger())
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func request(kind lib.RequestType, status lib.ValidatorStatus, keys ...lib.HexBytes) []lib.Action {
	return []lib.Action{lib.RaiseUpdateKeys{Update: lib.DatabaseUpdate{RequestType: kind, Status: status, ValidatorKeys: keys}}}
}

func TestRequests(t *testing.T) {
	p := newTestPlugin(t)
	k1, k2, k3 := lib.HexBytes{0x01}, lib.HexBytes{0x02}, lib.HexBytes{0x03}
	steps := []struct {
		name     string
		detail   string
		actions  []lib.Action
		expected []lib.Result
	}{
		{
			name:     "add",
			detail:   "new keys are inserted, repeats within a request count once",
			actions:  request(lib.RequestAdd, lib.StatusDeposited, k2, k1, k1),
			expected: []lib.Result{lib.CountResult{Request: lib.RequestAdd, Count: 2}},
		},
		{
			name:     "add existing",
			detail:   "insert-if-absent leaves existing keys alone",
			actions:  request(lib.RequestAdd, lib.StatusActive, k1, k3),
			expected: []lib.Result{lib.CountResult{Request: lib.RequestAdd, Count: 1}},
		},
		{
			name:     "up",
			detail:   "only stored keys whose status differs are counted",
			actions:  request(lib.RequestUp, lib.StatusActive, k1, k2, k3, lib.HexBytes{0x09}),
			expected: []lib.Result{lib.CountResult{Request: lib.RequestUp, Count: 2}},
		},
		{
			name:     "get all",
			detail:   "an empty request returns every key in order",
			actions:  request(lib.RequestGet, lib.StatusUnknown),
			expected: []lib.Result{lib.KeysResult{Keys: []lib.HexBytes{k1, k2, k3}}},
		},
		{
			name:     "get some",
			detail:   "only stored keys are returned",
			actions:  request(lib.RequestGet, lib.StatusUnknown, k3, lib.HexBytes{0x09}),
			expected: []lib.Result{lib.KeysResult{Keys: []lib.HexBytes{k3}}},
		},
		{
			name:     "del",
			detail:   "absent keys are not counted",
			actions:  request(lib.RequestDel, lib.StatusActive, k1, lib.HexBytes{0x09}),
			expected: []lib.Result{lib.CountResult{Request: lib.RequestDel, Count: 1}},
		},
		{
			name:    "multiple",
			detail:  "one result per action, in order",
			actions: append(request(lib.RequestDel, lib.StatusActive, k2), request(lib.RequestGet, lib.StatusUnknown)...),
			expected: []lib.Result{
				lib.CountResult{Request: lib.RequestDel, Count: 1},
				lib.KeysResult{Keys: []lib.HexBytes{k3}},
			},
		},
	}
	for _, step := range steps {
		results, err := p.Consume(context.Background(), step.actions)
		require.NoError(t, err, step.name)
		require.Equal(t, step.expected, results, step.name)
	}
	status, found, err := p.Status(k3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, lib.StatusActive, status)
}

func TestGetEmptyDatabase(t *testing.T) {
	p := newTestPlugin(t)
	keys, err := p.Get(nil)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestCollectionsAreIsolated(t *testing.T) {
	db, err := Open("", true)
	require.NoError(t, err)
	defer db.Close()
	a := New("a", db, DefaultDBName, "a", lib.NewNullLogger())
	b := New("b", db, DefaultDBName, "b", lib.NewNullLogger())
	_, err = a.Consume(context.Background(), request(lib.RequestAdd, lib.StatusDeposited, lib.HexBytes{0x01}))
	require.NoError(t, err)
	keys, err := b.Get(nil)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestUnknownRequest(t *testing.T) {
	p := newTestPlugin(t)
	_, err := p.Consume(context.Background(), request(lib.RequestType(9), lib.StatusUnknown))
	require.True(t, lib.IsCode(err, lib.MainModule, lib.CodeUnknownRequest))
}

func TestFactory(t *testing.T) {
	r := module.NewRegistry(module.Deps{Logger: lib.NewNullLogger(), DataDirPath: t.TempDir()})
	require.NoError(t, r.Add(Factory()))
	// on disk under the data directory
	h, err := r.Register(Type, "", nil)
	require.NoError(t, err)
	require.Equal(t, module.RolePlugin, h.Role)
	require.NoError(t, h.Close())
	// in memory
	h, err = r.Register(Type, "memory", map[string]any{OptionInMemory: true})
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

// expiringContext is done from its second Err() call on
type expiringContext struct {
	context.Context
	calls int
}

func (c *expiringContext) Err() error {
	if c.calls++; c.calls > 1 {
		return context.Canceled
	}
	return nil
}

func TestExpiredWriteIsDiscarded(t *testing.T) {
	p := newTestPlugin(t)
	ctx := &expiringContext{Context: context.Background()}
	// the context expires while the transaction is open
	_, err := p.Consume(ctx, request(lib.RequestAdd, lib.StatusDeposited, lib.HexBytes{0x01}))
	require.True(t, lib.IsCode(err, lib.DispatchModule, lib.CodeConsumeTimeout))
	keys, err := p.Get(nil)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestStatusReportsClosedDatabase(t *testing.T) {
	db, err := Open("", true)
	require.NoError(t, err)
	p := New(Type, db, DefaultDBName, DefaultColName, lib.NewNullLogger())
	require.NoError(t, p.Close())
	_, found, err := p.Status(lib.HexBytes{0x01})
	require.False(t, found)
	require.True(t, lib.IsCode(err, lib.StorageModule, lib.CodeStoreGet))
}
