package dbupdate

import (
	"context"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/stretchr/testify/require"
)

func TestConsume(t *testing.T) {
	// pre-define two command updates
	add := lib.DatabaseUpdate{RequestType: lib.RequestAdd, Status: lib.StatusDeposited, ValidatorKeys: []lib.HexBytes{{0x01}}}
	get := lib.DatabaseUpdate{RequestType: lib.RequestGet}
	s := New(Type, lib.NewNullLogger())
	actions, err := s.Consume(context.Background(), lib.NewBatch(nil, nil, add, get))
	require.NoError(t, err)
	require.Equal(t, []lib.Action{lib.RaiseUpdateKeys{Update: add}, lib.RaiseUpdateKeys{Update: get}}, actions)
}

func TestConsumeUnhandledKind(t *testing.T) {
	s := New(Type, lib.NewNullLogger())
	_, err := s.Consume(context.Background(), lib.NewBatch(nil, nil, lib.StatusUpdate{}))
	require.True(t, lib.IsCode(err, lib.DispatchModule, lib.CodeUnhandledKind))
}

func TestFactory(t *testing.T) {
	r := module.NewRegistry(module.Deps{Logger: lib.NewNullLogger()})
	require.NoError(t, r.Add(Factory()))
	h, err := r.Register(Type, "", nil)
	require.NoError(t, err)
	require.Equal(t, module.RoleSubscriber, h.Role)
	require.Equal(t, lib.NewKindSet(lib.KindDatabaseUpdate), h.Kinds)
}
