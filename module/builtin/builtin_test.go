package builtin

import (
	"context"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/stretchr/testify/require"
)

func TestDefaultModulesPipeline(t *testing.T) {
	r, err := NewRegistry(module.Deps{Logger: lib.NewNullLogger(), DataDirPath: t.TempDir()})
	require.NoError(t, err)
	modules, err := r.RegisterAll(lib.DefaultModules())
	require.NoError(t, err)
	defer modules.Close()
	require.Equal(t, []string{"db_update", "status_alert", "badgerdb", "alert_log"}, modules.Names())
	d := module.NewDispatcher(modules, lib.DispatchConfig{}, lib.NewNullLogger())
	// a command batch persists the keys
	add := lib.NewBatch(nil, nil, lib.DatabaseUpdate{RequestType: lib.RequestAdd, Status: lib.StatusDeposited, ValidatorKeys: []lib.HexBytes{{0x01}, {0x02}}})
	report := d.Dispatch(context.Background(), add)
	require.Equal(t, []lib.Result{lib.CountResult{Request: lib.RequestAdd, Count: 2}}, report.Results)
	// a streamed batch raises an alert that only the log plugin consumes
	streamed := lib.NewBatch(&lib.ValidatorIdentity{PublicKey: lib.HexBytes{0x01}, Index: 1}, &lib.ChainTimestamp{Epoch: 1},
		lib.StatusUpdate{Status: lib.StatusSlashing}, lib.BalanceUpdate{Balance: 1})
	report = d.Dispatch(context.Background(), streamed)
	require.Len(t, report.Actions, 1)
	require.Equal(t, []lib.Result{lib.CountResult{Count: 1}}, report.Results)
	require.Empty(t, report.Subscribers.Failed())
	require.Empty(t, report.Plugins.Failed())
}

func TestFactoriesAreUnique(t *testing.T) {
	r, err := NewRegistry(module.Deps{})
	require.NoError(t, err)
	require.Len(t, r.Factories(), len(Factories()))
}
