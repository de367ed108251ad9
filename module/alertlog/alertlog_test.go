package alertlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/stretchr/testify/require"
)

func testAlert() lib.Alert {
	value := uint64(5)
	return lib.Alert{
		Validator: lib.ValidatorIdentity{PublicKey: lib.HexBytes{0xab}, Index: 3},
		Type:      lib.AlertStatus,
		Value:     &value,
		Detail:    "SLASHING",
		Timestamp: &lib.ChainTimestamp{Epoch: 9},
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "detail=SLASHING epoch=9 event=validator_status idx=3 pubkey=ab value=5", Format(testAlert()))
	a := testAlert()
	a.Value, a.Detail, a.Timestamp = nil, "", nil
	require.Equal(t, "event=validator_status idx=3 pubkey=ab value=none", Format(a))
}

func TestConsume(t *testing.T) {
	buf := new(bytes.Buffer)
	p := New(Type, "warn", lib.NewLogger(lib.LoggerConfig{Level: lib.DebugLevel, Out: buf}))
	results, err := p.Consume(context.Background(), []lib.Action{lib.RaiseAlert{Alert: testAlert()}, lib.ClearAlert{Alert: testAlert()}})
	require.NoError(t, err)
	require.Equal(t, []lib.Result{lib.CountResult{Count: 2}}, results)
	require.Contains(t, buf.String(), "RAISE detail=SLASHING")
	require.Contains(t, buf.String(), "CLEAR detail=SLASHING")
}

func TestFactory(t *testing.T) {
	r := module.NewRegistry(module.Deps{Logger: lib.NewNullLogger()})
	require.NoError(t, r.Add(Factory()))
	_, err := r.Register(Type, "", map[string]any{OptionLevel: "loud"})
	require.True(t, lib.IsCode(err, lib.RegistryModule, lib.CodeInvalidOption))
	h, err := r.Register(Type, "", map[string]any{OptionLevel: "ERROR"})
	require.NoError(t, err)
	require.Equal(t, lib.NewKindSet(lib.KindRaiseAlert, lib.KindClearAlert), h.Kinds)
}
