package alertmetrics

import (
	"context"
	"testing"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestConsume(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(Type, "test", reg, lib.NewNullLogger())
	require.NoError(t, err)
	alert := lib.Alert{Validator: lib.ValidatorIdentity{PublicKey: lib.HexBytes{0x0a}, Index: 4}, Type: lib.AlertLowBalance}
	gauge := p.active.WithLabelValues(string(lib.AlertLowBalance), "0a", "4")
	// raise
	results, err := p.Consume(context.Background(), []lib.Action{lib.RaiseAlert{Alert: alert}})
	require.NoError(t, err)
	require.Equal(t, []lib.Result{lib.CountResult{Count: 1}}, results)
	require.Equal(t, float64(1), testutil.ToFloat64(gauge))
	// clear
	_, err = p.Consume(context.Background(), []lib.Action{lib.ClearAlert{Alert: alert}})
	require.NoError(t, err)
	require.Equal(t, float64(0), testutil.ToFloat64(gauge))
	require.Equal(t, float64(1), testutil.ToFloat64(p.transitions.WithLabelValues(string(lib.AlertLowBalance), "clear")))
}

func TestSharedCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New("first", "test", reg, lib.NewNullLogger())
	require.NoError(t, err)
	// a second instance in the same namespace reuses the registered collectors
	second, err := New("second", "test", reg, lib.NewNullLogger())
	require.NoError(t, err)
	require.Same(t, first.active, second.active)
}
