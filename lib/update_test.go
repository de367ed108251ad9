package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindSet(t *testing.T) {
	s := NewKindSet(KindBalanceUpdate, KindRaiseAlert)
	require.True(t, s.Has(KindBalanceUpdate))
	require.False(t, s.Has(KindStatusUpdate))
	require.True(t, s.Intersects(NewKindSet(KindRaiseAlert, KindClearAlert)))
	require.False(t, s.Intersects(NewKindSet(KindClearAlert)))
	require.Equal(t, []Kind{KindBalanceUpdate, KindRaiseAlert}, s.Kinds())
	require.Equal(t, "{BalanceUpdate,RaiseAlert}", s.String())
	require.True(t, NewKindSet().Empty())
}

func TestBatchFilter(t *testing.T) {
	validator := &ValidatorIdentity{PublicKey: HexBytes{0xab}, Index: 7}
	timestamp := &ChainTimestamp{Epoch: 10, Slot: 320}
	status := StatusUpdate{Status: StatusActive}
	balance := BalanceUpdate{Balance: 32_000_000_000, EffectiveBalance: 32_000_000_000}
	tests := []struct {
		name     string
		detail   string
		kinds    KindSet
		expected []Update
	}{
		{
			name:     "single kind",
			detail:   "only the balance update passes",
			kinds:    NewKindSet(KindBalanceUpdate),
			expected: []Update{balance},
		},
		{
			name:     "order preserved",
			detail:   "the filtered batch keeps the original order",
			kinds:    NewKindSet(KindBalanceUpdate, KindStatusUpdate),
			expected: []Update{status, balance},
		},
		{
			name:   "no match",
			detail: "the filtered batch is empty",
			kinds:  NewKindSet(KindDatabaseUpdate),
		},
	}
	batch := NewBatch(validator, timestamp, status, balance)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := batch.Filter(test.kinds)
			require.Equal(t, test.expected, got.Updates, test.detail)
			require.Equal(t, len(test.expected) == 0, got.Empty(), test.detail)
			// identity and timestamp are carried over
			require.Same(t, validator, got.Validator)
			require.Same(t, timestamp, got.Timestamp)
		})
	}
	// filtering never mutates the source
	require.Len(t, batch.Updates, 2)
	require.Equal(t, NewKindSet(KindStatusUpdate, KindBalanceUpdate), batch.Kinds())
}

func TestNewBatchCopies(t *testing.T) {
	updates := []Update{StatusUpdate{Status: StatusActive}}
	batch := NewBatch(nil, nil, updates...)
	updates[0] = StatusUpdate{Status: StatusExited}
	require.Equal(t, StatusUpdate{Status: StatusActive}, batch.Updates[0])
	var empty *Batch
	require.True(t, empty.Empty())
	require.Nil(t, empty.Filter(NewKindSet(KindStatusUpdate)))
}

func TestFilterActions(t *testing.T) {
	raise := RaiseAlert{Alert: Alert{Type: AlertStatus}}
	cleared := ClearAlert{Alert: Alert{Type: AlertLowBalance}}
	update := RaiseUpdateKeys{Update: DatabaseUpdate{RequestType: RequestGet}}
	actions := []Action{raise, update, cleared}
	require.Equal(t, NewKindSet(KindRaiseAlert, KindClearAlert, KindRaiseUpdateKeys), ActionKinds(actions))
	require.Equal(t, []Action{raise, cleared}, FilterActions(actions, NewKindSet(KindRaiseAlert, KindClearAlert)))
	require.Nil(t, FilterActions(actions, NewKindSet(KindBalanceUpdate)))
	require.Nil(t, update.Validator())
	require.Equal(t, &raise.Alert.Validator, raise.Validator())
}

func TestAlertFields(t *testing.T) {
	value := uint64(5)
	a := Alert{
		Validator: ValidatorIdentity{PublicKey: HexBytes{0xab}, Index: 3},
		Type:      AlertStatus,
		Value:     &value,
		Detail:    "SLASHING",
		Timestamp: &ChainTimestamp{Epoch: 9},
	}
	require.Equal(t, map[string]any{
		"event":  "validator_status",
		"pubkey": "ab",
		"idx":    uint64(3),
		"value":  uint64(5),
		"detail": "SLASHING",
		"epoch":  uint64(9),
	}, a.Fields())
	// an alert without a value still carries the key
	a.Value, a.Detail, a.Timestamp = nil, "", nil
	require.Equal(t, map[string]any{"event": "validator_status", "pubkey": "ab", "idx": uint64(3), "value": nil}, a.Fields())
}
