package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/internal/types"
)

func TestNewSMACrossover_InvalidWindows(t *testing.T) {
	_, err := NewSMACrossover(25, 7)
	assert.Error(t, err)

	_, err = NewSMACrossover(7, 7)
	assert.Error(t, err)

	_, err = NewSMACrossover(0, 5)
	assert.Error(t, err)

	_, err = NewSMACrossover(7, 25)
	assert.NoError(t, err)
}

func TestSMACrossover_InsufficientHistory(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	assert.Equal(t, types.SignalHold, s.GenerateSignal([]float64{10}))
	assert.Equal(t, types.SignalHold, s.GenerateSignal([]float64{10, 11}))

	// The short calls above must not have recorded a cross state: the first
	// determinable state yields HOLD, not BUY, even though the short MA is
	// already above the long MA.
	assert.Equal(t, types.SignalHold, s.GenerateSignal([]float64{1, 2, 9}))
}

func TestSMACrossover_SingleCrossUpThenDown(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	// Feed the series one prefix at a time, the way the engine does
	series := []float64{10, 9, 8, 12, 13, 5, 4}
	want := []types.Signal{
		types.SignalHold, // too short
		types.SignalHold, // too short
		types.SignalHold, // first determinable state (below)
		types.SignalBuy,  // below -> above
		types.SignalHold, // still above
		types.SignalSell, // above -> below
		types.SignalHold, // still below
	}

	for i := range series {
		got := s.GenerateSignal(series[:i+1])
		assert.Equalf(t, want[i], got, "tick %d", i)
	}
}

func TestSMACrossover_EqualAveragesCountAsBelow(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	// Flat series: short MA == long MA, which lands on the BELOW side
	require.Equal(t, types.SignalHold, s.GenerateSignal([]float64{5, 5, 5}))

	// Moving above from the equality state is a crossover
	assert.Equal(t, types.SignalBuy, s.GenerateSignal([]float64{5, 5, 5, 8}))
}

func TestSMACrossover_Reset(t *testing.T) {
	s, err := NewSMACrossover(2, 3)
	require.NoError(t, err)

	require.Equal(t, types.SignalHold, s.GenerateSignal([]float64{10, 9, 8}))
	require.Equal(t, types.SignalBuy, s.GenerateSignal([]float64{10, 9, 8, 12}))

	s.Reset()

	// After a reset the recorded state is gone, so the same history produces
	// no signal again
	assert.Equal(t, types.SignalHold, s.GenerateSignal([]float64{10, 9, 8, 12}))
}

func TestRegistry(t *testing.T) {
	s, err := New("sma", Params{ShortWindow: 7, LongWindow: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, s.WarmupPeriod())

	_, err = New("macd", Params{ShortWindow: 7, LongWindow: 25})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	// Invalid parameters surface through the factory
	_, err = New("sma", Params{ShortWindow: 25, LongWindow: 7})
	assert.Error(t, err)

	assert.Contains(t, Names(), "sma")
}
