package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFees(t *testing.T) {
	fee := ShopFee{
		MakerFlatFee:    10,
		TakerFlatFee:    25,
		MakerPercentFee: 50,  // 0.05%
		TakerPercentFee: 100, // 0.1%
	}

	makerFee, err := CalculateMakerFee(100_000, fee)
	require.NoError(t, err)
	assert.EqualValues(t, 10+50, makerFee)

	takerFee, err := CalculateTakerFee(100_000, fee)
	require.NoError(t, err)
	assert.EqualValues(t, 25+100, takerFee)
}

func TestCalculateFees_ZeroSchedule(t *testing.T) {
	makerFee, err := CalculateMakerFee(1_000_000, ShopFee{})
	require.NoError(t, err)
	assert.Zero(t, makerFee)

	takerFee, err := CalculateTakerFee(1_000_000, ShopFee{})
	require.NoError(t, err)
	assert.Zero(t, takerFee)
}

func TestCalculateFees_FlooredPercent(t *testing.T) {
	// 999 * 50 / 100000 = 0.4995, which rounds down to zero.
	fee, err := CalculateMakerFee(999, ShopFee{MakerPercentFee: 50})
	require.NoError(t, err)
	assert.Zero(t, fee)

	// 3999 * 50 / 100000 = 1.9995, floored to 1.
	fee, err = CalculateMakerFee(3999, ShopFee{MakerPercentFee: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 1, fee)
}

func TestCalculateFees_Monotonic(t *testing.T) {
	fee := ShopFee{TakerFlatFee: 5, TakerPercentFee: 250}

	var prev uint64
	for _, amount := range []uint64{0, 1, 100, 10_000, 1_000_000, 100_000_000} {
		current, err := CalculateTakerFee(amount, fee)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, current, prev)
		prev = current
	}
}

func TestCalculateFees_FullPercent(t *testing.T) {
	fee, err := CalculateMakerFee(12345, ShopFee{MakerPercentFee: PercentFeeDivisor})
	require.NoError(t, err)
	assert.EqualValues(t, 12345, fee)
}

func TestCalculateFees_InvalidSchedule(t *testing.T) {
	invalid := ShopFee{MakerPercentFee: PercentFeeDivisor + 1}

	_, err := CalculateMakerFee(100, invalid)
	assert.ErrorIs(t, err, ErrInvalidFeeSchedule)

	invalid = ShopFee{TakerPercentFee: PercentFeeDivisor + 1}
	_, err = CalculateTakerFee(100, invalid)
	assert.ErrorIs(t, err, ErrInvalidFeeSchedule)
}

func TestCalculateFees_NoOverflow(t *testing.T) {
	// amount * percent exceeds 64 bits, but the intermediate math is
	// arbitrary precision.
	fee, err := CalculateMakerFee(1<<62, ShopFee{MakerPercentFee: 100})
	require.NoError(t, err)
	assert.EqualValues(t, uint64(1<<62)/1000, fee)
}
