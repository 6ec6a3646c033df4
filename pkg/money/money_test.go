package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToCents_RoundsHalfUp(t *testing.T) {
	require.Equal(t, int64(2951), ToCents(29.51))
	require.Equal(t, int64(100), ToCents(1.0))
	require.Equal(t, int64(1), ToCents(0.005))
	require.Equal(t, int64(0), ToCents(0))
}

func TestRoundTrip_TwoDecimalAmounts(t *testing.T) {
	for _, v := range []float64{0.01, 0.99, 1.10, 29.51, 199.90, 1234.56} {
		require.Equal(t, v, FromCents(ToCents(v)))
	}
}
