package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountsToDegPerSec(t *testing.T) {
	cases := []struct {
		counts int16
		rng    byte
		want   float64
	}{
		{131, 0, 1},
		{-655, 1, -10},
		{3280, 2, 100},
		{16400, 3, 1000},
		{0, 3, 0},
	}
	for _, tc := range cases {
		got, err := CountsToDegPerSec(tc.counts, tc.rng)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9)
	}

	_, err := CountsToDegPerSec(1, 4)
	assert.Error(t, err)
}
