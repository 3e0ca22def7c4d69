package money

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainmarket/storefront/types"
)

func TestToDisplay(t *testing.T) {
	cases := []struct {
		name string
		raw  int64
		want string
	}{
		{"zero", 0, "0"},
		{"whole", 10_000_000, "10"},
		{"half", 5_500_000, "5.5"},
		{"strips trailing zeros", 1_200_000, "1.2"},
		{"full precision", 1_234_567, "1.234567"},
		{"sub unit", 123, "0.000123"},
		{"one micro", 1, "0.000001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToDisplay(big.NewInt(tc.raw)))
		})
	}
}

func TestToDisplayNil(t *testing.T) {
	assert.Equal(t, "0", ToDisplay(nil))
}

func TestToRaw(t *testing.T) {
	raw, err := ToRaw("25.5")
	require.NoError(t, err)
	assert.Equal(t, int64(25_500_000), raw.Int64())

	raw, err = ToRaw("0.000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), raw.Int64())
}

func TestToRawRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "0", "1.2345678"} {
		_, err := ToRaw(input)
		require.Error(t, err, "input %q", input)
		var se *types.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, types.KindValidation, se.Kind)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, raw := range []int64{1, 999999, 1_000_000, 25_500_000, 123_456_789} {
		n := big.NewInt(raw)
		back, err := ToRaw(ToDisplay(n))
		require.NoError(t, err)
		assert.Zero(t, n.Cmp(back), "round trip of %d", raw)
	}
}

func TestRoundTripCanonicalStrings(t *testing.T) {
	for _, s := range []string{"25.5", "10", "0.000001", "1.234567"} {
		raw, err := ToRaw(s)
		require.NoError(t, err)
		assert.Equal(t, s, ToDisplay(raw))
	}
}

func TestMul(t *testing.T) {
	assert.Equal(t, int64(20_000_000), Mul(big.NewInt(10_000_000), 2).Int64())
}
