package amount

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewayHex = "00000000000000000000000000000000000A0001"

func usd(t *testing.T, v string) Amount {
	t.Helper()
	a, err := Parse(v + "/USD/" + gatewayHex)
	require.NoError(t, err)
	return a
}

func TestParseAndFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		value    string
		native   bool
		mantissa uint64
		exponent int
	}{
		{"drops", "1000000", "1000000", true, 1_000_000, 0},
		{"drops with currency", "25/XDV", "25", true, 25, 0},
		{"drops with zero fraction", "7.0", "7", true, 7, 0},
		{"issued integer", "100/USD/" + gatewayHex, "100", false, 1_000_000_000_000_000, -13},
		{"issued fraction", "0.25/USD/" + gatewayHex, "0.25", false, 2_500_000_000_000_000, -16},
		{"issued exponent", "15e-3/USD/" + gatewayHex, "0.015", false, 1_500_000_000_000_000, -17},
		{"issued zero", "0/USD/" + gatewayHex, "0", false, 0, zeroExponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.native, a.IsNative())
			assert.Equal(t, tt.mantissa, a.Mantissa())
			assert.Equal(t, tt.exponent, a.Exponent())
			assert.Equal(t, tt.value, a.Value())
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"1.5",
		"abc",
		"10/USD",
		"10/XDV/" + gatewayHex,
		"1/USD/not-an-address",
	} {
		_, err := Parse(input)
		assert.Error(t, err, input)
	}
}

func TestCanonicalize(t *testing.T) {
	t.Run("underflow collapses to zero", func(t *testing.T) {
		a := New(Issue{Currency: "USD", Account: NoAccount}, 1, -120, false)
		assert.True(t, a.IsZero())
		assert.Equal(t, zeroExponent, a.Exponent())
	})

	t.Run("overflow panics", func(t *testing.T) {
		assert.PanicsWithValue(t, ErrOverflow, func() {
			New(Issue{Currency: "USD", Account: NoAccount}, MaxMantissa, MaxExponent+1, false)
		})
	})

	t.Run("native sign of zero", func(t *testing.T) {
		a := New(NativeIssue, 0, 0, true)
		assert.False(t, a.IsNegative())
		assert.Equal(t, 0, a.Signum())
	})
}

func TestAddSubCompare(t *testing.T) {
	one, two := usd(t, "1"), usd(t, "2")

	assert.Equal(t, "3", one.Add(two).Value())
	assert.Equal(t, "-1", one.Sub(two).Value())
	assert.True(t, two.Sub(two).IsZero())
	assert.Equal(t, "-2", NewNative(5).Add(NewNative(-7)).Value())

	assert.True(t, one.Less(two))
	assert.True(t, two.Greater(one))
	assert.True(t, one.Negate().Less(one.Zeroed()))
	assert.Equal(t, 0, one.Compare(usd(t, "1.000")))

	assert.Equal(t, one, Min(one, two))
	assert.Equal(t, two, Max(one, two))
}

func TestIncomparablePanics(t *testing.T) {
	assert.Panics(t, func() { NewNative(1).Add(usd(t, "1")) })
	assert.Panics(t, func() { usd(t, "1").Compare(NewNative(1)) })
}

func TestIssuersMayDiffer(t *testing.T) {
	other := MustParseAccountID("00000000000000000000000000000000000B0001")
	a := usd(t, "4")
	b := usd(t, "1").WithIssuer(other)
	assert.Equal(t, "3", a.Sub(b).Value())
	assert.Equal(t, a.Issuer(), a.Sub(b).Issuer())
}

func TestMultiplyDivide(t *testing.T) {
	one := FromInt(NoIssue, 1)
	three := FromInt(NoIssue, 3)
	x := usd(t, "123.456")

	t.Run("multiply by one", func(t *testing.T) {
		assert.Equal(t, x, Multiply(x, one, x.Issue()))
	})

	t.Run("divide truncates", func(t *testing.T) {
		assert.Equal(t, "0.3333333333333333", Divide(usd(t, "1"), three, x.Issue()).Value())
	})

	t.Run("divide by zero panics", func(t *testing.T) {
		assert.PanicsWithValue(t, ErrDivideByZero, func() {
			Divide(x, x.Zeroed(), x.Issue())
		})
	})

	t.Run("zero operand", func(t *testing.T) {
		assert.True(t, Multiply(x.Zeroed(), three, x.Issue()).IsZero())
		assert.True(t, Divide(x.Zeroed(), three, x.Issue()).IsZero())
	})
}

func TestDirectedRounding(t *testing.T) {
	three := FromInt(NoIssue, 3)
	half, err := ParseValue(NoIssue, "0.5")
	require.NoError(t, err)

	t.Run("issued division", func(t *testing.T) {
		up := DivRound(usd(t, "1"), three, usd(t, "1").Issue(), true)
		down := DivRound(usd(t, "1"), three, usd(t, "1").Issue(), false)
		assert.Equal(t, "0.3333333333333334", up.Value())
		assert.Equal(t, "0.3333333333333333", down.Value())
	})

	t.Run("native half drop", func(t *testing.T) {
		up := MulRound(NewNative(1), half, NativeIssue, true)
		down := MulRound(NewNative(1), half, NativeIssue, false)
		assert.Equal(t, int64(1), up.Drops())
		assert.True(t, down.IsZero())
	})

	t.Run("round up never reaches zero", func(t *testing.T) {
		tiny := New(Issue{Currency: "USD", Account: NoAccount}, MinMantissa, MinExponent, false)
		got := MulRound(tiny, half, tiny.Issue(), true)
		assert.True(t, got.IsPositive())
	})
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(NewNative(1500))
	require.NoError(t, err)
	assert.JSONEq(t, `"1500"`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`{"value":"12.5","currency":"USD","issuer":"`+gatewayHex+`"}`), &a))
	assert.Equal(t, "12.5", a.Value())
	assert.Equal(t, Currency("USD"), a.Currency())
	assert.Equal(t, MustParseAccountID(gatewayHex), a.Issuer())
}
