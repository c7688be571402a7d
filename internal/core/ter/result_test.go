package ter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilies(t *testing.T) {
	tests := []struct {
		result Result
		tec    bool
		tef    bool
		tel    bool
		tem    bool
		ter    bool
	}{
		{TesSUCCESS, false, false, false, false, false},
		{TecPATH_DRY, true, false, false, false, false},
		{TecPATH_PARTIAL, true, false, false, false, false},
		{TefEXCEPTION, false, true, false, false, false},
		{TelFAILED_PROCESSING, false, false, true, false, false},
		{TemBAD_PATH_LOOP, false, false, false, true, false},
		{TerNO_LINE, false, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			assert.Equal(t, tt.tec, tt.result.IsTec())
			assert.Equal(t, tt.tef, tt.result.IsTef())
			assert.Equal(t, tt.tel, tt.result.IsTel())
			assert.Equal(t, tt.tem, tt.result.IsTem())
			assert.Equal(t, tt.ter, tt.result.IsTer())
		})
	}
}

func TestIsApplied(t *testing.T) {
	assert.True(t, TesSUCCESS.IsApplied())
	assert.True(t, TecPATH_PARTIAL.IsApplied())
	assert.False(t, TemBAD_PATH.IsApplied())
	assert.False(t, TelFAILED_PROCESSING.IsApplied())
}

func TestParseResult(t *testing.T) {
	r, err := ParseResult("tecPATH_DRY")
	require.NoError(t, err)
	assert.Equal(t, TecPATH_DRY, r)

	_, err = ParseResult("tecNOPE")
	assert.Error(t, err)

	assert.Equal(t, "unknown(7)", Result(7).String())
}

func TestTextRoundTrip(t *testing.T) {
	var r Result
	require.NoError(t, r.UnmarshalText([]byte("terNO_DIVVY")))
	assert.Equal(t, TerNO_DIVVY, r)

	text, err := TemDIVVY_EMPTY.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "temDIVVY_EMPTY", string(text))
}
