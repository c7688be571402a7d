package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

func TestDivvyLiquidity(t *testing.T) {
	issue := amount.NewIssue("USD", amount.MustParseAccountID("00000000000000000000000000000000000E0001"))
	v := func(s string) amount.Amount {
		a, err := amount.ParseValue(issue, s)
		require.NoError(t, err)
		return a
	}

	tests := []struct {
		name       string
		qIn, qOut  uint32
		prvReq     amount.Amount
		curReq     amount.Amount
		curAct     amount.Amount
		rateMax    uint64
		wantPrv    string
		wantCur    string
		wantRateOK bool
	}{
		{
			name: "parity limited by previous", qIn: quality.One, qOut: quality.One,
			prvReq: v("5"), curReq: v("10"), curAct: v("0"),
			wantPrv: "5", wantCur: "5", wantRateOK: true,
		},
		{
			name: "parity unlimited", qIn: quality.One, qOut: quality.One,
			prvReq: unlimited(issue), curReq: v("10"), curAct: v("0"),
			wantPrv: "10", wantCur: "10", wantRateOK: true,
		},
		{
			name: "out quality charged to previous", qIn: quality.One, qOut: 1_500_000_000,
			prvReq: v("30"), curReq: v("10"), curAct: v("0"),
			wantPrv: "15", wantCur: "10", wantRateOK: true,
		},
		{
			name: "previous caps the output", qIn: quality.One, qOut: 1_500_000_000,
			prvReq: v("6"), curReq: v("10"), curAct: v("0"),
			wantPrv: "6", wantCur: "4", wantRateOK: true,
		},
		{
			name: "worse rate than accepted moves nothing", qIn: quality.One, qOut: 1_500_000_000,
			prvReq: v("30"), curReq: v("10"), curAct: v("0"),
			rateMax: quality.LineRate(quality.One, 2_000_000_000),
			wantPrv: "0", wantCur: "0",
		},
		{
			name: "already satisfied", qIn: quality.One, qOut: quality.One,
			prvReq: v("30"), curReq: v("10"), curAct: v("10"),
			wantPrv: "0", wantCur: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prvAct := amount.Zero(issue)
			curAct := tt.curAct
			rateMax := tt.rateMax
			divvyLiquidity(tt.qIn, tt.qOut, tt.prvReq, tt.curReq, &prvAct, &curAct, &rateMax)

			assert.Equal(t, tt.wantPrv, prvAct.Value())
			assert.Equal(t, tt.wantCur, curAct.Value())
			if tt.wantRateOK {
				assert.NotZero(t, rateMax)
			} else {
				assert.Equal(t, tt.rateMax, rateMax)
			}
		})
	}
}
