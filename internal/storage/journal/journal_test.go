package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

func openSQLite(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordRecent(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t)

	base := time.Unix(1_700_000_000, 0)
	for i, result := range []string{"tesSUCCESS", "tecPATH_DRY", "tesSUCCESS"} {
		require.NoError(t, j.Record(ctx, Entry{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Kind:      KindPayment,
			Result:    result,
			Passes:    i,
		}))
	}

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "tecPATH_DRY", got[1].Result)
	assert.Equal(t, 1, got[1].Passes)
	assert.True(t, got[1].CreatedAt.Equal(base.Add(time.Second)))

	err = j.Record(ctx, Entry{ID: "a", Kind: KindPayment, Result: "tesSUCCESS"})
	assert.Error(t, err)
	assert.Error(t, j.Record(ctx, Entry{Kind: KindPayment}))
}

func TestEntries(t *testing.T) {
	alice := amount.MustParseAccountID("0000000000000000000000000000000000000A01")
	bob := amount.MustParseAccountID("0000000000000000000000000000000000000B01")

	req := paths.Request{Source: alice, Destination: bob, Amount: amount.NewNative(10)}
	out := &paths.Output{
		ID:              "calc-1",
		Result:          ter.TesSUCCESS,
		ActualAmountIn:  amount.NewNative(10),
		ActualAmountOut: amount.NewNative(10),
		Passes:          1,
		Removed:         []keylet.Key{{1}},
	}
	e := PaymentEntry("direct", req, out)
	assert.Equal(t, KindPayment, e.Kind)
	assert.Equal(t, alice.String(), e.Source)
	assert.Equal(t, "tesSUCCESS", e.Result)
	assert.Equal(t, 1, e.Removed)

	c := CrossEntry("cross-1", "", alice.String(), &taker.Outcome{
		Result:    ter.TecFAILED_PROCESSING,
		Remaining: quality.Amounts{In: amount.NewNative(5), Out: amount.NewNative(0)},
		Direct:    2,
		Bridged:   1,
	})
	assert.Equal(t, KindCross, c.Kind)
	assert.Equal(t, 3, c.Passes)

	j := openSQLite(t)
	require.NoError(t, j.Record(context.Background(), e))
	require.NoError(t, j.Record(context.Background(), c))
	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpenRejectsDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRebind(t *testing.T) {
	pg := &Journal{driver: "postgres"}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &Journal{driver: "sqlite"}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}
