package audit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

var (
	alice = amount.MustParseAccountID("0000000000000000000000000000000000000A01")
	bob   = amount.MustParseAccountID("0000000000000000000000000000000000000B01")
	carol = amount.MustParseAccountID("0000000000000000000000000000000000000C01")
	gw    = amount.MustParseAccountID("00000000000000000000000000000000000E0001")
	usd   = amount.NewIssue("USD", gw)
	eur   = amount.NewIssue("EUR", gw)
)

func val(t *testing.T, issue amount.Issue, v string) amount.Amount {
	t.Helper()
	a, err := amount.ParseValue(issue, v)
	require.NoError(t, err)
	return a
}

func trust(t *testing.T, l *state.Ledger, holder amount.AccountID, issue amount.Issue, balance string) {
	t.Helper()
	line := state.NewTrustLine(holder, issue.Account, issue.Currency)
	limit := val(t, issue, "1000").WithIssuer(holder)
	if line.IsLow(holder) {
		line.LowLimit = limit
	} else {
		line.HighLimit = limit
	}
	line.SetBalanceFor(holder, val(t, issue, balance))
	require.NoError(t, l.Insert(line))
}

// market has carol sell EUR for USD at 1.5 and charges a 1% transfer fee
// on gw's IOUs.
func market(t *testing.T) *state.Ledger {
	t.Helper()
	l, err := state.NewLedger(state.LedgerConfig{Fees: state.Fees{ReserveBase: 200, ReserveIncrement: 50}, Open: true})
	require.NoError(t, err)
	for _, id := range []amount.AccountID{alice, bob, carol} {
		require.NoError(t, l.Insert(&state.AccountRoot{ID: id, Balance: amount.NewNative(10_000)}))
	}
	require.NoError(t, l.Insert(&state.AccountRoot{ID: gw, Balance: amount.NewNative(10_000), TransferRate: quality.TransferRate(1_010_000_000)}))
	trust(t, l, alice, usd, "100")
	trust(t, l, bob, eur, "0")
	trust(t, l, carol, eur, "100")
	trust(t, l, carol, usd, "0")
	require.NoError(t, l.Insert(&state.Offer{Owner: carol, Sequence: 1, TakerPays: val(t, usd, "30"), TakerGets: val(t, eur, "20")}))
	return l
}

func TestCheckPayment(t *testing.T) {
	l := market(t)
	before := l.Entries()

	view := state.NewSandbox(l)
	sendMax := val(t, usd, "20")
	out, err := paths.Calculate(context.Background(), view, paths.Request{
		Source:      alice,
		Destination: bob,
		Amount:      val(t, eur, "10"),
		SendMax:     &sendMax,
		Options:     paths.DefaultOptions(),
	})
	require.NoError(t, err)
	require.Equal(t, ter.TesSUCCESS, out.Result)

	journal := view.Transfers()
	require.NoError(t, view.Apply())

	r, err := Check(before, l.Entries(), journal)
	require.NoError(t, err)
	assert.True(t, r.Native.IsZero())
	assert.True(t, r.Limbo.IsZero())
	assert.Equal(t, len(journal), r.Transfers)

	spent, err := decimal.NewFromString(out.ActualAmountIn.Value())
	require.NoError(t, err)
	assert.True(t, r.Changes[Holding{Account: alice, Currency: "USD"}].Equal(spent.Neg()))
	assert.True(t, r.Changes[Holding{Account: bob, Currency: "EUR"}].Equal(decimal.NewFromInt(10)))

	// The fee on alice's redemption burns part of gw's USD obligations.
	assert.True(t, r.Outstanding[usd].IsNegative())
	assert.False(t, r.Outstanding[eur].IsPositive())
	assert.NotEmpty(t, r.Holdings())
}

func TestCheckNativePayment(t *testing.T) {
	l := market(t)
	before := l.Entries()

	view := state.NewSandbox(l)
	require.Equal(t, ter.TesSUCCESS, view.TransferXDV(alice, amount.XDVAccount, amount.NewNative(40)))
	require.Equal(t, ter.TesSUCCESS, view.TransferXDV(amount.XDVAccount, bob, amount.NewNative(40)))
	journal := view.Transfers()
	require.NoError(t, view.Apply())

	r, err := Check(before, l.Entries(), journal)
	require.NoError(t, err)
	assert.True(t, r.Changes[Holding{Account: bob, Currency: amount.XDV}].Equal(decimal.NewFromInt(40)))
	assert.Equal(t, []Holding{{Account: alice, Currency: amount.XDV}, {Account: bob, Currency: amount.XDV}}, r.Holdings())
}

func TestCheckDetectsLoss(t *testing.T) {
	l := market(t)
	before := l.Entries()

	t.Run("drops left in limbo", func(t *testing.T) {
		view := state.NewSandbox(l)
		require.Equal(t, ter.TesSUCCESS, view.TransferXDV(alice, amount.XDVAccount, amount.NewNative(40)))
		journal := view.Transfers()
		_, err := Check(before, applied(t, view), journal)
		assert.ErrorIs(t, err, ErrNativeImbalance)
	})

	t.Run("unjournaled change", func(t *testing.T) {
		view := state.NewSandbox(l)
		require.Equal(t, ter.TesSUCCESS, view.DivvyCredit(gw, bob, val(t, eur, "5")))
		_, err := Check(before, applied(t, view), nil)
		assert.ErrorIs(t, err, ErrJournalMismatch)
	})
}

// applied returns the entries of a copy of the ledger with view applied.
func applied(t *testing.T, view *state.Sandbox) []state.Entry {
	t.Helper()
	l := market(t)
	copied := state.NewSandbox(l)
	copied.SwapWith(view)
	require.NoError(t, copied.Apply())
	return l.Entries()
}

func TestCompare(t *testing.T) {
	l := market(t)
	before := l.Entries()

	view := state.NewSandbox(l)
	require.Equal(t, ter.TesSUCCESS, view.DivvyCredit(gw, bob, val(t, eur, "5")))
	require.NoError(t, view.Apply())

	r, err := Compare(before, l.Entries())
	require.NoError(t, err)
	assert.Zero(t, r.Transfers)
	assert.True(t, r.Changes[Holding{Account: bob, Currency: "EUR"}].Equal(decimal.NewFromInt(5)))
	assert.True(t, r.Outstanding[eur].Equal(decimal.NewFromInt(5)))
}
