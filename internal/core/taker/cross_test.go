package taker

import (
	"testing"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCrossLedger(t *testing.T) *state.Ledger {
	t.Helper()
	l, err := state.NewLedger(state.LedgerConfig{
		Fees:      state.Fees{ReserveBase: 200, ReserveIncrement: 50},
		CloseTime: 500,
		Open:      true,
	})
	require.NoError(t, err)
	for _, id := range []amount.AccountID{alice, bob, carol, dave, gateway} {
		require.NoError(t, l.Insert(&state.AccountRoot{ID: id, Balance: drops(10_000)}))
	}
	return l
}

func fund(t *testing.T, l *state.Ledger, holder amount.AccountID, a amount.Amount) {
	t.Helper()
	line := state.NewTrustLine(holder, a.Issuer(), a.Currency())
	limit := iou(t, a.Issue(), "1000").WithIssuer(holder)
	if line.IsLow(holder) {
		line.LowLimit = limit
	} else {
		line.HighLimit = limit
	}
	line.SetBalanceFor(holder, a)
	require.NoError(t, l.Insert(line))
}

func place(t *testing.T, l *state.Ledger, owner amount.AccountID, seq uint32, pays, gets amount.Amount) keylet.Keylet {
	t.Helper()
	o := &state.Offer{Owner: owner, Sequence: seq, TakerPays: pays, TakerGets: gets}
	require.NoError(t, l.Insert(o))
	return o.Keylet()
}

func TestCrossDirect(t *testing.T) {
	l := newCrossLedger(t)
	fund(t, l, alice, iou(t, usd, "100"))
	fund(t, l, bob, iou(t, usd, "50"))
	offer := place(t, l, bob, 1, drops(100), iou(t, usd, "10"))
	// Better priced, but carol holds no USD.
	stale := place(t, l, carol, 1, drops(10), iou(t, usd, "5"))

	view := state.NewSandbox(l)
	cancel := state.NewSandbox(l)
	out, err := CrossOffers(view, cancel, alice, quality.Amounts{In: drops(100), Out: iou(t, usd, "5")}, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, ter.TesSUCCESS, out.Result)
	assert.Equal(t, 1, out.Direct)
	assert.Zero(t, out.Bridged)
	assert.True(t, out.Remaining.Out.IsZero())
	assert.Equal(t, []keylet.Key{stale.Key}, out.Removed)
	assert.False(t, cancel.Exists(stale))

	assert.Equal(t, "105", state.AccountHolds(view, alice, usd).Value())
	assert.Equal(t, "45", state.AccountHolds(view, bob, usd).Value())

	acct, _ := view.Account(alice)
	assert.Equal(t, drops(9_950), acct.Balance)
	acct, _ = view.Account(bob)
	assert.Equal(t, drops(10_050), acct.Balance)

	left, ok := view.Offer(offer.Key)
	require.True(t, ok)
	assert.Equal(t, drops(50), left.TakerPays)
	assert.Equal(t, "5", left.TakerGets.Value())

	// The ledger itself is untouched until the sandbox is applied.
	_, ok = l.Read(stale)
	assert.True(t, ok)
}

func TestCrossSkipsOwnOffers(t *testing.T) {
	l := newCrossLedger(t)
	fund(t, l, alice, iou(t, usd, "100"))
	fund(t, l, bob, iou(t, usd, "50"))
	own := place(t, l, alice, 1, drops(10), iou(t, usd, "5"))
	place(t, l, bob, 1, drops(100), iou(t, usd, "10"))

	view := state.NewSandbox(l)
	out, err := CrossOffers(view, state.NewSandbox(l), alice, quality.Amounts{In: drops(100), Out: iou(t, usd, "5")}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Direct)
	assert.True(t, view.Exists(own))
}

func TestCrossStopsAtQualityLimit(t *testing.T) {
	l := newCrossLedger(t)
	fund(t, l, alice, iou(t, usd, "100"))
	fund(t, l, bob, iou(t, usd, "50"))
	place(t, l, bob, 1, drops(100), iou(t, usd, "10"))

	view := state.NewSandbox(l)
	// alice pays at most 5 drops per USD; the book asks 10.
	out, err := CrossOffers(view, state.NewSandbox(l), alice, quality.Amounts{In: drops(25), Out: iou(t, usd, "5")}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, ter.TesSUCCESS, out.Result)
	assert.Zero(t, out.Direct)
	assert.Equal(t, quality.Amounts{In: drops(25), Out: iou(t, usd, "5")}, out.Remaining)
}

func TestCrossAutobridge(t *testing.T) {
	l := newCrossLedger(t)
	fund(t, l, alice, iou(t, usd, "100"))
	fund(t, l, carol, iou(t, eur, "100"))
	fund(t, l, dave, iou(t, eur, "100"))

	// Direct: 2 USD per EUR. Bridged: 0.1 USD per drop then 10 drops per EUR.
	direct := place(t, l, carol, 1, iou(t, usd, "10"), iou(t, eur, "5"))
	leg1 := place(t, l, bob, 1, iou(t, usd, "1"), drops(10))
	leg2 := place(t, l, dave, 1, drops(10), iou(t, eur, "1"))

	view := state.NewSandbox(l)
	out, err := CrossOffers(view, state.NewSandbox(l), alice, quality.Amounts{In: iou(t, usd, "10"), Out: iou(t, eur, "10")}, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, ter.TesSUCCESS, out.Result)
	assert.Equal(t, 1, out.Bridged)
	assert.Zero(t, out.Direct)
	assert.Equal(t, drops(10), out.XdvFlow)

	assert.False(t, view.Exists(leg1))
	assert.False(t, view.Exists(leg2))
	assert.True(t, view.Exists(direct))

	assert.Equal(t, "99", state.AccountHolds(view, alice, usd).Value())
	assert.Equal(t, "1", state.AccountHolds(view, alice, eur).Value())
	assert.Equal(t, "1", state.AccountHolds(view, bob, usd).Value())
	assert.Equal(t, "99", state.AccountHolds(view, dave, eur).Value())

	b, _ := view.Account(bob)
	d, _ := view.Account(dave)
	assert.Equal(t, drops(9_990), b.Balance)
	assert.Equal(t, drops(10_010), d.Balance)
}

func TestCrossNativeForNative(t *testing.T) {
	l := newCrossLedger(t)
	_, err := CrossOffers(state.NewSandbox(l), state.NewSandbox(l), alice, quality.Amounts{In: drops(1), Out: drops(1)}, 0, nil)
	assert.Error(t, err)
}
