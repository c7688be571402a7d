package book

import (
	"testing"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice   = amount.MustParseAccountID("0000000000000000000000000000000000000A01")
	bob     = amount.MustParseAccountID("0000000000000000000000000000000000000B01")
	carol   = amount.MustParseAccountID("0000000000000000000000000000000000000C01")
	gateway = amount.MustParseAccountID("00000000000000000000000000000000000D0001")
	usd     = amount.NewIssue("USD", gateway)
	xdvUSD  = amount.Book{In: amount.NativeIssue, Out: usd}
)

func usdAmt(t *testing.T, v string) amount.Amount {
	t.Helper()
	a, err := amount.ParseValue(usd, v)
	require.NoError(t, err)
	return a
}

// newBookLedger funds alice and bob with 100 USD each; carol holds none.
func newBookLedger(t *testing.T) *state.Ledger {
	t.Helper()
	l, err := state.NewLedger(state.LedgerConfig{
		Fees:      state.Fees{ReserveBase: 200, ReserveIncrement: 50},
		CloseTime: 1000,
		Open:      true,
	})
	require.NoError(t, err)
	for _, id := range []amount.AccountID{alice, bob, carol, gateway} {
		require.NoError(t, l.Insert(&state.AccountRoot{ID: id, Balance: amount.NewNative(10_000)}))
	}
	for _, holder := range []amount.AccountID{alice, bob, carol} {
		line := state.NewTrustLine(holder, gateway, "USD")
		if line.IsLow(holder) {
			line.LowLimit = usdAmt(t, "1000").WithIssuer(holder)
		} else {
			line.HighLimit = usdAmt(t, "1000").WithIssuer(holder)
		}
		if holder != carol {
			line.SetBalanceFor(holder, usdAmt(t, "100"))
		}
		require.NoError(t, l.Insert(line))
	}
	return l
}

func insertOffer(t *testing.T, l *state.Ledger, o *state.Offer) *state.Offer {
	t.Helper()
	require.NoError(t, l.Insert(o))
	return o
}

func TestOfferConsume(t *testing.T) {
	l := newBookLedger(t)
	entry := insertOffer(t, l, &state.Offer{
		Owner: alice, Sequence: 1,
		TakerPays: amount.NewNative(200), TakerGets: usdAmt(t, "10"),
	})

	t.Run("partial", func(t *testing.T) {
		sb := state.NewSandbox(l)
		o, ok := sb.Offer(entry.Keylet().Key)
		require.True(t, ok)
		offer := NewOffer(o, o.Quality)

		require.NoError(t, offer.Consume(sb, quality.Amounts{In: amount.NewNative(50), Out: usdAmt(t, "2.5")}))
		after, ok := sb.Offer(entry.Keylet().Key)
		require.True(t, ok)
		assert.Equal(t, amount.NewNative(150), after.TakerPays)
		assert.Equal(t, "7.5", after.TakerGets.Value())
		assert.Equal(t, entry.Quality, after.Quality)
	})

	t.Run("full deletes", func(t *testing.T) {
		sb := state.NewSandbox(l)
		o, _ := sb.Offer(entry.Keylet().Key)
		offer := NewOffer(o, o.Quality)

		require.NoError(t, offer.Consume(sb, offer.Amounts()))
		assert.False(t, sb.Exists(entry.Keylet()))
	})

	t.Run("overconsume is fatal", func(t *testing.T) {
		sb := state.NewSandbox(l)
		o, _ := sb.Offer(entry.Keylet().Key)
		offer := NewOffer(o, o.Quality)

		err := offer.Consume(sb, quality.Amounts{In: amount.NewNative(201), Out: usdAmt(t, "10")})
		require.ErrorIs(t, err, ErrNegativeOffer)
		assert.Zero(t, sb.Changes())
	})
}

func TestDirectoryWalk(t *testing.T) {
	l := newBookLedger(t)
	best := insertOffer(t, l, &state.Offer{Owner: alice, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "2")})
	same := insertOffer(t, l, &state.Offer{Owner: bob, Sequence: 1, TakerPays: amount.NewNative(50), TakerGets: usdAmt(t, "1")})
	worse := insertOffer(t, l, &state.Offer{Owner: bob, Sequence: 2, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "1")})

	d := NewDirectory(xdvUSD)
	d.Initialize()
	require.Equal(t, NewQuality, d.Advance(l))
	assert.Equal(t, best.Quality, d.Current())

	k, ok := d.Next(l)
	require.True(t, ok)
	assert.Equal(t, best.Keylet().Key, k)
	k, ok = d.Next(l)
	require.True(t, ok)
	assert.Equal(t, same.Keylet().Key, k)
	_, ok = d.Next(l)
	assert.False(t, ok)

	t.Run("restart replays tier", func(t *testing.T) {
		d.Restart(false)
		require.Equal(t, NewQuality, d.Advance(l))
		assert.Equal(t, best.Quality, d.Current())
		k, _ := d.Next(l)
		assert.Equal(t, best.Keylet().Key, k)
	})

	d.AdvanceNeeded = true
	require.Equal(t, NewQuality, d.Advance(l))
	assert.Equal(t, worse.Quality, d.Current())
	k, _ = d.Next(l)
	assert.Equal(t, worse.Keylet().Key, k)

	d.AdvanceNeeded = true
	assert.Equal(t, EndAdvance, d.Advance(l))
	assert.True(t, d.Current().IsZero())

	t.Run("multi quality restart rewinds book", func(t *testing.T) {
		d.Initialize()
		require.Equal(t, NewQuality, d.Advance(l))
		d.AdvanceNeeded = true
		require.Equal(t, NewQuality, d.Advance(l))
		d.Restart(true)
		d.Initialize()
		require.Equal(t, NewQuality, d.Advance(l))
		assert.Equal(t, best.Quality, d.Current())
	})

	assert.Equal(t, NoAdvance, d.Advance(l))
	d.Reset()
	assert.True(t, d.Current().IsZero())
	assert.Equal(t, xdvUSD, d.Book())
}

func TestOfferStream(t *testing.T) {
	tests := []struct {
		name     string
		offer    *state.Offer
		drain    bool
		usable   bool
		canceled bool
	}{
		{
			name:   "funded",
			offer:  &state.Offer{Owner: alice, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "5")},
			usable: true,
		},
		{
			name:     "expired",
			offer:    &state.Offer{Owner: alice, Sequence: 2, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "5"), Expiration: 1000},
			canceled: true,
		},
		{
			name:     "found unfunded",
			offer:    &state.Offer{Owner: carol, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "5")},
			canceled: true,
		},
		{
			name:  "became unfunded",
			offer: &state.Offer{Owner: bob, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "5")},
			drain: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newBookLedger(t)
			insertOffer(t, l, tt.offer)
			key := tt.offer.Keylet()

			cancel := state.NewSandbox(l)
			view := state.NewSandbox(l)
			if tt.drain {
				require.True(t, view.AccountSend(bob, carol, usdAmt(t, "100")).IsSuccess())
			}

			stream := NewOfferStream(view, cancel, xdvUSD, l.CloseTime(), nil)
			require.Equal(t, tt.usable, stream.Step())

			if tt.usable {
				assert.Equal(t, key.Key, stream.Tip().Key())
				assert.Equal(t, "100", stream.OwnerFunds().Value())
				assert.False(t, stream.Step())
				return
			}
			assert.Nil(t, stream.Tip())
			assert.Equal(t, []keylet.Key{key.Key}, stream.Removed())
			assert.False(t, view.Exists(key))
			assert.Equal(t, !tt.canceled, cancel.Exists(key))
		})
	}
}

func TestOfferStreamSkipsToNextOffer(t *testing.T) {
	l := newBookLedger(t)
	insertOffer(t, l, &state.Offer{Owner: carol, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "5")})
	funded := insertOffer(t, l, &state.Offer{Owner: alice, Sequence: 1, TakerPays: amount.NewNative(100), TakerGets: usdAmt(t, "1")})

	stream := NewOfferStream(state.NewSandbox(l), state.NewSandbox(l), xdvUSD, l.CloseTime(), nil)
	require.True(t, stream.Step())
	assert.Equal(t, funded.Keylet().Key, stream.Tip().Key())
	assert.Len(t, stream.Removed(), 1)
}
