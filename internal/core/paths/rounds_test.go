package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/audit"
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

var (
	erin = amount.MustParseAccountID("0000000000000000000000000000000000000E02")

	viaBook = Path{BookElement("EUR", gw)}
	viaXDV  = Path{BookElement(amount.XDV, amount.XDVAccount), BookElement("EUR", gw)}
)

// bridge adds a USD to EUR route through XDV: dave sells 1000 drops for
// usdPrice USD and erin sells 10 EUR for the same 1000 drops.
func bridge(t *testing.T, l *state.Ledger, usdPrice string) (toXDV, toEUR keylet.Key) {
	t.Helper()
	require.NoError(t, l.Insert(&state.AccountRoot{ID: erin, Balance: amount.NewNative(10_000)}))
	trust(t, l, dave, usd, "100", "0")
	trust(t, l, erin, eur, "100", "100")
	toXDV = offer(t, l, dave, 1, val(t, usd, usdPrice), amount.NewNative(1000))
	toEUR = offer(t, l, erin, 1, amount.NewNative(1000), val(t, eur, "10"))
	return toXDV, toEUR
}

func books(ps *PathState) int {
	n := 0
	for _, node := range ps.Nodes {
		if node.Kind == BookNode {
			n++
		}
	}
	return n
}

// adopted returns the path chosen by round i.
func adopted(t *testing.T, out *Output, i int) *PathState {
	t.Helper()
	require.Greater(t, len(out.Rounds), i)
	idx := out.Rounds[i].Path
	require.Less(t, idx, len(out.PathStates))
	ps := out.PathStates[idx]
	require.Equal(t, idx, ps.Index())
	return ps
}

func TestBridgedPayment(t *testing.T) {
	l := newLedger(t)
	trust(t, l, alice, usd, "100", "50")
	trust(t, l, bob, eur, "100", "0")
	toXDV, toEUR := bridge(t, l, "10")
	before := l.Entries()

	out, view := pay(t, nil, l, Request{
		Source:      alice,
		Destination: bob,
		Amount:      val(t, eur, "10"),
		SendMax:     ptr(val(t, usd, "15")),
		Paths:       PathSet{viaXDV},
		Options:     DefaultOptions(),
	})

	require.Equal(t, ter.TesSUCCESS, out.Result)
	assert.Equal(t, "10", out.ActualAmountIn.Value())
	assert.Equal(t, "10", out.ActualAmountOut.Value())
	ps := adopted(t, out, 0)
	assert.Equal(t, 2, books(ps))
	assert.Equal(t, bob, ps.Nodes[len(ps.Nodes)-1].Account)

	assert.Equal(t, "40", holds(view, alice, usd))
	assert.Equal(t, "10", holds(view, bob, eur))
	assert.Equal(t, "10", holds(view, dave, usd))
	assert.Equal(t, "90", holds(view, erin, eur))
	d, _ := view.Account(dave)
	e, _ := view.Account(erin)
	assert.Equal(t, amount.NewNative(9_000), d.Balance)
	assert.Equal(t, amount.NewNative(11_000), e.Balance)
	assert.ElementsMatch(t, []keylet.Key{toXDV, toEUR}, out.Removed)

	journal := view.Transfers()
	require.NoError(t, view.Apply())
	r, err := audit.Check(before, l.Entries(), journal)
	require.NoError(t, err)
	assert.True(t, r.Limbo.IsZero())
	assert.True(t, r.Native.IsZero())
}

func TestBestPathWins(t *testing.T) {
	tests := []struct {
		name     string
		paths    PathSet
		defaults bool
	}{
		{name: "book listed first", paths: PathSet{viaBook, viaXDV}},
		{name: "bridge listed first", paths: PathSet{viaXDV, viaBook}},
		{name: "book listed first after the default path", paths: PathSet{viaBook, viaXDV}, defaults: true},
		{name: "bridge listed first after the default path", paths: PathSet{viaXDV, viaBook}, defaults: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// carol's book costs 1.5 USD per EUR, the bridge 1.
			l, carolKey := eurBook(t)
			toXDV, toEUR := bridge(t, l, "10")

			opts := DefaultOptions()
			opts.DefaultPathsAllowed = tt.defaults
			out, view := pay(t, nil, l, Request{
				Source:      alice,
				Destination: bob,
				Amount:      val(t, eur, "10"),
				SendMax:     ptr(val(t, usd, "15")),
				Paths:       tt.paths,
				Options:     opts,
			})

			require.Equal(t, ter.TesSUCCESS, out.Result)
			assert.Equal(t, 1, out.Passes)
			require.Len(t, out.Rounds, 1)
			assert.Equal(t, 2, books(adopted(t, out, 0)))
			assert.Equal(t, "10", out.ActualAmountIn.Value())
			assert.Equal(t, "10", out.ActualAmountOut.Value())
			assert.Equal(t, "40", holds(view, alice, usd))
			assert.Equal(t, "10", holds(view, bob, eur))

			left, ok := view.Offer(carolKey)
			require.True(t, ok)
			assert.Equal(t, "20", left.TakerGets.Value())
			assert.ElementsMatch(t, []keylet.Key{toXDV, toEUR}, out.Removed)
		})
	}
}

func TestEqualQualityKeepsEarliestPath(t *testing.T) {
	tests := []struct {
		name  string
		paths PathSet
		books int
	}{
		{name: "same route twice", paths: PathSet{viaBook, viaBook}, books: 1},
		{name: "book listed first", paths: PathSet{viaBook, viaXDV}, books: 1},
		{name: "bridge listed first", paths: PathSet{viaXDV, viaBook}, books: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Both routes turn exactly 15 USD into 10 EUR.
			l := newLedger(t)
			trust(t, l, alice, usd, "100", "50")
			trust(t, l, bob, eur, "100", "0")
			trust(t, l, carol, eur, "100", "100")
			trust(t, l, carol, usd, "100", "0")
			offer(t, l, carol, 1, val(t, usd, "15"), val(t, eur, "10"))
			bridge(t, l, "15")

			opts := DefaultOptions()
			opts.DefaultPathsAllowed = false
			out, _ := pay(t, nil, l, Request{
				Source:      alice,
				Destination: bob,
				Amount:      val(t, eur, "10"),
				SendMax:     ptr(val(t, usd, "15")),
				Paths:       tt.paths,
				Options:     opts,
			})

			require.Equal(t, ter.TesSUCCESS, out.Result)
			require.Len(t, out.Rounds, 1)
			assert.Equal(t, 0, out.Rounds[0].Path)
			assert.Equal(t, tt.books, books(adopted(t, out, 0)))
			assert.Equal(t, "15", out.ActualAmountIn.Value())
		})
	}
}

func TestRoundsDeliverMonotonically(t *testing.T) {
	// The bridge is cheaper but holds only 10 EUR; carol's book supplies
	// the rest.
	l, _ := eurBook(t)
	bridge(t, l, "10")

	opts := DefaultOptions()
	opts.DefaultPathsAllowed = false
	opts.PartialPaymentAllowed = true
	req := Request{
		Source:      alice,
		Destination: bob,
		Amount:      val(t, eur, "30"),
		SendMax:     ptr(val(t, usd, "40")),
		Paths:       PathSet{viaBook, viaXDV},
		Options:     opts,
	}
	out, view := pay(t, nil, l, req)

	require.Equal(t, ter.TesSUCCESS, out.Result)
	assert.Equal(t, "40", out.ActualAmountIn.Value())
	assert.Equal(t, "30", out.ActualAmountOut.Value())
	assert.Equal(t, "30", holds(view, bob, eur))
	assert.Equal(t, 2, out.Passes)
	require.Len(t, out.Rounds, 2)

	delivered := req.Amount.Zeroed()
	for i, r := range out.Rounds {
		assert.Equal(t, i+1, r.Pass)
		assert.True(t, r.Out.IsPositive(), "round %d moved nothing", i)
		assert.True(t, r.Delivered.Equal(delivered.Add(r.Out)), "round %d delivered %s", i, r.Delivered)
		assert.False(t, r.Delivered.Greater(req.Amount), "round %d overdelivered %s", i, r.Delivered)
		delivered = r.Delivered
	}
	assert.True(t, delivered.Equal(out.ActualAmountOut))

	// The bridge ran out in the first round and is never picked again.
	bridged := adopted(t, out, 0)
	assert.Equal(t, 2, books(bridged))
	assert.Equal(t, "10", out.Rounds[0].Out.Value())
	assert.Equal(t, PhaseDry, bridged.Phase())
	assert.True(t, bridged.Quality().IsZero())
	for _, r := range out.Rounds[1:] {
		assert.NotEqual(t, bridged.Index(), r.Path)
	}
	assert.Equal(t, 1, books(adopted(t, out, 1)))
	assert.Equal(t, "20", out.Rounds[1].Out.Value())
}

func TestDroppedPathKeepsEarlierSuccess(t *testing.T) {
	// dave's line to gw has no room, so routing through dave dries at
	// expansion.
	viaDave := Path{AccountElement(dave), BookElement("EUR", gw)}

	tests := []struct {
		name  string
		paths PathSet
		want  ter.Result
	}{
		{name: "dropped path after a usable one", paths: PathSet{viaBook, viaDave}, want: ter.TesSUCCESS},
		{name: "dropped path before a usable one", paths: PathSet{viaDave, viaBook}, want: ter.TesSUCCESS},
		{name: "only the dropped path", paths: PathSet{viaDave}, want: ter.TecPATH_DRY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := eurBook(t)
			trust(t, l, dave, usd, "0", "0")

			opts := DefaultOptions()
			opts.DefaultPathsAllowed = false
			out, view := pay(t, nil, l, Request{
				Source:      alice,
				Destination: bob,
				Amount:      val(t, eur, "10"),
				SendMax:     ptr(val(t, usd, "15")),
				Paths:       tt.paths,
				Options:     opts,
			})

			require.Equal(t, tt.want, out.Result)
			require.Len(t, out.PathStates, len(tt.paths))
			for i, ps := range out.PathStates {
				assert.Equal(t, i, ps.Index())
				if tt.paths[i][0].IsAccount() {
					assert.Equal(t, ter.TecPATH_DRY, ps.Status())
					assert.Equal(t, PhaseDry, ps.Phase())
				}
			}
			if tt.want == ter.TesSUCCESS {
				assert.Equal(t, "10", holds(view, bob, eur))
				assert.Equal(t, 1, books(adopted(t, out, 0)))
			}
		})
	}
}
