package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

var (
	alice = amount.MustParseAccountID("0000000000000000000000000000000000000A01")
	bob   = amount.MustParseAccountID("0000000000000000000000000000000000000B01")
)

func TestObservePayment(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewEngine(reg, "divvyd")

	l, err := state.NewLedger(state.LedgerConfig{Fees: state.Fees{ReserveBase: 200, ReserveIncrement: 50}, Open: true})
	require.NoError(t, err)
	require.NoError(t, l.Insert(&state.AccountRoot{ID: alice, Balance: amount.NewNative(10_000)}))
	require.NoError(t, l.Insert(&state.AccountRoot{ID: bob, Balance: amount.NewNative(10_000)}))

	for _, drops := range []int64{500, 9_900} {
		out, err := paths.Calculate(context.Background(), state.NewSandbox(l), paths.Request{
			Source:      alice,
			Destination: bob,
			Amount:      amount.NewNative(drops),
			Options:     paths.DefaultOptions(),
		})
		require.NoError(t, err)
		e.ObservePayment(out)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(e.calculations.WithLabelValues("tesSUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.calculations.WithLabelValues("tecUNFUNDED_PAYMENT")))
	assert.Zero(t, testutil.ToFloat64(e.pathsDropped))

	e.ObservePayment(&paths.Output{Result: ter.TesSUCCESS, Passes: 3, Removed: []keylet.Key{{1}, {2}}})
	assert.Equal(t, 2.0, testutil.ToFloat64(e.offersRemoved))
	assert.Equal(t, 1, testutil.CollectAndCount(e.passes))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "divvyd_paths_calculations_total")
	assert.Contains(t, names, "divvyd_offers_removed_total")
}

func TestObserveCross(t *testing.T) {
	e := NewEngine(prometheus.NewRegistry(), "divvyd")
	e.ObserveCross(&taker.Outcome{Result: ter.TesSUCCESS, Direct: 2, Bridged: 1, Removed: []keylet.Key{{9}}})

	assert.Equal(t, 2.0, testutil.ToFloat64(e.crossings.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.crossings.WithLabelValues("bridged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.crossResults.WithLabelValues("tesSUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.offersRemoved))
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	assert.NotPanics(t, func() {
		e.ObservePayment(&paths.Output{})
		e.ObserveCross(&taker.Outcome{})
	})
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewEngine(reg, "divvyd")
	assert.Panics(t, func() { NewEngine(reg, "divvyd") })
}
