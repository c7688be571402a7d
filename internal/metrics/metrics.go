// Package metrics exposes the payment engine counters on a prometheus
// registry owned by the caller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// Engine collects calculation and crossing metrics. A nil *Engine is valid
// and records nothing.
type Engine struct {
	calculations  *prometheus.CounterVec
	passes        prometheus.Histogram
	pathsDropped  prometheus.Counter
	offersRemoved prometheus.Counter
	crossings     *prometheus.CounterVec
	crossResults  *prometheus.CounterVec
}

// NewEngine creates the collectors under namespace and registers them.
func NewEngine(reg prometheus.Registerer, namespace string) *Engine {
	e := &Engine{
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paths",
			Name:      "calculations_total",
			Help:      "payment calculations by result code",
		}, []string{"result"}),
		passes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "paths",
			Name:      "passes",
			Help:      "passes over the paths per calculation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100, 1000},
		}),
		pathsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paths",
			Name:      "dropped_total",
			Help:      "paths that ended without delivering",
		}),
		offersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_removed_total",
			Help:      "offers deleted as consumed, unfunded or expired",
		}),
		crossings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "taker",
			Name:      "crossings_total",
			Help:      "offers crossed, by kind",
		}, []string{"kind"}),
		crossResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "taker",
			Name:      "results_total",
			Help:      "offer crossings by result code",
		}, []string{"result"}),
	}
	reg.MustRegister(e.calculations, e.passes, e.pathsDropped, e.offersRemoved, e.crossings, e.crossResults)
	return e
}

// ObservePayment records one calculation outcome.
func (e *Engine) ObservePayment(out *paths.Output) {
	if e == nil || out == nil {
		return
	}
	e.calculations.WithLabelValues(out.Result.String()).Inc()
	if out.Passes > 0 {
		e.passes.Observe(float64(out.Passes))
	}
	for _, ps := range out.PathStates {
		if ps.Status() != ter.TesSUCCESS {
			e.pathsDropped.Inc()
		}
	}
	e.offersRemoved.Add(float64(len(out.Removed)))
}

// ObserveCross records one offer crossing outcome.
func (e *Engine) ObserveCross(out *taker.Outcome) {
	if e == nil || out == nil {
		return
	}
	e.crossResults.WithLabelValues(out.Result.String()).Inc()
	e.crossings.WithLabelValues("direct").Add(float64(out.Direct))
	e.crossings.WithLabelValues("bridged").Add(float64(out.Bridged))
	e.offersRemoved.Add(float64(len(out.Removed)))
}
