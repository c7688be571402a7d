package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goDivvyd/internal/audit"
	"github.com/LeJamon/goDivvyd/internal/fixture"
	"github.com/LeJamon/goDivvyd/internal/logging"
	"github.com/LeJamon/goDivvyd/internal/storage/journal"
	"github.com/LeJamon/goDivvyd/internal/storage/snapshot"
)

// runOptions control one scenario run.
type runOptions struct {
	verify bool
	audit  bool
	// from replaces the scenario ledger with a stored snapshot.
	from string
	// save stores the resulting ledger under this name.
	save  string
	store snapshot.Store
}

// report is what calc and batch print for a scenario.
type report struct {
	File      string   `codec:"file"`
	Scenario  string   `codec:"scenario"`
	ID        string   `codec:"id"`
	Result    string   `codec:"result"`
	Delivered string   `codec:"delivered"`
	Sent      string   `codec:"sent"`
	Passes    int      `codec:"passes,omitempty"`
	Removed   int      `codec:"removed"`
	Verified  bool     `codec:"verified,omitempty"`
	Problems  []string `codec:"problems,omitempty"`
	Audit     []string `codec:"audit,omitempty"`
}

func (r *report) ok() bool { return len(r.Problems) == 0 }

// runScenario loads, runs and checks the scenario stored at path.
func (a *env) runScenario(ctx context.Context, path string, opts runOptions) (*report, error) {
	s, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	setup, err := fixture.Build(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if opts.from != "" {
		l, err := opts.store.Get(opts.from)
		if err != nil {
			return nil, err
		}
		setup.Ledger = l
	}

	logger := logging.Component(a.logger, "scenario").WithField("file", path)
	runner := fixture.NewRunner(a.cfg.Engine.Limits(), logger)
	runner.Options = a.cfg.Engine.Options()

	run, err := runner.Run(ctx, setup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rep := &report{
		File:      path,
		Scenario:  s.Name,
		Result:    run.Result.String(),
		Delivered: run.Delivered.String(),
		Sent:      run.Sent.String(),
		Removed:   len(run.Removed),
	}
	switch {
	case run.Payment != nil:
		rep.ID = run.Payment.ID
		rep.Passes = run.Payment.Passes
		a.metrics.ObservePayment(run.Payment)
		req, err := setup.RequestWith(runner.Options)
		if err == nil {
			a.record(ctx, journal.PaymentEntry(s.Name, req, run.Payment))
		}
	case run.Cross != nil:
		rep.ID = uuid.New().String()
		a.metrics.ObserveCross(run.Cross)
		a.record(ctx, journal.CrossEntry(rep.ID, s.Name, s.Cross.Account, run.Cross))
	}

	if opts.verify {
		rep.Verified = true
		if err := fixture.Verify(setup, run); err != nil {
			if !errors.Is(err, fixture.ErrMismatch) {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			rep.Problems = append(rep.Problems, splitErrors(err)...)
		}
	}
	if opts.audit {
		r, err := audit.Check(run.Before, setup.Ledger.Entries(), run.Journal)
		if err != nil {
			rep.Problems = append(rep.Problems, err.Error())
		}
		if r != nil {
			for _, h := range r.Holdings() {
				rep.Audit = append(rep.Audit, fmt.Sprintf("%s %s", h, r.Changes[h]))
			}
		}
	}
	if opts.save != "" {
		if err := opts.store.Put(opts.save, setup.Ledger); err != nil {
			return nil, err
		}
	}

	logger.WithFields(log.Fields{
		"result":   rep.Result,
		"problems": len(rep.Problems),
	}).Info("scenario done")
	return rep, nil
}

// splitErrors flattens a joined error into its messages.
func splitErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

var jsonOut = func() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.Indent = 2
	return h
}()

// writeJSON encodes v followed by a newline.
func writeJSON(w io.Writer, v any) error {
	if err := codec.NewEncoder(w, jsonOut).Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// printReport writes a human readable report.
func printReport(w io.Writer, r *report) {
	status := "ok"
	if !r.ok() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%-4s %s (%s)\n", status, r.Scenario, r.File)
	fmt.Fprintf(w, "     result %s, delivered %s, sent %s", r.Result, r.Delivered, r.Sent)
	if r.Passes > 0 {
		fmt.Fprintf(w, ", %d passes", r.Passes)
	}
	fmt.Fprintf(w, ", %d offers removed\n", r.Removed)
	for _, line := range r.Audit {
		fmt.Fprintf(w, "     moved %s\n", line)
	}
	for _, p := range r.Problems {
		fmt.Fprintf(w, "     %s\n", p)
	}
}
