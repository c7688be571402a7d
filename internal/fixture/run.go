package fixture

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// ErrMismatch wraps every difference between a run and its expectations.
var ErrMismatch = errors.New("scenario mismatch")

// Run is the outcome of executing a scenario.
type Run struct {
	Result    ter.Result
	Delivered amount.Amount
	Sent      amount.Amount
	Removed   []keylet.Key

	// Payment or Cross is set depending on the scenario.
	Payment *paths.Output
	Cross   *taker.Outcome

	// Before and Journal feed the conservation audit.
	Before  []state.Entry
	Journal []state.Transfer
}

// Runner executes scenarios.
type Runner struct {
	Calculator *paths.Calculator
	// Options are the payment flags scenarios start from.
	Options paths.Options
	Logger  *log.Entry
}

// NewRunner creates a runner with the given payment limits.
func NewRunner(limits paths.Limits, logger *log.Entry) *Runner {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Runner{
		Calculator: paths.NewCalculator(limits, logger),
		Options:    paths.DefaultOptions(),
		Logger:     logger,
	}
}

// Run executes the payment or crossing of s and applies successful
// changes to its ledger.
func (r *Runner) Run(ctx context.Context, s *Setup) (*Run, error) {
	run := &Run{Before: s.Ledger.Entries()}
	view := state.NewSandbox(s.Ledger)

	switch {
	case s.Scenario.Payment != nil:
		req, err := s.RequestWith(r.Options)
		if err != nil {
			return nil, err
		}
		out, err := r.Calculator.Calculate(ctx, view, req)
		if err != nil {
			return nil, err
		}
		run.Payment = out
		run.Result = out.Result
		run.Delivered = out.ActualAmountOut
		run.Sent = out.ActualAmountIn
		run.Removed = out.Removed

	case s.Scenario.Cross != nil:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		account, amounts, flags, err := s.Cross()
		if err != nil {
			return nil, err
		}
		cancel := state.NewSandbox(s.Ledger)
		out, err := taker.CrossOffers(view, cancel, account, amounts, flags, r.Logger)
		if err != nil {
			return nil, fmt.Errorf("cross: %w", err)
		}
		run.Cross = out
		run.Result = out.Result
		run.Delivered = amounts.Out.Sub(out.Remaining.Out)
		run.Sent = amounts.In.Sub(out.Remaining.In)
		run.Removed = out.Removed
		if out.Result != ter.TesSUCCESS {
			view = cancel
		}
	}

	run.Journal = view.Transfers()
	if err := view.Apply(); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	r.Logger.WithFields(log.Fields{
		"scenario": s.Scenario.Name,
		"result":   run.Result.String(),
	}).Debug("scenario run")
	return run, nil
}

// Verify compares run with the expectations of s. All differences are
// reported together.
func Verify(s *Setup, run *Run) error {
	exp := s.Scenario.Expect
	var errs []error
	mismatch := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrMismatch}, args...)...))
	}

	want, err := ter.ParseResult(exp.Result)
	if err != nil {
		return fmt.Errorf("expect.result: %w", err)
	}
	if run.Result != want {
		mismatch("result %s, want %s", run.Result, want)
	}

	for _, c := range []struct {
		name string
		want string
		got  amount.Amount
	}{
		{"delivered", exp.Delivered, run.Delivered},
		{"sent", exp.Sent, run.Sent},
	} {
		if c.want == "" {
			continue
		}
		a, err := s.Accounts.Amount(c.want)
		if err != nil {
			return fmt.Errorf("expect.%s: %w", c.name, err)
		}
		if !sameAmount(a, c.got) {
			mismatch("%s %s, want %s", c.name, c.got, a)
		}
	}

	for _, b := range exp.Balances {
		got, want, err := s.balance(b)
		if err != nil {
			return fmt.Errorf("expect.balances: %w", err)
		}
		if !sameAmount(got, want) {
			mismatch("%s %s balance %s, want %s", b.Account, b.Currency, got.Value(), want.Value())
		}
	}

	if exp.Removed != nil && len(run.Removed) != *exp.Removed {
		mismatch("%d offers removed, want %d", len(run.Removed), *exp.Removed)
	}
	for _, ref := range exp.Offers {
		key, err := s.OfferKey(ref)
		if err != nil {
			return err
		}
		if _, ok := s.Ledger.Read(keylet.Keylet{Type: keylet.TypeOffer, Key: key}); !ok {
			mismatch("offer %s is gone", ref)
		}
	}
	for _, ref := range exp.Gone {
		key, err := s.OfferKey(ref)
		if err != nil {
			return err
		}
		if _, ok := s.Ledger.Read(keylet.Keylet{Type: keylet.TypeOffer, Key: key}); ok {
			mismatch("offer %s still exists", ref)
		}
	}
	return errors.Join(errs...)
}

// balance returns the current and expected position for b.
func (s *Setup) balance(b BalanceSpec) (got, want amount.Amount, err error) {
	account, err := s.Accounts.Resolve(b.Account)
	if err != nil {
		return got, want, err
	}
	currency := amount.Currency(b.Currency)
	if currency.IsNative() {
		want, err = amount.ParseValue(amount.NativeIssue, b.Value)
		if err != nil {
			return got, want, err
		}
		root, ok := state.ReadAccount(s.Ledger, account)
		if !ok {
			return want.Zeroed(), want, nil
		}
		return root.Balance, want, nil
	}

	issuer, err := s.Accounts.Resolve(b.Issuer)
	if err != nil {
		return got, want, err
	}
	want, err = amount.ParseValue(amount.NewIssue(currency, issuer), b.Value)
	if err != nil {
		return got, want, err
	}
	return state.CreditBalance(s.Ledger, account, issuer, currency), want, nil
}

// sameAmount compares values only; issuers of IOU balances differ by view.
func sameAmount(a, b amount.Amount) bool {
	if a.IsNative() != b.IsNative() || a.Currency() != b.Currency() {
		return false
	}
	return a.Value() == b.Value()
}
