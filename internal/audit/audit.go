// Package audit checks that a calculation moved value without creating or
// losing any, by reconciling ledger images with the transfer journal.
package audit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

var (
	// ErrNativeImbalance means native drops appeared or vanished.
	ErrNativeImbalance = errors.New("native balance not conserved")
	// ErrJournalMismatch means a balance changed without a matching
	// journal entry, or the other way round.
	ErrJournalMismatch = errors.New("balances disagree with journal")
)

// Holding identifies an account's position in one currency. IOU positions
// net every trust line of the account in that currency.
type Holding struct {
	Account  amount.AccountID
	Currency amount.Currency
}

func (h Holding) String() string {
	return fmt.Sprintf("%s/%s", h.Account, h.Currency)
}

// Report is the outcome of an audit.
type Report struct {
	// Native is the change of all native balances; zero when conserved.
	Native decimal.Decimal
	// Limbo is what the journal left parked on the zero account.
	Limbo decimal.Decimal
	// Outstanding is the change of each issuer's obligations. Transfer
	// fees show up as negative values.
	Outstanding map[amount.Issue]decimal.Decimal
	// Changes holds every position that moved.
	Changes map[Holding]decimal.Decimal
	// Transfers is the number of journal entries reconciled.
	Transfers int
}

// Holdings returns the moved positions in a stable order.
func (r *Report) Holdings() []Holding {
	out := make([]Holding, 0, len(r.Changes))
	for h := range r.Changes {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Account.Compare(out[j].Account); c != 0 {
			return c < 0
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// Compare reports how positions moved between two ledger images without
// reconciling them against a journal.
func Compare(before, after []state.Entry) (*Report, error) {
	pre, err := positions(before)
	if err != nil {
		return nil, fmt.Errorf("audit before image: %w", err)
	}
	post, err := positions(after)
	if err != nil {
		return nil, fmt.Errorf("audit after image: %w", err)
	}
	return &Report{
		Native:      post.native.Sub(pre.native),
		Outstanding: diff(pre.outstanding, post.outstanding),
		Changes:     diff(pre.holdings, post.holdings),
	}, nil
}

// Check compares two ledger images taken around a calculation with the
// journal of the sandbox that produced the change.
func Check(before, after []state.Entry, journal []state.Transfer) (*Report, error) {
	r, err := Compare(before, after)
	if err != nil {
		return nil, err
	}
	r.Transfers = len(journal)

	flows := make(map[Holding]decimal.Decimal)
	for _, t := range journal {
		v, err := toDecimal(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("journal %s: %w", t, err)
		}
		currency := t.Amount.Currency()
		if t.Amount.IsNative() {
			if t.To.IsZero() {
				r.Limbo = r.Limbo.Add(v)
			}
			if t.From.IsZero() {
				r.Limbo = r.Limbo.Sub(v)
			}
		}
		if !t.From.IsZero() {
			h := Holding{Account: t.From, Currency: currency}
			flows[h] = flows[h].Sub(v)
		}
		if !t.To.IsZero() {
			h := Holding{Account: t.To, Currency: currency}
			flows[h] = flows[h].Add(v)
		}
	}

	if !r.Native.IsZero() || !r.Limbo.IsZero() {
		return r, fmt.Errorf("%w: drops changed by %s, limbo holds %s", ErrNativeImbalance, r.Native, r.Limbo)
	}
	for h, want := range flows {
		if got := r.Changes[h]; !got.Equal(want) {
			return r, fmt.Errorf("%w: %s moved %s, journal says %s", ErrJournalMismatch, h, got, want)
		}
	}
	for h, got := range r.Changes {
		if _, ok := flows[h]; !ok {
			return r, fmt.Errorf("%w: %s moved %s without a transfer", ErrJournalMismatch, h, got)
		}
	}
	return r, nil
}

type image struct {
	native      decimal.Decimal
	holdings    map[Holding]decimal.Decimal
	outstanding map[amount.Issue]decimal.Decimal
}

func positions(entries []state.Entry) (*image, error) {
	img := &image{
		holdings:    make(map[Holding]decimal.Decimal),
		outstanding: make(map[amount.Issue]decimal.Decimal),
	}
	for _, e := range entries {
		switch e := e.(type) {
		case *state.AccountRoot:
			v, err := toDecimal(e.Balance)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", e.ID, err)
			}
			img.native = img.native.Add(v)
			h := Holding{Account: e.ID, Currency: amount.XDV}
			img.holdings[h] = img.holdings[h].Add(v)
		case *state.TrustLine:
			v, err := toDecimal(e.Balance)
			if err != nil {
				return nil, fmt.Errorf("line %s/%s: %w", e.Low, e.High, err)
			}
			low := Holding{Account: e.Low, Currency: e.Currency}
			high := Holding{Account: e.High, Currency: e.Currency}
			img.holdings[low] = img.holdings[low].Add(v)
			img.holdings[high] = img.holdings[high].Sub(v)
			switch v.Sign() {
			case 1:
				issue := amount.NewIssue(e.Currency, e.High)
				img.outstanding[issue] = img.outstanding[issue].Add(v)
			case -1:
				issue := amount.NewIssue(e.Currency, e.Low)
				img.outstanding[issue] = img.outstanding[issue].Sub(v)
			}
		}
	}
	return img, nil
}

func diff[K comparable](before, after map[K]decimal.Decimal) map[K]decimal.Decimal {
	out := make(map[K]decimal.Decimal)
	for k, v := range after {
		if d := v.Sub(before[k]); !d.IsZero() {
			out[k] = d
		}
	}
	for k, v := range before {
		if _, ok := after[k]; !ok && !v.IsZero() {
			out[k] = v.Neg()
		}
	}
	return out
}

func toDecimal(a amount.Amount) (decimal.Decimal, error) {
	return decimal.NewFromString(a.Value())
}
