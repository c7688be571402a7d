package taker

import (
	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/book"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// Taker is a BasicTaker whose crossings are applied to a sandbox.
type Taker struct {
	*BasicTaker

	view   *state.Sandbox
	logger *log.Entry

	xdvFlow         amount.Amount
	directCrossings int
	bridgeCrossings int
}

// New creates a taker for account offering amounts against view.
func New(view *state.Sandbox, account amount.AccountID, amounts quality.Amounts, flags Flags, logger *log.Entry) (*Taker, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	t := &Taker{
		view:    view,
		logger:  logger.WithField("taker", account.String()),
		xdvFlow: amount.Zero(amount.NativeIssue),
	}
	basic, err := NewBasicTaker(
		CrossTypeOf(amounts.In.Issue(), amounts.Out.Issue()),
		account, amounts, flags,
		issuerRate(view, amounts.In.Issue()),
		issuerRate(view, amounts.Out.Issue()),
		t.funds,
	)
	if err != nil {
		return nil, err
	}
	t.BasicTaker = basic
	return t, nil
}

func issuerRate(v state.ReadView, issue amount.Issue) quality.TransferRate {
	if issue.IsNative() {
		return quality.Parity
	}
	return v.TransferRate(issue.Account)
}

func (t *Taker) funds(account amount.AccountID, a amount.Amount) amount.Amount {
	return state.AccountFunds(t.view, account, a)
}

// XdvFlow returns the XDV that moved across bridges.
func (t *Taker) XdvFlow() amount.Amount { return t.xdvFlow }

func (t *Taker) DirectCrossings() int { return t.directCrossings }

func (t *Taker) BridgeCrossings() int { return t.bridgeCrossings }

// Cross takes a single offer.
func (t *Taker) Cross(o *book.Offer) (ter.Result, error) {
	a := o.Amounts()
	if a.In.IsNative() && a.Out.IsNative() {
		return ter.TefINTERNAL, nil
	}
	f, err := t.DoCross(a, o.Quality(), o.Owner())
	if err != nil {
		return ter.TefEXCEPTION, err
	}
	t.logger.Debugf("direct cross %s: %s", o, f)
	return t.fill(f, o)
}

// CrossBridged takes leg1 and leg2 together through XDV.
func (t *Taker) CrossBridged(leg1, leg2 *book.Offer) (ter.Result, error) {
	if leg1.Amounts().In.IsNative() || leg2.Amounts().Out.IsNative() {
		return ter.TefINTERNAL, nil
	}
	f1, f2, err := t.DoCrossBridged(
		leg1.Amounts(), leg1.Quality(), leg1.Owner(),
		leg2.Amounts(), leg2.Quality(), leg2.Owner(),
	)
	if err != nil {
		return ter.TefEXCEPTION, err
	}
	t.logger.Debugf("bridged cross %s / %s: %s / %s", leg1, leg2, f1, f2)
	return t.fillBridged(f1, leg1, f2, leg2)
}

func (t *Taker) fill(f Flow, o *book.Offer) (ter.Result, error) {
	if err := o.Consume(t.view, f.Order); err != nil {
		return ter.TefEXCEPTION, err
	}

	// Taker to owner.
	steps := make([]func() ter.Result, 0, 4)
	if t.crossType != XdvToIou {
		steps = append(steps,
			func() ter.Result { return t.redeemIOU(t.account, f.Issuers.In) },
			func() ter.Result { return t.issueIOU(o.Owner(), f.Order.In) },
		)
	} else {
		steps = append(steps, func() ter.Result { return t.transferXDV(t.account, o.Owner(), f.Order.In) })
	}

	// Owner to taker.
	if t.crossType != IouToXdv {
		steps = append(steps,
			func() ter.Result { return t.redeemIOU(o.Owner(), f.Issuers.Out) },
			func() ter.Result { return t.issueIOU(t.account, f.Order.Out) },
		)
	} else {
		steps = append(steps, func() ter.Result { return t.transferXDV(o.Owner(), t.account, f.Order.Out) })
	}

	if res := run(steps); !res.IsSuccess() {
		return res, nil
	}
	t.directCrossings++
	return ter.TesSUCCESS, nil
}

func (t *Taker) fillBridged(f1 Flow, leg1 *book.Offer, f2 Flow, leg2 *book.Offer) (ter.Result, error) {
	if err := leg1.Consume(t.view, f1.Order); err != nil {
		return ter.TefEXCEPTION, err
	}
	if err := leg2.Consume(t.view, f2.Order); err != nil {
		return ter.TefEXCEPTION, err
	}

	steps := make([]func() ter.Result, 0, 5)
	if leg1.Owner() != t.account {
		steps = append(steps,
			func() ter.Result { return t.redeemIOU(t.account, f1.Issuers.In) },
			func() ter.Result { return t.issueIOU(leg1.Owner(), f1.Order.In) },
		)
	}
	steps = append(steps, func() ter.Result { return t.transferXDV(leg1.Owner(), leg2.Owner(), f1.Order.Out) })
	if leg2.Owner() != t.account {
		steps = append(steps,
			func() ter.Result { return t.redeemIOU(leg2.Owner(), f2.Issuers.Out) },
			func() ter.Result { return t.issueIOU(t.account, f2.Order.Out) },
		)
	}

	if res := run(steps); !res.IsSuccess() {
		return res, nil
	}
	t.bridgeCrossings++
	t.xdvFlow = t.xdvFlow.Add(f1.Order.Out)
	return ter.TesSUCCESS, nil
}

func run(steps []func() ter.Result) ter.Result {
	for _, step := range steps {
		if res := step(); !res.IsSuccess() {
			return res
		}
	}
	return ter.TesSUCCESS
}

func (t *Taker) transferXDV(from, to amount.AccountID, a amount.Amount) ter.Result {
	if a.IsZero() {
		return ter.TesSUCCESS
	}
	return t.view.AccountSend(from, to, a)
}

func (t *Taker) redeemIOU(account amount.AccountID, a amount.Amount) ter.Result {
	if a.IsZero() || account == a.Issuer() {
		return ter.TesSUCCESS
	}
	if !t.funds(account, a).IsPositive() {
		t.logger.WithField("account", account.String()).Errorf("redeem %s with no funds", a)
		return ter.TefINTERNAL
	}
	return t.view.RedeemIOU(account, a, a.Issuer())
}

func (t *Taker) issueIOU(account amount.AccountID, a amount.Amount) ter.Result {
	if a.IsZero() || account == a.Issuer() {
		return ter.TesSUCCESS
	}
	return t.view.IssueIOU(account, a, a.Issuer())
}
