package taker

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/book"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// MaxCrossings bounds the offers one crossing may take; a bridged crossing
// counts twice.
const MaxCrossings = 850

// Outcome summarizes an offer crossing.
type Outcome struct {
	Result ter.Result
	// Remaining is the part of the taker's offer left to place.
	Remaining quality.Amounts
	Direct    int
	Bridged   int
	XdvFlow   amount.Amount
	// Removed lists offers deleted as expired, unfunded or malformed.
	Removed []keylet.Key
}

// CrossOffers crosses account's offer of amounts against the books in
// view. Cleanup of stale offers is mirrored to cancel so it can survive a
// failed crossing. Offers between two issued currencies are bridged
// through XDV whenever that is cheaper than the direct book.
func CrossOffers(view, cancel *state.Sandbox, account amount.AccountID, amounts quality.Amounts,
	flags Flags, logger *log.Entry) (*Outcome, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	t, err := New(view, account, amounts, flags, logger)
	if err != nil {
		return nil, err
	}

	c := &crossing{taker: t, view: view, cancel: cancel, when: view.CloseTime(), logger: t.logger}
	var res ter.Result
	if t.CrossType() == IouToIou {
		res, err = c.bridged()
	} else {
		res, err = c.direct()
	}
	if err != nil {
		t.logger.WithError(err).Error("offer crossing aborted")
		return nil, err
	}

	out := &Outcome{
		Result:    res,
		Remaining: t.RemainingOffer(),
		Direct:    t.DirectCrossings(),
		Bridged:   t.BridgeCrossings(),
		XdvFlow:   t.XdvFlow(),
	}
	for _, s := range c.streams {
		out.Removed = append(out.Removed, s.Removed()...)
	}
	return out, nil
}

type crossing struct {
	taker   *Taker
	view    *state.Sandbox
	cancel  *state.Sandbox
	when    uint32
	logger  *log.Entry
	streams []*book.OfferStream
}

func (c *crossing) stream(b amount.Book) *book.OfferStream {
	s := book.NewOfferStream(c.view, c.cancel, b, c.when, c.logger)
	c.streams = append(c.streams, s)
	return s
}

// stepAccount advances s past the taker's own offers. It stops early on an
// offer the taker would reject.
func (c *crossing) stepAccount(s *book.OfferStream) bool {
	for s.Step() {
		tip := s.Tip()
		if c.taker.Reject(tip.Quality()) || tip.Owner() != c.taker.Account() {
			return true
		}
	}
	return false
}

// dry reports whether the offer cannot be crossed any further.
func (c *crossing) dry(o *book.Offer) bool {
	if o.Amounts().IsEmpty() {
		return true
	}
	return !state.AccountFunds(c.view, o.Owner(), o.Amounts().Out).IsPositive()
}

func (c *crossing) limitReached() bool {
	if n := c.taker.DirectCrossings() + 2*c.taker.BridgeCrossings(); n >= MaxCrossings {
		c.logger.Warnf("crossing limit reached after %d offers", n)
		return true
	}
	return false
}

func (c *crossing) direct() (ter.Result, error) {
	offers := c.stream(amount.Book{In: c.taker.IssueIn(), Out: c.taker.IssueOut()})
	haveOffer := c.stepAccount(offers)

	for haveOffer {
		tip := offers.Tip()
		if c.taker.Reject(tip.Quality()) {
			break
		}

		res, err := c.taker.Cross(tip)
		if err != nil {
			return res, err
		}

		consumed := false
		if c.dry(tip) {
			consumed = true
			haveOffer = c.stepAccount(offers)
		}

		if !res.IsSuccess() {
			return ter.TecFAILED_PROCESSING, nil
		}
		if c.taker.Done() || c.limitReached() {
			break
		}
		if !consumed {
			return ter.TefEXCEPTION, fmt.Errorf("%w: direct crossing consumed nothing", ErrInvariant)
		}
	}
	return ter.TesSUCCESS, nil
}

func (c *crossing) bridged() (ter.Result, error) {
	in, out := c.taker.IssueIn(), c.taker.IssueOut()
	if in.IsNative() || out.IsNative() {
		return ter.TefEXCEPTION, fmt.Errorf("%w: bridging with XDV as an endpoint", ErrInvariant)
	}

	direct := c.stream(amount.Book{In: in, Out: out})
	leg1 := c.stream(amount.Book{In: in, Out: amount.NativeIssue})
	leg2 := c.stream(amount.Book{In: amount.NativeIssue, Out: out})

	// Self offers are taken in the bridge but skipped in the direct book.
	haveBridge := leg1.Step() && leg2.Step()
	haveDirect := c.stepAccount(direct)

	for haveDirect || haveBridge {
		var (
			res            ter.Result
			err            error
			directConsumed bool
			leg1Dry        bool
			leg2Dry        bool
		)

		useDirect := haveDirect
		if haveDirect && haveBridge {
			bridgedQuality := quality.Composed(leg1.Tip().Quality(), leg2.Tip().Quality())
			useDirect = bridgedQuality.WorseThan(direct.Tip().Quality())
		}

		if useDirect {
			tip := direct.Tip()
			if c.taker.Reject(tip.Quality()) {
				break
			}
			if res, err = c.taker.Cross(tip); err != nil {
				return res, err
			}
			if c.dry(tip) {
				directConsumed = true
				haveDirect = c.stepAccount(direct)
			}
		} else {
			if c.taker.Reject(quality.Composed(leg1.Tip().Quality(), leg2.Tip().Quality())) {
				break
			}
			if res, err = c.taker.CrossBridged(leg1.Tip(), leg2.Tip()); err != nil {
				return res, err
			}
			if c.dry(leg1.Tip()) {
				leg1Dry = true
				haveBridge = leg1.Step()
			}
			if haveBridge && c.dry(leg2.Tip()) {
				leg2Dry = true
				haveBridge = leg2.Step()
			}
		}

		if !res.IsSuccess() {
			return ter.TecFAILED_PROCESSING, nil
		}
		if c.taker.Done() || c.limitReached() {
			break
		}
		if !directConsumed && !leg1Dry && !leg2Dry {
			return ter.TefEXCEPTION, fmt.Errorf("%w: bridged crossing consumed nothing", ErrInvariant)
		}
	}
	return ter.TesSUCCESS, nil
}
