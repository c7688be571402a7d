package taker

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

// ErrInvariant reports a computed flow that cannot happen when clamping is
// correct. It is a defect, not a business outcome.
var ErrInvariant = errors.New("taker invariant violated")

// CrossType describes the currencies on either side of a taker.
type CrossType int

const (
	IouToIou CrossType = iota
	XdvToIou
	IouToXdv
)

func (c CrossType) String() string {
	switch c {
	case XdvToIou:
		return "XDV->IOU"
	case IouToXdv:
		return "IOU->XDV"
	default:
		return "IOU->IOU"
	}
}

// CrossTypeOf classifies a taker by the currencies it pays and gets.
func CrossTypeOf(in, out amount.Issue) CrossType {
	switch {
	case in.IsNative():
		return XdvToIou
	case out.IsNative():
		return IouToXdv
	default:
		return IouToIou
	}
}

// Flags alter how a taker crosses the book.
type Flags uint32

const (
	// Passive leaves offers at exactly the taker's quality alone.
	Passive Flags = 1 << iota
	// Sell keeps crossing past the requested output while input remains.
	Sell
)

// Flow is the exchange computed for one offer. Order is what moves between
// taker and owner; Issuers is what leaves or reaches the issuers once
// transfer fees are included.
type Flow struct {
	Order   quality.Amounts
	Issuers quality.Amounts
}

// Check rejects flows with a negative leg or native on both sides.
func (f Flow) Check() error {
	if f.Order.In.IsNative() && f.Order.Out.IsNative() {
		return fmt.Errorf("%w: native on both sides of %s", ErrInvariant, f.Order)
	}
	for _, a := range []amount.Amount{f.Order.In, f.Order.Out, f.Issuers.In, f.Issuers.Out} {
		if a.IsNegative() {
			return fmt.Errorf("%w: negative flow %s / %s", ErrInvariant, f.Order, f.Issuers)
		}
	}
	return nil
}

func (f Flow) String() string {
	return fmt.Sprintf("order %s, issuers %s", f.Order, f.Issuers)
}

// FundsFunc returns what account can spend of a's issue.
type FundsFunc func(account amount.AccountID, a amount.Amount) amount.Amount

// BasicTaker computes crossings without touching the ledger. In is what
// the taker pays, Out what it wants.
type BasicTaker struct {
	account   amount.AccountID
	quality   quality.Quality
	threshold quality.Quality
	sell      bool

	original  quality.Amounts
	remaining quality.Amounts

	rateIn    quality.TransferRate
	rateOut   quality.TransferRate
	crossType CrossType

	funds FundsFunc
}

// NewBasicTaker creates a taker offering amounts. rateIn and rateOut are
// the transfer rates of the issuers of each side.
func NewBasicTaker(crossType CrossType, account amount.AccountID, amounts quality.Amounts, flags Flags,
	rateIn, rateOut quality.TransferRate, funds FundsFunc) (*BasicTaker, error) {
	if amounts.IsEmpty() {
		return nil, fmt.Errorf("taker amounts must be positive: %s", amounts)
	}
	if amounts.In.IsNative() && amounts.Out.IsNative() {
		return nil, fmt.Errorf("taker cannot cross native for native")
	}
	if CrossTypeOf(amounts.In.Issue(), amounts.Out.Issue()) != crossType {
		return nil, fmt.Errorf("taker amounts %s do not match %s", amounts, crossType)
	}
	if rateIn == 0 || rateOut == 0 {
		return nil, fmt.Errorf("taker transfer rates must be set")
	}

	q := amounts.Quality()
	t := &BasicTaker{
		account:   account,
		quality:   q,
		threshold: q,
		sell:      flags&Sell != 0,
		original:  amounts,
		remaining: amounts,
		rateIn:    rateIn,
		rateOut:   rateOut,
		crossType: crossType,
		funds:     funds,
	}
	if flags&Passive != 0 && t.threshold.Value > 0 {
		t.threshold.Value--
	}
	return t, nil
}

func (t *BasicTaker) Account() amount.AccountID { return t.account }

func (t *BasicTaker) CrossType() CrossType { return t.crossType }

func (t *BasicTaker) IssueIn() amount.Issue { return t.original.In.Issue() }

func (t *BasicTaker) IssueOut() amount.Issue { return t.original.Out.Issue() }

// OriginalOffer returns the amounts the taker started with.
func (t *BasicTaker) OriginalOffer() quality.Amounts { return t.original }

// Remaining returns what is left to pay and to receive.
func (t *BasicTaker) Remaining() quality.Amounts { return t.remaining }

// Reject reports whether an offer at q is worse than the taker accepts.
func (t *BasicTaker) Reject(q quality.Quality) bool {
	return q.WorseThan(t.threshold)
}

// Done reports whether the taker spent its input, received its output in
// buy mode, or ran out of funds.
func (t *BasicTaker) Done() bool {
	if !t.remaining.In.IsPositive() {
		return true
	}
	if !t.sell && !t.remaining.Out.IsPositive() {
		return true
	}
	return !t.funds(t.account, t.remaining.In).IsPositive()
}

// RemainingOffer returns the offer left to place after crossing, priced at
// the taker's original quality.
func (t *BasicTaker) RemainingOffer() quality.Amounts {
	if t.Done() {
		return quality.Amounts{In: t.original.In.Zeroed(), Out: t.original.Out.Zeroed()}
	}
	if t.remaining == t.original {
		return t.original
	}
	if t.sell {
		return quality.Amounts{
			In:  t.remaining.In,
			Out: amount.DivRound(t.remaining.In, t.quality.Rate(), t.IssueOut(), true),
		}
	}
	return quality.Amounts{
		In:  amount.MulRound(t.remaining.Out, t.quality.Rate(), t.IssueIn(), true),
		Out: t.remaining.Out,
	}
}

// EffectiveRate is the fee charged when from pays to in issue: none when
// either side is the issuer or they are the same account.
func EffectiveRate(rate quality.TransferRate, issue amount.Issue, from, to amount.AccountID) quality.TransferRate {
	if !rate.IsParity() && from != to && from != issue.Account && to != issue.Account {
		return rate
	}
	return quality.Parity
}

func (t *BasicTaker) inRate(from, to amount.AccountID) quality.TransferRate {
	return EffectiveRate(t.rateIn, t.IssueIn(), from, to)
}

func (t *BasicTaker) outRate(from, to amount.AccountID) quality.TransferRate {
	return EffectiveRate(t.rateOut, t.IssueOut(), from, to)
}

func newFlow(order quality.Amounts) Flow {
	return Flow{
		Order:   order,
		Issuers: quality.Amounts{In: order.In.Zeroed(), Out: order.Out.Zeroed()},
	}
}

func (t *BasicTaker) flowXdvToIou(order quality.Amounts, q quality.Quality, ownerFunds, takerFunds amount.Amount,
	rateOut quality.TransferRate) Flow {
	f := newFlow(order)
	f.Issuers.Out = rateOut.Multiply(f.Order.Out)

	// Owner's balance.
	if ownerFunds.Less(f.Issuers.Out) {
		f.Issuers.Out = ownerFunds
		f.Order = q.CeilOut(f.Order, rateOut.Divide(f.Issuers.Out))
	}

	// Requested output, buy mode only.
	if !t.sell && t.remaining.Out.Less(f.Order.Out) {
		f.Order = q.CeilOut(f.Order, t.remaining.Out)
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}

	// Taker's balance.
	if takerFunds.Less(f.Order.In) {
		f.Order = q.CeilIn(f.Order, takerFunds)
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}

	// Remaining input, unless this is the second leg of a bridge.
	if t.crossType == XdvToIou && t.remaining.In.Less(f.Order.In) {
		f.Order = q.CeilIn(f.Order, t.remaining.In)
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}
	return f
}

func (t *BasicTaker) flowIouToXdv(order quality.Amounts, q quality.Quality, ownerFunds, takerFunds amount.Amount,
	rateIn quality.TransferRate) Flow {
	f := newFlow(order)
	f.Issuers.In = rateIn.Multiply(f.Order.In)

	// Owner's balance.
	if ownerFunds.Less(f.Order.Out) {
		f.Order = q.CeilOut(f.Order, ownerFunds)
		f.Issuers.In = rateIn.Multiply(f.Order.In)
	}

	// Requested output, unless this is the first leg of a bridge.
	if !t.sell && t.crossType == IouToXdv && t.remaining.Out.Less(f.Order.Out) {
		f.Order = q.CeilOut(f.Order, t.remaining.Out)
		f.Issuers.In = rateIn.Multiply(f.Order.In)
	}

	// Remaining input.
	if t.remaining.In.Less(f.Order.In) {
		f.Order = q.CeilIn(f.Order, t.remaining.In)
		f.Issuers.In = rateIn.Multiply(f.Order.In)
	}

	// Taker's balance, fees included.
	if takerFunds.Less(f.Issuers.In) {
		f.Issuers.In = takerFunds
		f.Order = q.CeilIn(f.Order, rateIn.Divide(f.Issuers.In))
	}
	return f
}

func (t *BasicTaker) flowIouToIou(order quality.Amounts, q quality.Quality, ownerFunds, takerFunds amount.Amount,
	rateIn, rateOut quality.TransferRate) Flow {
	f := newFlow(order)
	f.Issuers.In = rateIn.Multiply(f.Order.In)
	f.Issuers.Out = rateOut.Multiply(f.Order.Out)

	// Owner's balance.
	if ownerFunds.Less(f.Issuers.Out) {
		f.Issuers.Out = ownerFunds
		f.Order = q.CeilOut(f.Order, rateOut.Divide(f.Issuers.Out))
		f.Issuers.In = rateIn.Multiply(f.Order.In)
	}

	// Requested output, buy mode only.
	if !t.sell && t.remaining.Out.Less(f.Order.Out) {
		f.Order = q.CeilOut(f.Order, t.remaining.Out)
		f.Issuers.In = rateIn.Multiply(f.Order.In)
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}

	// Remaining input.
	if t.remaining.In.Less(f.Order.In) {
		f.Order = q.CeilIn(f.Order, t.remaining.In)
		f.Issuers.In = rateIn.Multiply(f.Order.In)
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}

	// Taker's balance, fees included.
	if takerFunds.Less(f.Issuers.In) {
		f.Issuers.In = takerFunds
		f.Order = q.CeilIn(f.Order, rateIn.Divide(f.Issuers.In))
		f.Issuers.Out = rateOut.Multiply(f.Order.Out)
	}
	return f
}

// DoCross computes the flow through a single offer owned by owner and
// deducts it from the remaining amounts.
func (t *BasicTaker) DoCross(offer quality.Amounts, q quality.Quality, owner amount.AccountID) (Flow, error) {
	ownerFunds := t.funds(owner, offer.Out)
	takerFunds := t.funds(t.account, offer.In)

	var f Flow
	switch t.crossType {
	case XdvToIou:
		f = t.flowXdvToIou(offer, q, ownerFunds, takerFunds, t.outRate(owner, t.account))
	case IouToXdv:
		f = t.flowIouToXdv(offer, q, ownerFunds, takerFunds, t.inRate(owner, t.account))
	default:
		f = t.flowIouToIou(offer, q, ownerFunds, takerFunds, t.inRate(owner, t.account), t.outRate(owner, t.account))
	}
	if err := f.Check(); err != nil {
		return Flow{}, err
	}

	t.remaining.Out = t.remaining.Out.Sub(f.Order.Out)
	t.remaining.In = t.remaining.In.Sub(f.Order.In)
	if t.remaining.In.IsNegative() {
		return Flow{}, fmt.Errorf("%w: remaining input %s", ErrInvariant, t.remaining.In)
	}
	return f, nil
}

// DoCrossBridged computes the flow through two offers joined by the native
// currency: leg1 takes the taker's input for XDV, leg2 turns XDV into the
// taker's output. Both legs carry the same amount of XDV.
func (t *BasicTaker) DoCrossBridged(offer1 quality.Amounts, q1 quality.Quality, owner1 amount.AccountID,
	offer2 quality.Amounts, q2 quality.Quality, owner2 amount.AccountID) (Flow, Flow, error) {
	if offer1.In.IsNative() || !offer1.Out.IsNative() || !offer2.In.IsNative() || offer2.Out.IsNative() {
		return Flow{}, Flow{}, fmt.Errorf("%w: bridge legs %s and %s", ErrInvariant, offer1, offer2)
	}

	// A taker owning a leg is limited by the offer, not by its balance.
	leg1InFunds := t.funds(t.account, offer1.In)
	if t.account == owner1 {
		leg1InFunds = amount.Max(leg1InFunds, offer1.In)
	}
	leg2OutFunds := t.funds(owner2, offer2.Out)
	if t.account == owner2 {
		leg2OutFunds = amount.Max(leg2OutFunds, offer2.Out)
	}

	// XDV moving between two offers of one owner only changes pockets.
	xdvFunds := t.funds(owner1, offer1.Out)
	if owner1 == owner2 {
		xdvFunds = amount.Max(offer1.Out, offer2.In)
	}

	leg1Rate := t.inRate(owner1, t.account)
	leg2Rate := t.outRate(owner2, t.account)

	flow1 := t.flowIouToXdv(offer1, q1, xdvFunds, leg1InFunds, leg1Rate)
	if err := flow1.Check(); err != nil {
		return Flow{}, Flow{}, err
	}
	flow2 := t.flowXdvToIou(offer2, q2, leg2OutFunds, xdvFunds, leg2Rate)
	if err := flow2.Check(); err != nil {
		return Flow{}, Flow{}, err
	}

	// Equalize on the limiting leg.
	switch flow1.Order.Out.Compare(flow2.Order.In) {
	case -1:
		flow2.Order = q2.CeilIn(flow2.Order, flow1.Order.Out)
		flow2.Issuers.Out = leg2Rate.Multiply(flow2.Order.Out)
	case 1:
		flow1.Order = q1.CeilOut(flow1.Order, flow2.Order.In)
		flow1.Issuers.In = leg1Rate.Multiply(flow1.Order.In)
	}
	if !flow1.Order.Out.Equal(flow2.Order.In) {
		return Flow{}, Flow{}, fmt.Errorf("%w: bridge XDV mismatch %s != %s", ErrInvariant, flow1.Order.Out, flow2.Order.In)
	}

	t.remaining.Out = t.remaining.Out.Sub(flow2.Order.Out)
	t.remaining.In = t.remaining.In.Sub(flow1.Order.In)
	if t.remaining.In.IsNegative() {
		return Flow{}, Flow{}, fmt.Errorf("%w: remaining input %s", ErrInvariant, t.remaining.In)
	}
	return flow1, flow2, nil
}
