package book

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// ErrNegativeOffer reports an attempt to consume more than an offer has.
var ErrNegativeOffer = errors.New("offer consumed past zero")

// Offer is a resting offer seen from the taker's side: In is what the taker
// pays, Out is what the taker gets.
type Offer struct {
	entry   *state.Offer
	key     keylet.Key
	quality quality.Quality
	amounts quality.Amounts
}

// NewOffer wraps a ledger offer found in the tier q.
func NewOffer(entry *state.Offer, q quality.Quality) *Offer {
	return &Offer{
		entry:   entry,
		key:     entry.Keylet().Key,
		quality: q,
		amounts: quality.Amounts{In: entry.TakerPays, Out: entry.TakerGets},
	}
}

func (o *Offer) Key() keylet.Key { return o.key }

func (o *Offer) Owner() amount.AccountID { return o.entry.Owner }

// Quality returns the tier quality, which prices every fill of the offer.
func (o *Offer) Quality() quality.Quality { return o.quality }

// Amounts returns the remaining amounts.
func (o *Offer) Amounts() quality.Amounts { return o.amounts }

// Entry returns the underlying ledger entry.
func (o *Offer) Entry() *state.Offer { return o.entry }

// Consume removes consumed from the offer and writes it to the view. An
// offer left with an empty side is deleted.
func (o *Offer) Consume(sb *state.Sandbox, consumed quality.Amounts) error {
	if consumed.In.Greater(o.amounts.In) {
		return fmt.Errorf("%w: in %s of %s", ErrNegativeOffer, consumed.In, o.amounts.In)
	}
	if consumed.Out.Greater(o.amounts.Out) {
		return fmt.Errorf("%w: out %s of %s", ErrNegativeOffer, consumed.Out, o.amounts.Out)
	}
	o.amounts.In = o.amounts.In.Sub(consumed.In)
	o.amounts.Out = o.amounts.Out.Sub(consumed.Out)
	o.entry.TakerPays = o.amounts.In
	o.entry.TakerGets = o.amounts.Out

	if o.amounts.IsEmpty() {
		sb.OfferDelete(o.key)
		return nil
	}
	sb.UpdateOffer(o.entry)
	return nil
}

func (o *Offer) String() string {
	return fmt.Sprintf("%s/%d %s @ %s", o.entry.Owner, o.entry.Sequence, o.amounts, o.quality)
}
