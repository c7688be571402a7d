package state

import (
	"errors"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

var (
	ErrNotFound  = errors.New("entry not found")
	ErrWrongType = errors.New("entry has unexpected type")
)

// ReadView is read access to ledger state.
//
// Read returns a private copy: mutating it has no effect until it is
// written back through a Sandbox.
type ReadView interface {
	Read(k keylet.Keylet) (Entry, bool)

	// BookTiers lists the quality tiers of a book, best first.
	BookTiers(book amount.Book) []quality.Quality

	// BookOffers lists the offers of one tier in placement order.
	BookOffers(book amount.Book, tier quality.Quality) []keylet.Key

	// TransferRate returns the issuer's transfer rate, parity when the
	// issuer is missing or has no rate.
	TransferRate(issuer amount.AccountID) quality.TransferRate

	Fees() Fees

	// CloseTime is the parent ledger close time used for offer expiration.
	CloseTime() uint32

	// Open reports whether the ledger may still be modified.
	Open() bool
}

// ReadAccount returns the account root of id.
func ReadAccount(v ReadView, id amount.AccountID) (*AccountRoot, bool) {
	e, ok := v.Read(keylet.Account(id))
	if !ok {
		return nil, false
	}
	a, ok := e.(*AccountRoot)
	return a, ok
}

// ReadLine returns the trust line between a and b.
func ReadLine(v ReadView, a, b amount.AccountID, currency amount.Currency) (*TrustLine, bool) {
	e, ok := v.Read(keylet.Line(a, b, currency))
	if !ok {
		return nil, false
	}
	l, ok := e.(*TrustLine)
	return l, ok
}

// ReadOffer returns the offer stored under key.
func ReadOffer(v ReadView, key keylet.Key) (*Offer, bool) {
	e, ok := v.Read(keylet.Keylet{Type: keylet.TypeOffer, Key: key})
	if !ok {
		return nil, false
	}
	o, ok := e.(*Offer)
	return o, ok
}
