package book

import (
	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// BookTip walks the offers of a book best first. Each offer is returned at
// most once even when it survives being crossed.
type BookTip struct {
	view   state.ReadView
	book   amount.Book
	passed map[keylet.Key]struct{}
}

// NewBookTip returns a tip positioned before the best offer of b.
func NewBookTip(v state.ReadView, b amount.Book) *BookTip {
	return &BookTip{view: v, book: b, passed: make(map[keylet.Key]struct{})}
}

// Step returns the next unvisited offer, stamped with its tier.
func (t *BookTip) Step() (*state.Offer, bool) {
	for _, tier := range t.view.BookTiers(t.book) {
		for _, k := range t.view.BookOffers(t.book, tier) {
			if _, seen := t.passed[k]; seen {
				continue
			}
			t.passed[k] = struct{}{}
			o, ok := state.ReadOffer(t.view, k)
			if !ok {
				continue
			}
			o.Quality = tier
			return o, true
		}
	}
	return nil, false
}

// OfferStream presents the usable offers of a book in order, cleaning up
// offers that cannot be crossed as it goes.
//
// Removals are written to view. Offers that were already unusable before
// the operation started are also removed from cancel, which survives a
// failed operation.
type OfferStream struct {
	view   *state.Sandbox
	cancel *state.Sandbox
	book   amount.Book
	when   uint32
	tip    *BookTip
	offer  *Offer
	logger *log.Entry

	removed []keylet.Key
}

// NewOfferStream creates a stream over b. when is the close time used to
// expire offers.
func NewOfferStream(view, cancel *state.Sandbox, b amount.Book, when uint32, logger *log.Entry) *OfferStream {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OfferStream{
		view:   view,
		cancel: cancel,
		book:   b,
		when:   when,
		tip:    NewBookTip(view, b),
		logger: logger.WithField("book", b.String()),
	}
}

// Tip returns the current offer. Only valid after Step returned true.
func (s *OfferStream) Tip() *Offer { return s.offer }

// Removed returns the keys of offers the stream deleted.
func (s *OfferStream) Removed() []keylet.Key { return s.removed }

// Step advances to the next usable offer. It returns false when the book
// has no more.
func (s *OfferStream) Step() bool {
	for {
		entry, ok := s.tip.Step()
		if !ok {
			s.offer = nil
			return false
		}
		key := entry.Keylet().Key

		if entry.Expiration != 0 && entry.Expiration <= s.when {
			s.logger.WithField("offer", key).Debug("removing expired offer")
			s.erase(key, true)
			continue
		}

		if !entry.TakerPays.IsPositive() || !entry.TakerGets.IsPositive() {
			s.logger.WithField("offer", key).Warn("removing bad offer")
			s.erase(key, true)
			continue
		}

		funds := state.AccountFunds(s.view, entry.Owner, entry.TakerGets)
		if !funds.IsPositive() {
			// Only offers that were unfunded before this operation are
			// removed permanently.
			permanent := s.cancel != nil &&
				state.AccountFunds(s.cancel, entry.Owner, entry.TakerGets).Equal(funds)
			s.logger.WithField("offer", key).Debugf("removing unfunded offer (permanent=%t)", permanent)
			s.erase(key, permanent)
			continue
		}

		s.offer = NewOffer(entry, entry.Quality)
		return true
	}
}

// OwnerFunds returns what the tip's owner can deliver.
func (s *OfferStream) OwnerFunds() amount.Amount {
	if s.offer == nil {
		return amount.Zero(s.book.Out)
	}
	return state.AccountFunds(s.view, s.offer.Owner(), s.offer.Amounts().Out)
}

func (s *OfferStream) erase(key keylet.Key, cancel bool) {
	s.view.OfferDelete(key)
	if cancel && s.cancel != nil && s.cancel.Exists(keylet.Keylet{Type: keylet.TypeOffer, Key: key}) {
		s.cancel.OfferDelete(key)
	}
	s.removed = append(s.removed, key)
}
