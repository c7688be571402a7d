package state

import (
	"fmt"
	"maps"
	"slices"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

// Transfer is one balance movement recorded by a sandbox. A zero account
// on either side is the limbo account.
type Transfer struct {
	From   amount.AccountID `json:"from"`
	To     amount.AccountID `json:"to"`
	Amount amount.Amount    `json:"amount"`
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.Amount, t.From, t.To)
}

// Sandbox provides isolated, reversible state changes on top of a ReadView.
// Nothing reaches the parent until Apply is called.
//
// Entries are copy-on-write: the sandbox stores private copies, so
// Duplicate only copies the change set.
type Sandbox struct {
	// parent is the view this sandbox overlays
	parent ReadView

	// items holds modified and inserted entries; nil marks a deletion
	items map[keylet.Key]Entry

	// transfers is the journal of balance movements in order
	transfers []Transfer
}

// NewSandbox creates an empty sandbox over parent
func NewSandbox(parent ReadView) *Sandbox {
	return &Sandbox{
		parent: parent,
		items:  make(map[keylet.Key]Entry),
	}
}

// Duplicate checkpoints the sandbox: the copy shares the parent and starts
// with the same changes, and the two evolve independently.
func (s *Sandbox) Duplicate() *Sandbox {
	return &Sandbox{
		parent:    s.parent,
		items:     maps.Clone(s.items),
		transfers: slices.Clone(s.transfers),
	}
}

// SwapWith exchanges the change sets of two sandboxes over the same parent.
func (s *Sandbox) SwapWith(other *Sandbox) {
	s.items, other.items = other.items, s.items
	s.transfers, other.transfers = other.transfers, s.transfers
}

// Apply pushes the changes to the parent, which must be a Sandbox or a
// Ledger, and clears this sandbox.
func (s *Sandbox) Apply() error {
	switch p := s.parent.(type) {
	case *Sandbox:
		for k, e := range s.items {
			p.items[k] = e
		}
		p.transfers = append(p.transfers, s.transfers...)
	case *Ledger:
		p.commit(s.items)
	default:
		return fmt.Errorf("apply: unsupported parent %T", s.parent)
	}
	s.Discard()
	return nil
}

// Discard drops every change.
func (s *Sandbox) Discard() {
	s.items = make(map[keylet.Key]Entry)
	s.transfers = nil
}

// Parent returns the overlaid view.
func (s *Sandbox) Parent() ReadView {
	return s.parent
}

// Transfers returns the journal of balance movements.
func (s *Sandbox) Transfers() []Transfer {
	return slices.Clone(s.transfers)
}

// Changes returns the number of touched entries.
func (s *Sandbox) Changes() int {
	return len(s.items)
}

// Touched reports whether the sandbox changed the entry.
func (s *Sandbox) Touched(k keylet.Keylet) bool {
	_, ok := s.items[k.Key]
	return ok
}

// Read implements ReadView.
func (s *Sandbox) Read(k keylet.Keylet) (Entry, bool) {
	if e, ok := s.items[k.Key]; ok {
		if e == nil {
			return nil, false
		}
		return e.Clone(), true
	}
	return s.parent.Read(k)
}

// Exists reports whether the entry is visible.
func (s *Sandbox) Exists(k keylet.Keylet) bool {
	_, ok := s.Read(k)
	return ok
}

// Update inserts or replaces an entry.
func (s *Sandbox) Update(e Entry) {
	s.items[e.Keylet().Key] = e.Clone()
}

// Erase deletes an entry.
func (s *Sandbox) Erase(k keylet.Keylet) {
	s.items[k.Key] = nil
}

// BookTiers implements ReadView, hiding tiers whose offers were all erased.
func (s *Sandbox) BookTiers(book amount.Book) []quality.Quality {
	tiers := s.parent.BookTiers(book)
	return slices.DeleteFunc(tiers, func(q quality.Quality) bool {
		return len(s.BookOffers(book, q)) == 0
	})
}

// BookOffers implements ReadView, hiding erased offers.
func (s *Sandbox) BookOffers(book amount.Book, tier quality.Quality) []keylet.Key {
	keys := s.parent.BookOffers(book, tier)
	return slices.DeleteFunc(keys, func(k keylet.Key) bool {
		e, ok := s.items[k]
		return ok && e == nil
	})
}

// TransferRate implements ReadView.
func (s *Sandbox) TransferRate(issuer amount.AccountID) quality.TransferRate {
	if e, ok := s.items[keylet.Account(issuer).Key]; ok {
		if acct, ok := e.(*AccountRoot); ok {
			return acct.Rate()
		}
		return quality.Parity
	}
	return s.parent.TransferRate(issuer)
}

func (s *Sandbox) Fees() Fees { return s.parent.Fees() }

func (s *Sandbox) CloseTime() uint32 { return s.parent.CloseTime() }

func (s *Sandbox) Open() bool { return s.parent.Open() }

// Account returns the account root of id.
func (s *Sandbox) Account(id amount.AccountID) (*AccountRoot, bool) {
	return ReadAccount(s, id)
}

// Line returns the trust line between a and b.
func (s *Sandbox) Line(a, b amount.AccountID, currency amount.Currency) (*TrustLine, bool) {
	return ReadLine(s, a, b, currency)
}

// Offer returns the offer stored under key.
func (s *Sandbox) Offer(key keylet.Key) (*Offer, bool) {
	return ReadOffer(s, key)
}

func (s *Sandbox) record(from, to amount.AccountID, a amount.Amount) {
	s.transfers = append(s.transfers, Transfer{From: from, To: to, Amount: a})
}
