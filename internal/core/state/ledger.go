package state

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/hashicorp/golang-lru/v2"
)

// DefaultRateCacheSize bounds the transfer rate cache when the config
// leaves it unset.
const DefaultRateCacheSize = 1024

// LedgerConfig holds the settings of an in-memory ledger
type LedgerConfig struct {
	Fees          Fees
	CloseTime     uint32
	Open          bool
	RateCacheSize int
}

// Ledger is an in-memory ReadView with an order book index.
// Changes reach it only through Sandbox.Apply.
type Ledger struct {
	mu sync.RWMutex

	entries map[keylet.Key]Entry
	books   map[amount.Book]*bookDir

	fees      Fees
	closeTime uint32
	open      bool

	// Read-through cache of issuer transfer rates
	// Key: issuer account
	rates *lru.Cache[amount.AccountID, quality.TransferRate]
}

// bookDir is the directory of one book: tiers sorted best first, offers
// within a tier in placement order.
type bookDir struct {
	tiers  []quality.Quality
	offers map[quality.Quality][]keylet.Key
}

// NewLedger creates an empty ledger
func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.RateCacheSize <= 0 {
		cfg.RateCacheSize = DefaultRateCacheSize
	}
	rates, err := lru.New[amount.AccountID, quality.TransferRate](cfg.RateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("rate cache: %w", err)
	}
	return &Ledger{
		entries:   make(map[keylet.Key]Entry),
		books:     make(map[amount.Book]*bookDir),
		fees:      cfg.Fees,
		closeTime: cfg.CloseTime,
		open:      cfg.Open,
		rates:     rates,
	}, nil
}

// Insert adds or replaces an entry. Offers without a quality are placed in
// the tier of their current amounts.
func (l *Ledger) Insert(e Entry) error {
	if o, ok := e.(*Offer); ok {
		if o.TakerPays.IsZero() || o.TakerGets.IsZero() {
			return fmt.Errorf("offer %s/%d: empty side", o.Owner, o.Sequence)
		}
		if o.Quality.IsZero() {
			o.Quality = quality.FromAmounts(o.TakerPays, o.TakerGets)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.put(e.Keylet().Key, e.Clone())
	return nil
}

// Remove deletes an entry if present.
func (l *Ledger) Remove(k keylet.Keylet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.erase(k.Key)
}

func (l *Ledger) put(key keylet.Key, e Entry) {
	if old, ok := l.entries[key]; ok {
		if _, isOffer := old.(*Offer); isOffer {
			l.unindex(key, old.(*Offer))
		}
	}
	l.entries[key] = e
	switch v := e.(type) {
	case *Offer:
		l.index(key, v)
	case *AccountRoot:
		l.rates.Remove(v.ID)
	}
}

func (l *Ledger) erase(key keylet.Key) {
	old, ok := l.entries[key]
	if !ok {
		return
	}
	switch v := old.(type) {
	case *Offer:
		l.unindex(key, v)
	case *AccountRoot:
		l.rates.Remove(v.ID)
	}
	delete(l.entries, key)
}

func (l *Ledger) index(key keylet.Key, o *Offer) {
	book := o.Book()
	dir, ok := l.books[book]
	if !ok {
		dir = &bookDir{offers: make(map[quality.Quality][]keylet.Key)}
		l.books[book] = dir
	}
	if _, ok := dir.offers[o.Quality]; !ok {
		i, _ := slices.BinarySearchFunc(dir.tiers, o.Quality, quality.Quality.Compare)
		dir.tiers = slices.Insert(dir.tiers, i, o.Quality)
	}
	dir.offers[o.Quality] = append(dir.offers[o.Quality], key)
}

func (l *Ledger) unindex(key keylet.Key, o *Offer) {
	book := o.Book()
	dir, ok := l.books[book]
	if !ok {
		return
	}
	keys := slices.DeleteFunc(dir.offers[o.Quality], func(k keylet.Key) bool { return k == key })
	if len(keys) > 0 {
		dir.offers[o.Quality] = keys
		return
	}
	delete(dir.offers, o.Quality)
	dir.tiers = slices.DeleteFunc(dir.tiers, func(q quality.Quality) bool { return q == o.Quality })
	if len(dir.tiers) == 0 {
		delete(l.books, book)
	}
}

// commit writes a sandbox's changes. A nil entry deletes the key.
func (l *Ledger) commit(changes map[keylet.Key]Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range sortedKeys(changes) {
		if e := changes[key]; e != nil {
			l.put(key, e.Clone())
		} else {
			l.erase(key)
		}
	}
}

// Read implements ReadView.
func (l *Ledger) Read(k keylet.Keylet) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[k.Key]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// BookTiers implements ReadView.
func (l *Ledger) BookTiers(book amount.Book) []quality.Quality {
	l.mu.RLock()
	defer l.mu.RUnlock()
	dir, ok := l.books[book]
	if !ok {
		return nil
	}
	return slices.Clone(dir.tiers)
}

// BookOffers implements ReadView.
func (l *Ledger) BookOffers(book amount.Book, tier quality.Quality) []keylet.Key {
	l.mu.RLock()
	defer l.mu.RUnlock()
	dir, ok := l.books[book]
	if !ok {
		return nil
	}
	return slices.Clone(dir.offers[tier])
}

// TransferRate implements ReadView through the rate cache.
func (l *Ledger) TransferRate(issuer amount.AccountID) quality.TransferRate {
	if rate, ok := l.rates.Get(issuer); ok {
		return rate
	}
	rate := quality.Parity
	if acct, ok := ReadAccount(l, issuer); ok {
		rate = acct.Rate()
	}
	l.rates.Add(issuer, rate)
	return rate
}

func (l *Ledger) Fees() Fees { return l.fees }

func (l *Ledger) CloseTime() uint32 { return l.closeTime }

func (l *Ledger) Open() bool { return l.open }

// SetCloseTime moves the parent close time, e.g. to expire offers.
func (l *Ledger) SetCloseTime(t uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeTime = t
}

// Entries returns copies of all entries ordered by key.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, key := range sortedKeys(l.entries) {
		out = append(out, l.entries[key].Clone())
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func sortedKeys[V any](m map[keylet.Key]V) []keylet.Key {
	keys := make([]keylet.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b keylet.Key) int { return bytes.Compare(a[:], b[:]) })
	return keys
}
