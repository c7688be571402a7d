package book

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// Advance is the outcome of moving a directory between quality tiers.
type Advance int

const (
	NoAdvance Advance = iota
	NewQuality
	EndAdvance
)

// Directory walks the tiers of one book best first and, inside a tier, the
// offers in placement order. The zero value is positioned before the book.
type Directory struct {
	book    amount.Book
	current quality.Quality
	started bool
	entry   int

	// AdvanceNeeded asks the next Advance to move to the next tier.
	AdvanceNeeded bool
	// RestartNeeded asks the next Advance to replay the current tier.
	RestartNeeded bool
}

// NewDirectory returns a walker positioned before the first tier.
func NewDirectory(b amount.Book) *Directory {
	return &Directory{book: b}
}

func (d *Directory) Book() amount.Book { return d.book }

// Current returns the tier being walked; zero before the first tier.
func (d *Directory) Current() quality.Quality { return d.current }

// Initialize positions a fresh or exhausted walker before the first tier.
func (d *Directory) Initialize() {
	if d.started {
		return
	}
	d.started = true
	d.current = quality.Quality{}
	d.AdvanceNeeded = true
	d.RestartNeeded = false
}

// Advance moves to the next tier or rewinds the current one as requested.
// NewQuality means the entry position was reset.
func (d *Directory) Advance(v state.ReadView) Advance {
	if !d.AdvanceNeeded && !d.RestartNeeded {
		return NoAdvance
	}
	if d.AdvanceNeeded {
		next, ok := nextTier(v, d.book, d.current)
		if !ok {
			d.started = false
			d.current = quality.Quality{}
			d.AdvanceNeeded = false
			d.RestartNeeded = false
			return EndAdvance
		}
		d.current = next
	}
	d.AdvanceNeeded = false
	d.RestartNeeded = false
	d.entry = 0
	return NewQuality
}

// Restart rewinds for a replay: to the start of the book in multi-quality
// mode, otherwise to the start of the current tier.
func (d *Directory) Restart(multiQuality bool) {
	if multiQuality {
		d.started = false
		return
	}
	d.RestartNeeded = true
}

// Reset forgets the position entirely.
func (d *Directory) Reset() {
	*d = Directory{book: d.book}
}

// Next returns the next offer key in the current tier.
func (d *Directory) Next(v state.ReadView) (keylet.Key, bool) {
	if d.current.IsZero() {
		return keylet.Key{}, false
	}
	keys := v.BookOffers(d.book, d.current)
	if d.entry >= len(keys) {
		return keylet.Key{}, false
	}
	k := keys[d.entry]
	d.entry++
	return k, true
}

// nextTier returns the first tier strictly worse than after; any tier when
// after is zero.
func nextTier(v state.ReadView, b amount.Book, after quality.Quality) (quality.Quality, bool) {
	for _, q := range v.BookTiers(b) {
		if after.IsZero() || q.WorseThan(after) {
			return q, true
		}
	}
	return quality.Quality{}, false
}
