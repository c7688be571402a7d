package state

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

// Entry is a ledger object addressable by keylet.
type Entry interface {
	Keylet() keylet.Keylet
	Clone() Entry
}

// AccountFlags are the account root flags the payment engine reads.
type AccountFlags uint32

const (
	// RequireAuth means holders need the issuer's authorization.
	RequireAuth AccountFlags = 1 << iota
	// GlobalFreeze freezes every line issued by the account.
	GlobalFreeze
	// DefaultDivvy lets new lines of the account permit rippling.
	DefaultDivvy
)

// AccountRoot holds an account's native balance and settings.
type AccountRoot struct {
	ID           amount.AccountID     `json:"id"`
	Balance      amount.Amount        `json:"balance"`
	OwnerCount   uint32               `json:"owner_count"`
	Sequence     uint32               `json:"sequence"`
	TransferRate quality.TransferRate `json:"transfer_rate"`
	Flags        AccountFlags         `json:"flags"`
}

func (a *AccountRoot) Keylet() keylet.Keylet { return keylet.Account(a.ID) }

func (a *AccountRoot) Clone() Entry {
	c := *a
	return &c
}

// Rate returns the transfer rate, treating an unset rate as parity.
func (a *AccountRoot) Rate() quality.TransferRate {
	if a.TransferRate == 0 {
		return quality.Parity
	}
	return a.TransferRate
}

// Has reports whether all bits of f are set.
func (a *AccountRoot) Has(f AccountFlags) bool {
	return a.Flags&f == f
}

// LineFlags hold per side trust line settings.
type LineFlags uint32

const (
	LowAuth LineFlags = 1 << iota
	HighAuth
	LowNoDivvy
	HighNoDivvy
	LowFreeze
	HighFreeze
)

// TrustLine is the credit relationship between a low and a high account.
//
// Balance is kept from the low account's perspective: positive means the
// low account holds IOUs issued by the high account. The balance carries
// NoAccount as issuer; limits are issued by the side that set them.
type TrustLine struct {
	Low            amount.AccountID `json:"low"`
	High           amount.AccountID `json:"high"`
	Currency       amount.Currency  `json:"currency"`
	Balance        amount.Amount    `json:"balance"`
	LowLimit       amount.Amount    `json:"low_limit"`
	HighLimit      amount.Amount    `json:"high_limit"`
	LowQualityIn   uint32           `json:"low_quality_in"`
	LowQualityOut  uint32           `json:"low_quality_out"`
	HighQualityIn  uint32           `json:"high_quality_in"`
	HighQualityOut uint32           `json:"high_quality_out"`
	Flags          LineFlags        `json:"flags"`
}

// NewTrustLine orders the two accounts and returns an empty line.
func NewTrustLine(a, b amount.AccountID, currency amount.Currency) *TrustLine {
	low, high := a, b
	if high.Less(low) {
		low, high = high, low
	}
	return &TrustLine{
		Low:       low,
		High:      high,
		Currency:  currency,
		Balance:   amount.Zero(amount.NewIssue(currency, amount.NoAccount)),
		LowLimit:  amount.Zero(amount.NewIssue(currency, low)),
		HighLimit: amount.Zero(amount.NewIssue(currency, high)),
	}
}

func (l *TrustLine) Keylet() keylet.Keylet { return keylet.Line(l.Low, l.High, l.Currency) }

func (l *TrustLine) Clone() Entry {
	c := *l
	return &c
}

// IsLow reports whether account is the low side of the line.
func (l *TrustLine) IsLow(account amount.AccountID) bool {
	return account == l.Low
}

// Peer returns the other side of the line.
func (l *TrustLine) Peer(account amount.AccountID) amount.AccountID {
	if l.IsLow(account) {
		return l.High
	}
	return l.Low
}

// BalanceFor returns the IOUs account holds on the line, negative when it
// owes its peer. The result is issued by the peer.
func (l *TrustLine) BalanceFor(account amount.AccountID) amount.Amount {
	b := l.Balance
	if !l.IsLow(account) {
		b = b.Negate()
	}
	return b.WithIssuer(l.Peer(account))
}

// SetBalanceFor stores a balance given from account's perspective.
func (l *TrustLine) SetBalanceFor(account amount.AccountID, b amount.Amount) {
	if !l.IsLow(account) {
		b = b.Negate()
	}
	l.Balance = b.WithIssuer(amount.NoAccount)
}

// LimitOf returns the limit account set on its peer.
func (l *TrustLine) LimitOf(account amount.AccountID) amount.Amount {
	if l.IsLow(account) {
		return l.LowLimit
	}
	return l.HighLimit
}

// QualityIn returns account's inbound quality, zero when unset.
func (l *TrustLine) QualityIn(account amount.AccountID) uint32 {
	if l.IsLow(account) {
		return l.LowQualityIn
	}
	return l.HighQualityIn
}

// QualityOut returns account's outbound quality, zero when unset.
func (l *TrustLine) QualityOut(account amount.AccountID) uint32 {
	if l.IsLow(account) {
		return l.LowQualityOut
	}
	return l.HighQualityOut
}

func (l *TrustLine) side(account amount.AccountID, low, high LineFlags) bool {
	if l.IsLow(account) {
		return l.Flags&low != 0
	}
	return l.Flags&high != 0
}

// NoDivvy reports whether account disabled rippling on its side.
func (l *TrustLine) NoDivvy(account amount.AccountID) bool {
	return l.side(account, LowNoDivvy, HighNoDivvy)
}

// Authorized reports whether account authorized its peer to hold its IOUs.
func (l *TrustLine) Authorized(account amount.AccountID) bool {
	return l.side(account, LowAuth, HighAuth)
}

// FrozenBy reports whether account froze its peer on this line.
func (l *TrustLine) FrozenBy(account amount.AccountID) bool {
	return l.side(account, LowFreeze, HighFreeze)
}

// Offer is a resting order: the owner gives TakerGets for TakerPays.
// Quality is the directory tier the offer was placed in.
type Offer struct {
	Owner      amount.AccountID `json:"owner"`
	Sequence   uint32           `json:"sequence"`
	TakerPays  amount.Amount    `json:"taker_pays"`
	TakerGets  amount.Amount    `json:"taker_gets"`
	Expiration uint32           `json:"expiration,omitempty"`
	Quality    quality.Quality  `json:"quality"`
}

func (o *Offer) Keylet() keylet.Keylet { return keylet.Offer(o.Owner, o.Sequence) }

func (o *Offer) Clone() Entry {
	c := *o
	return &c
}

// Book returns the book the offer rests in.
func (o *Offer) Book() amount.Book {
	return amount.Book{In: o.TakerPays.Issue(), Out: o.TakerGets.Issue()}
}

// Fees holds the reserve requirements in drops.
type Fees struct {
	ReserveBase      int64 `json:"reserve_base" mapstructure:"reserve_base"`
	ReserveIncrement int64 `json:"reserve_increment" mapstructure:"reserve_increment"`
}

// Reserve returns the reserve for an account owning ownerCount objects.
func (f Fees) Reserve(ownerCount uint32) int64 {
	return f.ReserveBase + f.ReserveIncrement*int64(ownerCount)
}
