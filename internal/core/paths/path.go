package paths

import (
	"strings"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
)

// Element type bits.
const (
	TypeAccount  uint8 = 0x01
	TypeCurrency uint8 = 0x10
	TypeIssuer   uint8 = 0x20

	TypeAll = TypeAccount | TypeCurrency | TypeIssuer
)

// Element is one hop of a caller supplied path: an account to divvy
// through, or an order book named by the currency and issuer it delivers.
// Fields not flagged in Type are inherited from the previous hop.
type Element struct {
	Type     uint8            `json:"type"`
	Account  amount.AccountID `json:"account"`
	Currency amount.Currency  `json:"currency,omitempty"`
	Issuer   amount.AccountID `json:"issuer"`
}

// AccountElement returns a hop through account.
func AccountElement(account amount.AccountID) Element {
	return Element{Type: TypeAccount, Account: account}
}

// BookElement returns an order book hop into currency issued by issuer.
// Native books carry no issuer.
func BookElement(currency amount.Currency, issuer amount.AccountID) Element {
	e := Element{Type: TypeCurrency, Currency: currency}
	if !currency.IsNative() {
		e.Type |= TypeIssuer
		e.Issuer = issuer
	}
	return e
}

func (e Element) IsAccount() bool   { return e.Type&TypeAccount != 0 }
func (e Element) HasCurrency() bool { return e.Type&TypeCurrency != 0 }
func (e Element) HasIssuer() bool   { return e.Type&TypeIssuer != 0 }

func (e Element) String() string {
	var parts []string
	if e.IsAccount() {
		parts = append(parts, e.Account.String())
	}
	if e.HasCurrency() {
		parts = append(parts, string(e.Currency))
	}
	if e.HasIssuer() {
		parts = append(parts, "/"+e.Issuer.String())
	}
	return strings.Join(parts, " ")
}

// Path is an ordered list of hops between source and destination, both
// excluded.
type Path []Element

func (p Path) String() string {
	hops := make([]string, len(p))
	for i, e := range p {
		hops[i] = e.String()
	}
	return "[" + strings.Join(hops, ", ") + "]"
}

// PathSet is the caller's list of alternative paths.
type PathSet []Path
