package amount

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
)

// AccountIDSize is the length of an account identifier in bytes.
const AccountIDSize = 20

// AccountID identifies a ledger account.
// The zero value doubles as the native issuer and the limbo account.
type AccountID [AccountIDSize]byte

var (
	// XDVAccount is the issuer of the native currency and the limbo account
	// used while native funds are in flight between offers.
	XDVAccount = AccountID{}

	// NoAccount issues dimensionless values such as rates.
	NoAccount = AccountID{19: 1}
)

var ErrInvalidAccount = errors.New("invalid account")

// ParseAccountID accepts a classic address or a 40 character hex string.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	if len(s) == 2*AccountIDSize {
		if b, err := hex.DecodeString(s); err == nil {
			copy(id[:], b)
			return id, nil
		}
	}
	_, raw, err := addresscodec.DecodeClassicAddressToAccountID(s)
	if err != nil {
		return id, fmt.Errorf("%w %q: %v", ErrInvalidAccount, s, err)
	}
	if len(raw) != AccountIDSize {
		return id, fmt.Errorf("%w %q: bad length %d", ErrInvalidAccount, s, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseAccountID is ParseAccountID for tests and constants.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the id is the native issuer / limbo account.
func (a AccountID) IsZero() bool {
	return a == XDVAccount
}

// Compare orders account ids bytewise, the order used to pick the low and
// high side of a trust line.
func (a AccountID) Compare(b AccountID) int {
	return bytes.Compare(a[:], b[:])
}

// Less reports whether a sorts before b.
func (a AccountID) Less(b AccountID) bool {
	return a.Compare(b) < 0
}

// Hex returns the upper case hex encoding.
func (a AccountID) Hex() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// String returns the classic address, or hex when encoding fails.
func (a AccountID) String() string {
	switch a {
	case XDVAccount:
		return "XDV"
	case NoAccount:
		return "none"
	}
	addr, err := addresscodec.EncodeAccountIDToClassicAddress(a[:])
	if err != nil {
		return a.Hex()
	}
	return addr
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	if a.IsZero() {
		return []byte(""), nil
	}
	addr, err := addresscodec.EncodeAccountIDToClassicAddress(a[:])
	if err != nil {
		return nil, err
	}
	return []byte(addr), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = XDVAccount
		return nil
	}
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// Currency is a currency code. XDV is the native currency.
type Currency string

const (
	XDV Currency = "XDV"

	// NoCurrency tags dimensionless values such as rates.
	NoCurrency Currency = ""
)

// IsNative reports whether c is the native currency.
func (c Currency) IsNative() bool {
	return c == XDV
}

// Issue is a currency together with the account that issues it.
type Issue struct {
	Currency Currency
	Account  AccountID
}

var (
	// NativeIssue is the issue of the native currency.
	NativeIssue = Issue{Currency: XDV, Account: XDVAccount}

	// NoIssue is the issue of dimensionless values.
	NoIssue = Issue{Currency: NoCurrency, Account: NoAccount}
)

// NewIssue builds an issue for an issued currency.
func NewIssue(currency Currency, issuer AccountID) Issue {
	if currency.IsNative() {
		return NativeIssue
	}
	return Issue{Currency: currency, Account: issuer}
}

// IsNative reports whether the issue is the native currency.
func (i Issue) IsNative() bool {
	return i.Currency.IsNative()
}

// IsConsistent reports whether native currencies carry the native issuer
// and issued currencies do not.
func (i Issue) IsConsistent() bool {
	return i.Currency.IsNative() == i.Account.IsZero()
}

func (i Issue) String() string {
	if i.IsNative() {
		return string(XDV)
	}
	return string(i.Currency) + "/" + i.Account.String()
}

// Book is an ordered pair of issues: offers in the book take In and give Out.
type Book struct {
	In  Issue
	Out Issue
}

func (b Book) String() string {
	return b.In.String() + "->" + b.Out.String()
}

// Reversed returns the book trading in the opposite direction.
func (b Book) Reversed() Book {
	return Book{In: b.Out, Out: b.In}
}
