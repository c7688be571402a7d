package keylet

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
)

// Space identifiers for keylet generation
const (
	spaceAccount  uint16 = 'a' // Account root
	spaceDivvyDir uint16 = 'r' // Trust line
	spaceOffer    uint16 = 'o' // Offer
	spaceBookDir  uint16 = 'B' // Order book directory
)

// Type tags the kind of entry a key addresses.
type Type uint8

const (
	TypeAccountRoot Type = iota + 1
	TypeTrustLine
	TypeOffer
	TypeBook
)

func (t Type) String() string {
	switch t {
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeTrustLine:
		return "TrustLine"
	case TypeOffer:
		return "Offer"
	case TypeBook:
		return "Book"
	default:
		return "Unknown"
	}
}

// Key is a 256-bit ledger index.
type Key [32]byte

func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type Type
	Key  Key
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) Key {
	h := sha512.New()
	var spaceBytes [2]byte
	binary.BigEndian.PutUint16(spaceBytes[:], space)
	h.Write(spaceBytes[:])
	for _, d := range data {
		h.Write(d)
	}
	var k Key
	copy(k[:], h.Sum(nil)[:32])
	return k
}

// Account returns the keylet for an account root entry.
func Account(id amount.AccountID) Keylet {
	return Keylet{
		Type: TypeAccountRoot,
		Key:  indexHash(spaceAccount, id[:]),
	}
}

// Line returns the keylet for the trust line between two accounts. The
// accounts may be given in either order.
func Line(a, b amount.AccountID, currency amount.Currency) Keylet {
	low, high := a, b
	if high.Less(low) {
		low, high = high, low
	}
	code := CurrencyBytes(currency)
	return Keylet{
		Type: TypeTrustLine,
		Key:  indexHash(spaceDivvyDir, low[:], high[:], code[:]),
	}
}

// Offer returns the keylet for an offer entry.
func Offer(owner amount.AccountID, sequence uint32) Keylet {
	var seqBytes [4]byte
	binary.BigEndian.PutUint32(seqBytes[:], sequence)
	return Keylet{
		Type: TypeOffer,
		Key:  indexHash(spaceOffer, owner[:], seqBytes[:]),
	}
}

// Book returns the keylet of the order book taking in and giving out.
func Book(in, out amount.Issue) Keylet {
	inCode, outCode := CurrencyBytes(in.Currency), CurrencyBytes(out.Currency)
	return Keylet{
		Type: TypeBook,
		Key:  indexHash(spaceBookDir, inCode[:], in.Account[:], outCode[:], out.Account[:]),
	}
}

// CurrencyBytes converts a currency code to its 20-byte representation.
// Three character codes are placed in bytes 12-14, 40 character codes are
// decoded as hex and the native currency is all zeros.
func CurrencyBytes(currency amount.Currency) [20]byte {
	var result [20]byte
	switch {
	case currency.IsNative() || currency == amount.NoCurrency:
	case len(currency) == 3:
		copy(result[12:15], currency)
	case len(currency) == 40:
		if b, err := hex.DecodeString(string(currency)); err == nil {
			copy(result[:], b)
		}
	}
	return result
}
