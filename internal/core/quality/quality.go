package quality

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
)

// One is the parity value for transfer rates and trust line qualities
// (1 billion means 1:1).
const One uint32 = 1_000_000_000

// RateOne is the encoded rate of a 1:1 exchange.
var RateOne = GetRate(amount.FromInt(amount.NoIssue, 1), amount.FromInt(amount.NoIssue, 1))

// GetRate encodes offerIn/offerOut as (exponent+100)<<56 | mantissa.
// Zero means no rate: the output is zero, or the ratio is out of range.
func GetRate(offerOut, offerIn amount.Amount) (rate uint64) {
	if offerOut.IsZero() {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, amount.ErrOverflow) {
				rate = 0
				return
			}
			panic(r)
		}
	}()
	r := amount.Divide(offerIn, offerOut, amount.NoIssue)
	if r.IsZero() {
		return 0
	}
	return uint64(r.Exponent()+100)<<56 | r.Mantissa()
}

// AmountFromRate decodes an encoded rate into a dimensionless amount.
func AmountFromRate(rate uint64) amount.Amount {
	if rate == 0 {
		return amount.Zero(amount.NoIssue)
	}
	mantissa := rate & ^(uint64(255) << 56)
	exponent := int(rate>>56) - 100
	return amount.New(amount.NoIssue, mantissa, exponent, false)
}

// LineRate is the encoded rate qualityIn/qualityOut of moving value into a
// node at qualityIn and out of it at qualityOut.
func LineRate(qualityIn, qualityOut uint32) uint64 {
	return GetRate(amount.NewNative(int64(qualityOut)), amount.NewNative(int64(qualityIn)))
}

// Quality represents an exchange rate as output/input ratio.
//
// Quality is encoded from in/out, so a lower value is a better deal for the
// taker. The zero value means no liquidity.
type Quality struct {
	Value uint64
}

// FromAmounts creates the quality of trading in for out.
func FromAmounts(in, out amount.Amount) Quality {
	return Quality{Value: GetRate(out, in)}
}

// IsZero reports whether the quality carries no liquidity.
func (q Quality) IsZero() bool {
	return q.Value == 0
}

// Rate returns in/out as a dimensionless amount.
func (q Quality) Rate() amount.Amount {
	return AmountFromRate(q.Value)
}

// Compare orders by encoded value: negative when q is better than other.
func (q Quality) Compare(other Quality) int {
	switch {
	case q.Value < other.Value:
		return -1
	case q.Value > other.Value:
		return 1
	default:
		return 0
	}
}

// BetterThan returns true if q is a strictly better deal than other.
func (q Quality) BetterThan(other Quality) bool {
	return q.Value < other.Value
}

// WorseThan returns true if q is a strictly worse deal than other.
func (q Quality) WorseThan(other Quality) bool {
	return q.Value > other.Value
}

// Next returns the next worse quality tier.
func (q Quality) Next() Quality {
	return Quality{Value: q.Value + 1}
}

func (q Quality) String() string {
	if q.IsZero() {
		return "dry"
	}
	return fmt.Sprintf("%s (%016x)", q.Rate().Value(), q.Value)
}

// CeilIn limits a to an input of limit, deriving the output from q and
// never exceeding a.Out.
func (q Quality) CeilIn(a Amounts, limit amount.Amount) Amounts {
	if !a.In.Greater(limit) {
		return a
	}
	out := amount.DivRound(limit, q.Rate(), a.Out.Issue(), true)
	if out.Greater(a.Out) {
		out = a.Out
	}
	return Amounts{In: limit, Out: out}
}

// CeilOut limits a to an output of limit, deriving the input from q and
// never exceeding a.In.
func (q Quality) CeilOut(a Amounts, limit amount.Amount) Amounts {
	if !a.Out.Greater(limit) {
		return a
	}
	in := amount.MulRound(limit, q.Rate(), a.In.Issue(), true)
	if in.Greater(a.In) {
		in = a.In
	}
	return Amounts{In: in, Out: limit}
}

// Composed returns the quality of crossing lhs then rhs.
func Composed(lhs, rhs Quality) Quality {
	rate := amount.MulRound(lhs.Rate(), rhs.Rate(), amount.NoIssue, true)
	if rate.IsZero() {
		return Quality{}
	}
	return Quality{Value: uint64(rate.Exponent()+100)<<56 | rate.Mantissa()}
}

// Amounts is a pair of input and output amounts.
type Amounts struct {
	In  amount.Amount
	Out amount.Amount
}

// IsEmpty reports whether either side is non-positive.
func (a Amounts) IsEmpty() bool {
	return !a.In.IsPositive() || !a.Out.IsPositive()
}

// Quality returns the quality of exchanging In for Out.
func (a Amounts) Quality() Quality {
	return FromAmounts(a.In, a.Out)
}

func (a Amounts) String() string {
	return a.In.String() + " -> " + a.Out.String()
}
