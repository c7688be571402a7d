package amount

import (
	"cmp"
	"fmt"
	"math/big"
)

const (
	tenTo14   uint64 = 100_000_000_000_000
	tenTo14m1 uint64 = tenTo14 - 1
	tenTo17   uint64 = 100_000_000_000_000_000
)

// Comparable reports whether two amounts may be added or compared: same
// nativeness and same currency. Issuers may differ.
func Comparable(a, b Amount) bool {
	return a.IsNative() == b.IsNative() && a.issue.Currency == b.issue.Currency
}

func mustCompare(a, b Amount) {
	if !Comparable(a, b) {
		panic(fmt.Errorf("%w: %s and %s", ErrIncomparable, a.issue, b.issue))
	}
}

// Add returns a+b in a's issue. The operands must be comparable.
func (a Amount) Add(b Amount) Amount {
	mustCompare(a, b)
	if b.IsZero() {
		return a
	}
	if a.IsZero() {
		return New(a.issue, b.mantissa, b.exponent, b.negative)
	}
	if a.IsNative() {
		return NewNative(a.Drops() + b.Drops())
	}

	e1, e2 := a.exponent, b.exponent
	v1, v2 := int64(a.mantissa), int64(b.mantissa)
	if a.negative {
		v1 = -v1
	}
	if b.negative {
		v2 = -v2
	}
	for e1 < e2 {
		v1 /= 10
		e1++
	}
	for e2 < e1 {
		v2 /= 10
		e2++
	}

	sum := v1 + v2
	if sum >= -10 && sum <= 10 {
		return Zero(a.issue)
	}
	if sum < 0 {
		return New(a.issue, uint64(-sum), e1, true)
	}
	return New(a.issue, uint64(sum), e1, false)
}

// Sub returns a-b in a's issue.
func (a Amount) Sub(b Amount) Amount {
	return a.Add(b.Negate())
}

// Compare returns -1, 0 or 1. The operands must be comparable.
func (a Amount) Compare(b Amount) int {
	mustCompare(a, b)
	if a.IsNative() {
		return cmp.Compare(a.Drops(), b.Drops())
	}
	sa, sb := a.Signum(), b.Signum()
	if sa != sb {
		return cmp.Compare(sa, sb)
	}
	if sa == 0 {
		return 0
	}
	c := cmp.Compare(a.exponent, b.exponent)
	if c == 0 {
		c = cmp.Compare(a.mantissa, b.mantissa)
	}
	if sa < 0 {
		return -c
	}
	return c
}

// Equal reports value equality of comparable amounts.
func (a Amount) Equal(b Amount) bool { return a.Compare(b) == 0 }

// Less reports a < b.
func (a Amount) Less(b Amount) bool { return a.Compare(b) < 0 }

// Greater reports a > b.
func (a Amount) Greater(b Amount) bool { return a.Compare(b) > 0 }

// Min returns the smaller of two comparable amounts, preferring a on ties.
func Min(a, b Amount) Amount {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the larger of two comparable amounts, preferring a on ties.
func Max(a, b Amount) Amount {
	if b.Greater(a) {
		return b
	}
	return a
}

// scaled returns a mantissa in the issued range; native values are
// scaled up so both kinds can be combined.
func (a Amount) scaled() (uint64, int) {
	m, e := a.mantissa, a.exponent
	if a.IsNative() {
		for m < MinMantissa {
			m *= 10
			e--
		}
	}
	return m, e
}

// mulDiv computes (a*b + rounding) / c with a 128-bit intermediate.
func mulDiv(a, b, c, rounding uint64) uint64 {
	p := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	p.Add(p, new(big.Int).SetUint64(rounding))
	p.Quo(p, new(big.Int).SetUint64(c))
	if !p.IsUint64() {
		panic(ErrOverflow)
	}
	return p.Uint64()
}

func nativeProduct(v1, v2 Amount) Amount {
	minV, maxV := v1.mantissa, v2.mantissa
	if minV > maxV {
		minV, maxV = maxV, minV
	}
	if minV > 3_000_000_000 || (maxV>>32)*minV > 2_095_475_792 {
		panic(ErrOverflow)
	}
	return New(NativeIssue, minV*maxV, 0, v1.negative != v2.negative)
}

// Multiply returns v1*v2 expressed in issue.
func Multiply(v1, v2 Amount, issue Issue) Amount {
	if v1.IsZero() || v2.IsZero() {
		return Zero(issue)
	}
	if v1.IsNative() && v2.IsNative() && issue.IsNative() {
		return nativeProduct(v1, v2)
	}
	m1, e1 := v1.scaled()
	m2, e2 := v2.scaled()
	return New(issue, mulDiv(m1, m2, tenTo14, 0)+7, e1+e2+14, v1.negative != v2.negative)
}

// Divide returns num/den expressed in issue. It panics with
// ErrDivideByZero when den is zero.
func Divide(num, den Amount, issue Issue) Amount {
	if den.IsZero() {
		panic(ErrDivideByZero)
	}
	if num.IsZero() {
		return Zero(issue)
	}
	nm, ne := num.scaled()
	dm, de := den.scaled()
	return New(issue, mulDiv(nm, tenTo17, dm, 0)+5, ne-de-17, num.negative != den.negative)
}

// canonicalizeRound pre-rounds a raw product or quotient away from zero
// so the truncating constructor lands on the rounded value.
func canonicalizeRound(native bool, value uint64, exponent int) (uint64, int) {
	if native {
		if exponent < 0 {
			loops := 0
			for exponent < -1 {
				value /= 10
				exponent++
				loops++
			}
			if loops >= 2 {
				value += 9
			} else {
				value += 10
			}
			value /= 10
			exponent++
		}
		return value, exponent
	}
	if value > MaxMantissa {
		for value > 10*MaxMantissa {
			value /= 10
			exponent++
		}
		value += 9
		value /= 10
		exponent++
	}
	return value, exponent
}

func smallestPositive(issue Issue) Amount {
	if issue.IsNative() {
		return New(issue, 1, 0, false)
	}
	return New(issue, MinMantissa, MinExponent, false)
}

// MulRound returns v1*v2 in issue, rounding the magnitude up when roundUp is
// set for positive results (and down for negative ones), otherwise
// truncating. A positive rounded-up result is never zero.
func MulRound(v1, v2 Amount, issue Issue, roundUp bool) Amount {
	if v1.IsZero() || v2.IsZero() {
		return Zero(issue)
	}
	if v1.IsNative() && v2.IsNative() && issue.IsNative() {
		return nativeProduct(v1, v2)
	}
	m1, e1 := v1.scaled()
	m2, e2 := v2.scaled()

	negative := v1.negative != v2.negative
	var rounding uint64
	if negative != roundUp {
		rounding = tenTo14m1
	}
	value := mulDiv(m1, m2, tenTo14, rounding)
	exponent := e1 + e2 + 14
	if negative != roundUp && roundUp {
		value, exponent = canonicalizeRound(issue.IsNative(), value, exponent)
	}
	result := New(issue, value, exponent, negative)
	if roundUp && !negative && result.IsZero() {
		return smallestPositive(issue)
	}
	return result
}

// DivRound returns num/den in issue with the same rounding contract as
// MulRound.
func DivRound(num, den Amount, issue Issue, roundUp bool) Amount {
	if den.IsZero() {
		panic(ErrDivideByZero)
	}
	if num.IsZero() {
		return Zero(issue)
	}
	nm, ne := num.scaled()
	dm, de := den.scaled()

	negative := num.negative != den.negative
	var rounding uint64
	if negative != roundUp {
		rounding = dm - 1
	}
	value := mulDiv(nm, tenTo17, dm, rounding)
	exponent := ne - de - 17
	if negative != roundUp && roundUp {
		value, exponent = canonicalizeRound(issue.IsNative(), value, exponent)
	}
	result := New(issue, value, exponent, negative)
	if roundUp && !negative && result.IsZero() {
		return smallestPositive(issue)
	}
	return result
}
