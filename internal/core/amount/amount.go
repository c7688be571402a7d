package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Constants matching divvyd's canonical amount representation
const (
	// Exponent range for normalized issued amounts
	MinExponent = -96
	MaxExponent = 80

	// Mantissa range for normalized issued amounts [10^15, 10^16 - 1]
	MinMantissa uint64 = 1_000_000_000_000_000
	MaxMantissa uint64 = 9_999_999_999_999_999

	// Maximum native amount in drops
	MaxNativeDrops uint64 = 100_000_000_000_000_000

	// Drops per XDV
	DropsPerXDV int64 = 1_000_000

	// Exponent carried by issued zero amounts
	zeroExponent = -100
)

var (
	ErrOverflow      = errors.New("amount overflow")
	ErrIncomparable  = errors.New("amounts are not comparable")
	ErrDivideByZero  = errors.New("division by zero")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Amount is a signed quantity of one issue.
//
// Native amounts are whole drops held in mantissa with a zero exponent.
// Issued amounts are normalized so that the mantissa lies in
// [MinMantissa, MaxMantissa]; zero is mantissa 0 with exponent -100.
type Amount struct {
	issue    Issue
	mantissa uint64
	exponent int
	negative bool
}

// New builds a canonical amount. It panics with ErrOverflow when the value
// cannot be represented.
func New(issue Issue, mantissa uint64, exponent int, negative bool) Amount {
	a := Amount{issue: issue, mantissa: mantissa, exponent: exponent, negative: negative}
	a.canonicalize()
	return a
}

// NewNative returns an amount of drops.
func NewNative(drops int64) Amount {
	if drops < 0 {
		return New(NativeIssue, uint64(-drops), 0, true)
	}
	return New(NativeIssue, uint64(drops), 0, false)
}

// FromInt returns the integer v of the given issue.
func FromInt(issue Issue, v int64) Amount {
	if v < 0 {
		return New(issue, uint64(-v), 0, true)
	}
	return New(issue, uint64(v), 0, false)
}

// Zero returns the zero amount of an issue.
func Zero(issue Issue) Amount {
	return New(issue, 0, 0, false)
}

func (a *Amount) canonicalize() {
	if a.issue.IsNative() {
		if a.mantissa == 0 {
			a.exponent = 0
			a.negative = false
			return
		}
		for a.exponent < 0 {
			a.mantissa /= 10
			a.exponent++
		}
		for a.exponent > 0 {
			if a.mantissa > MaxNativeDrops/10 {
				panic(ErrOverflow)
			}
			a.mantissa *= 10
			a.exponent--
		}
		if a.mantissa > MaxNativeDrops {
			panic(ErrOverflow)
		}
		if a.mantissa == 0 {
			a.negative = false
		}
		return
	}

	if a.mantissa == 0 {
		a.exponent = zeroExponent
		a.negative = false
		return
	}
	for a.mantissa < MinMantissa && a.exponent > MinExponent {
		a.mantissa *= 10
		a.exponent--
	}
	for a.mantissa > MaxMantissa {
		if a.exponent >= MaxExponent {
			panic(ErrOverflow)
		}
		a.mantissa /= 10
		a.exponent++
	}
	if a.exponent < MinExponent || a.mantissa < MinMantissa {
		a.mantissa = 0
		a.exponent = zeroExponent
		a.negative = false
		return
	}
	if a.exponent > MaxExponent {
		panic(ErrOverflow)
	}
}

// Issue returns the currency and issuer of the amount.
func (a Amount) Issue() Issue { return a.issue }

// Currency returns the currency code.
func (a Amount) Currency() Currency { return a.issue.Currency }

// Issuer returns the issuing account.
func (a Amount) Issuer() AccountID { return a.issue.Account }

// IsNative reports whether this is an amount of drops.
func (a Amount) IsNative() bool { return a.issue.IsNative() }

// Mantissa returns the unsigned mantissa.
func (a Amount) Mantissa() uint64 { return a.mantissa }

// Exponent returns the decimal exponent.
func (a Amount) Exponent() int { return a.exponent }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.mantissa == 0 }

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a.negative && a.mantissa != 0 }

// IsPositive reports whether the amount is above zero.
func (a Amount) IsPositive() bool { return !a.negative && a.mantissa != 0 }

// Signum returns -1, 0 or 1.
func (a Amount) Signum() int {
	switch {
	case a.mantissa == 0:
		return 0
	case a.negative:
		return -1
	default:
		return 1
	}
}

// Drops returns the signed drop count of a native amount.
func (a Amount) Drops() int64 {
	if !a.IsNative() {
		return 0
	}
	if a.negative {
		return -int64(a.mantissa)
	}
	return int64(a.mantissa)
}

// Negate flips the sign.
func (a Amount) Negate() Amount {
	if a.mantissa == 0 {
		return a
	}
	a.negative = !a.negative
	return a
}

// Abs drops the sign.
func (a Amount) Abs() Amount {
	a.negative = false
	return a
}

// Zeroed returns zero of the same issue.
func (a Amount) Zeroed() Amount {
	return Zero(a.issue)
}

// WithIssuer returns the same value issued by another account.
// Native amounts are returned unchanged.
func (a Amount) WithIssuer(issuer AccountID) Amount {
	if a.IsNative() {
		return a
	}
	a.issue.Account = issuer
	return a
}

// WithIssue returns the same value under another issue of identical
// nativeness.
func (a Amount) WithIssue(issue Issue) Amount {
	if issue.IsNative() != a.IsNative() {
		panic(fmt.Errorf("%w: %s vs %s", ErrIncomparable, a.issue, issue))
	}
	a.issue = issue
	return a
}

// Value returns the decimal value without currency information.
func (a Amount) Value() string {
	if a.IsNative() {
		return strconv.FormatInt(a.Drops(), 10)
	}
	if a.mantissa == 0 {
		return "0"
	}

	digits := strconv.FormatUint(a.mantissa, 10)
	pos := len(digits) + a.exponent

	var out string
	switch {
	case pos <= 0:
		out = "0." + strings.Repeat("0", -pos) + digits
	case a.exponent >= 0:
		out = digits + strings.Repeat("0", a.exponent)
	default:
		out = digits[:pos] + "." + digits[pos:]
	}
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimRight(out, ".")
	}
	if a.negative {
		out = "-" + out
	}
	return out
}

// String formats the amount as value/currency[/issuer].
func (a Amount) String() string {
	if a.IsNative() {
		return a.Value() + "/" + string(XDV)
	}
	if a.issue.Account == NoAccount {
		return a.Value()
	}
	return a.Value() + "/" + string(a.issue.Currency) + "/" + a.issue.Account.String()
}

// ParseValue parses a decimal string (optionally with an e-exponent) into
// an amount of the given issue. Native values are drops.
func ParseValue(issue Issue, value string) (Amount, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	exponent := 0
	if idx := strings.IndexAny(s, "eE"); idx >= 0 {
		e, err := strconv.Atoi(s[idx+1:])
		if err != nil {
			return Amount{}, fmt.Errorf("%w: exponent in %q", ErrInvalidAmount, value)
		}
		exponent = e
		s = s[:idx]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	digits := strings.TrimLeft(intPart+fracPart, "0")
	exponent -= len(fracPart)
	for exponent < 0 && strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exponent++
	}
	for len(digits) > 19 {
		digits = digits[:len(digits)-1]
		exponent++
	}
	if digits == "" {
		return Zero(issue), nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
	}
	mantissa, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, value, err)
	}
	if issue.IsNative() && exponent < 0 {
		return Amount{}, fmt.Errorf("%w: fractional drops %q", ErrInvalidAmount, value)
	}

	var out Amount
	err = catchOverflow(func() { out = New(issue, mantissa, exponent, negative) })
	return out, err
}

// Parse reads "drops", "drops/XDV" or "value/currency/issuer".
func Parse(s string) (Amount, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	switch len(parts) {
	case 1:
		return ParseValue(NativeIssue, parts[0])
	case 2:
		if Currency(parts[1]) != XDV {
			return Amount{}, fmt.Errorf("%w: issued amount %q needs an issuer", ErrInvalidAmount, s)
		}
		return ParseValue(NativeIssue, parts[0])
	case 3:
		currency := Currency(parts[1])
		if currency.IsNative() {
			return Amount{}, fmt.Errorf("%w: native amount %q has an issuer", ErrInvalidAmount, s)
		}
		issuer, err := ParseAccountID(parts[2])
		if err != nil {
			return Amount{}, err
		}
		return ParseValue(NewIssue(currency, issuer), parts[0])
	default:
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
}

// MustParse is Parse for tests and constants.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// catchOverflow converts an ErrOverflow panic into an error.
func catchOverflow(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, ErrOverflow) {
				err = e
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

type jsonAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
}

// MarshalJSON renders native amounts as a drops string and issued amounts
// as a value/currency/issuer object.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsNative() {
		return json.Marshal(a.Value())
	}
	issuer, err := a.issue.Account.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonAmount{
		Value:    a.Value(),
		Currency: string(a.issue.Currency),
		Issuer:   string(issuer),
	})
}

// UnmarshalJSON accepts both forms produced by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var drops string
	if err := json.Unmarshal(data, &drops); err == nil {
		out, err := ParseValue(NativeIssue, drops)
		if err != nil {
			return err
		}
		*a = out
		return nil
	}

	var obj jsonAmount
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if Currency(obj.Currency).IsNative() {
		out, err := ParseValue(NativeIssue, obj.Value)
		if err != nil {
			return err
		}
		*a = out
		return nil
	}
	issuer, err := ParseAccountID(obj.Issuer)
	if err != nil {
		return err
	}
	out, err := ParseValue(NewIssue(Currency(obj.Currency), issuer), obj.Value)
	if err != nil {
		return err
	}
	*a = out
	return nil
}
