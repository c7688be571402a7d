package quality

import "github.com/LeJamon/goDivvyd/internal/core/amount"

// TransferRate is an issuer's fee on third party transfers, or a trust
// line quality, scaled so that One means no fee.
type TransferRate uint32

// Parity is the rate that changes nothing.
const Parity = TransferRate(One)

// Amount returns the rate as a dimensionless amount (rate * 1e-9).
func (r TransferRate) Amount() amount.Amount {
	return amount.New(amount.NoIssue, uint64(r), -9, false)
}

// IsParity reports whether the rate is 1:1.
func (r TransferRate) IsParity() bool {
	return r == Parity
}

// Multiply applies the rate to a, truncating. Parity returns a unchanged.
func (r TransferRate) Multiply(a amount.Amount) amount.Amount {
	if r.IsParity() {
		return a
	}
	return amount.Multiply(a, r.Amount(), a.Issue())
}

// Divide removes the rate from a, truncating. Parity returns a unchanged.
func (r TransferRate) Divide(a amount.Amount) amount.Amount {
	if r.IsParity() {
		return a
	}
	return amount.Divide(a, r.Amount(), a.Issue())
}

// MulRound applies the rate with directed rounding.
func (r TransferRate) MulRound(a amount.Amount, roundUp bool) amount.Amount {
	if r.IsParity() {
		return a
	}
	return amount.MulRound(a, r.Amount(), a.Issue(), roundUp)
}

// DivRound removes the rate with directed rounding.
func (r TransferRate) DivRound(a amount.Amount, roundUp bool) amount.Amount {
	if r.IsParity() {
		return a
	}
	return amount.DivRound(a, r.Amount(), a.Issue(), roundUp)
}
