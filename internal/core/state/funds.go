package state

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// CreditBalance returns what account owes issuer on their line, negative
// when issuer owes account. The result is issued by account.
func CreditBalance(v ReadView, account, issuer amount.AccountID, currency amount.Currency) amount.Amount {
	line, ok := ReadLine(v, account, issuer, currency)
	if !ok {
		return amount.Zero(amount.NewIssue(currency, account))
	}
	return line.BalanceFor(account).Negate().WithIssuer(account)
}

// CreditLimit returns the most of issuer's IOUs account accepts to hold.
// The result is issued by account.
func CreditLimit(v ReadView, account, issuer amount.AccountID, currency amount.Currency) amount.Amount {
	line, ok := ReadLine(v, account, issuer, currency)
	if !ok {
		return amount.Zero(amount.NewIssue(currency, account))
	}
	return line.LimitOf(account).WithIssuer(account)
}

func lineQuality(v ReadView, to, from amount.AccountID, currency amount.Currency, in bool) uint32 {
	if to == from {
		return quality.One
	}
	line, ok := ReadLine(v, to, from, currency)
	if !ok {
		return quality.One
	}
	q := line.QualityOut(to)
	if in {
		q = line.QualityIn(to)
	}
	if q == 0 {
		return quality.One
	}
	return q
}

// QualityIn is the rate at which to values IOUs received from from.
func QualityIn(v ReadView, to, from amount.AccountID, currency amount.Currency) uint32 {
	return lineQuality(v, to, from, currency, true)
}

// QualityOut is the rate at which to values IOUs it sends to from.
func QualityOut(v ReadView, to, from amount.AccountID, currency amount.Currency) uint32 {
	return lineQuality(v, to, from, currency, false)
}

// IsGlobalFrozen reports whether issuer froze all of its lines.
func IsGlobalFrozen(v ReadView, issuer amount.AccountID) bool {
	if issuer.IsZero() {
		return false
	}
	acct, ok := ReadAccount(v, issuer)
	return ok && acct.Has(GlobalFreeze)
}

// IsFrozen reports whether account's holdings of currency from issuer are
// frozen.
func IsFrozen(v ReadView, account amount.AccountID, currency amount.Currency, issuer amount.AccountID) bool {
	if currency.IsNative() {
		return false
	}
	if IsGlobalFrozen(v, issuer) {
		return true
	}
	if issuer == account {
		return false
	}
	line, ok := ReadLine(v, account, issuer, currency)
	return ok && line.FrozenBy(issuer)
}

// AccountHolds returns what account can spend of an issue: native balance
// above the reserve, or the positive side of the line. Frozen holdings are
// zero.
func AccountHolds(v ReadView, account amount.AccountID, issue amount.Issue) amount.Amount {
	if issue.IsNative() {
		acct, ok := ReadAccount(v, account)
		if !ok {
			return amount.Zero(amount.NativeIssue)
		}
		reserve := amount.NewNative(v.Fees().Reserve(acct.OwnerCount))
		if acct.Balance.Less(reserve) {
			return amount.Zero(amount.NativeIssue)
		}
		return acct.Balance.Sub(reserve)
	}
	if IsFrozen(v, account, issue.Currency, issue.Account) {
		return amount.Zero(issue)
	}
	line, ok := ReadLine(v, account, issue.Account, issue.Currency)
	if !ok {
		return amount.Zero(issue)
	}
	held := line.BalanceFor(account)
	if !held.IsPositive() {
		return amount.Zero(issue)
	}
	return held.WithIssue(issue)
}

// AccountFunds returns the funds backing an offer paying def. An issuer
// paying its own IOU is limited only by the requested amount.
func AccountFunds(v ReadView, account amount.AccountID, def amount.Amount) amount.Amount {
	if !def.IsNative() && def.Issuer() == account {
		return def
	}
	return AccountHolds(v, account, def.Issue())
}

// DivvyTransferFee returns the fee issuer charges when a moves its IOUs to
// b, zero when either party is the issuer.
func DivvyTransferFee(v ReadView, from, to, issuer amount.AccountID, a amount.Amount) amount.Amount {
	if from == issuer || to == issuer || issuer == amount.NoAccount {
		return a.Zeroed()
	}
	rate := v.TransferRate(issuer)
	if rate.IsParity() {
		return a.Zeroed()
	}
	return rate.Multiply(a).Sub(a)
}

// DivvyCredit moves a from sender to receiver along their trust line,
// creating a zero limit line for the receiver when none exists.
func (s *Sandbox) DivvyCredit(sender, receiver amount.AccountID, a amount.Amount) ter.Result {
	if sender == receiver || a.IsNative() {
		return ter.TefINTERNAL
	}
	currency := a.Currency()
	line, ok := s.Line(sender, receiver, currency)
	if !ok {
		recv, ok := s.Account(receiver)
		if !ok {
			return ter.TerNO_ACCOUNT
		}
		line = NewTrustLine(sender, receiver, currency)
		if !recv.Has(DefaultDivvy) {
			if line.IsLow(receiver) {
				line.Flags |= LowNoDivvy
			} else {
				line.Flags |= HighNoDivvy
			}
		}
		recv.OwnerCount++
		s.Update(recv)
	}
	line.SetBalanceFor(sender, line.BalanceFor(sender).Sub(a))
	s.Update(line)
	s.record(sender, receiver, a)
	return ter.TesSUCCESS
}

// divvySend moves IOUs, routing third party transfers through the issuer
// and charging the sender the issuer's transfer fee. It returns the amount
// actually debited from the sender.
func (s *Sandbox) divvySend(sender, receiver amount.AccountID, a amount.Amount) (amount.Amount, ter.Result) {
	issuer := a.Issuer()
	if sender == issuer || receiver == issuer || issuer == amount.NoAccount {
		return a, s.DivvyCredit(sender, receiver, a)
	}
	actual := a.Add(DivvyTransferFee(s, sender, receiver, issuer, a))
	if r := s.DivvyCredit(issuer, receiver, a); r != ter.TesSUCCESS {
		return actual, r
	}
	return actual, s.DivvyCredit(sender, issuer, actual)
}

// AccountSend moves a from one account to another. Native sends involving
// the zero account are one-sided limbo adjustments.
func (s *Sandbox) AccountSend(from, to amount.AccountID, a amount.Amount) ter.Result {
	if a.IsZero() || from == to {
		return ter.TesSUCCESS
	}
	if !a.IsNative() {
		_, r := s.divvySend(from, to, a)
		return r
	}
	return s.TransferXDV(from, to, a)
}

// TransferXDV moves native currency. The zero account stands for limbo.
func (s *Sandbox) TransferXDV(from, to amount.AccountID, a amount.Amount) ter.Result {
	if !a.IsNative() {
		return ter.TefINTERNAL
	}
	var sender, receiver *AccountRoot
	if !from.IsZero() {
		acct, ok := s.Account(from)
		if !ok {
			return ter.TerNO_ACCOUNT
		}
		if acct.Balance.Less(a) {
			if s.Open() {
				return ter.TelFAILED_PROCESSING
			}
			return ter.TecFAILED_PROCESSING
		}
		sender = acct
	}
	if !to.IsZero() {
		acct, ok := s.Account(to)
		if !ok {
			return ter.TerNO_ACCOUNT
		}
		receiver = acct
	}
	if sender != nil {
		sender.Balance = sender.Balance.Sub(a)
		s.Update(sender)
	}
	if receiver != nil {
		receiver.Balance = receiver.Balance.Add(a)
		s.Update(receiver)
	}
	s.record(from, to, a)
	return ter.TesSUCCESS
}

// RedeemIOU returns a of issuer's IOUs from account to issuer.
func (s *Sandbox) RedeemIOU(account amount.AccountID, a amount.Amount, issuer amount.AccountID) ter.Result {
	if a.IsNative() {
		return ter.TefINTERNAL
	}
	if _, ok := s.Line(account, issuer, a.Currency()); !ok {
		return ter.TefINTERNAL
	}
	return s.DivvyCredit(account, issuer, a)
}

// IssueIOU creates a of issuer's IOUs held by account.
func (s *Sandbox) IssueIOU(account amount.AccountID, a amount.Amount, issuer amount.AccountID) ter.Result {
	if a.IsNative() {
		return ter.TefINTERNAL
	}
	return s.DivvyCredit(issuer, account, a)
}

// UpdateOffer stores new remaining amounts for an offer.
func (s *Sandbox) UpdateOffer(o *Offer) {
	s.Update(o)
}

// OfferDelete removes an offer and releases its owner's reserve.
func (s *Sandbox) OfferDelete(key keylet.Key) ter.Result {
	o, ok := s.Offer(key)
	if !ok {
		return ter.TefINTERNAL
	}
	s.Erase(o.Keylet())
	if owner, ok := s.Account(o.Owner); ok && owner.OwnerCount > 0 {
		owner.OwnerCount--
		s.Update(owner)
	}
	return ter.TesSUCCESS
}
