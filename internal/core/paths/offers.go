package paths

import (
	"slices"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/book"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// advance positions book node i on its next usable offer. In the reverse
// pass running out of offers leaves the node without one; in the forward
// pass it is an error since the reverse pass already found enough.
func (c *cursor) advance(i int, reverse bool) ter.Result {
	ps := c.ps
	v := c.view()
	node := &ps.Nodes[i]
	bk := node.book

	for loops := 1; ; loops++ {
		if loops > c.calc.limits.AdvanceLoops {
			c.logger.Warnf("node %d: too many offers skipped", i)
			return ter.TefEXCEPTION
		}

		bk.dir.Initialize()
		switch bk.dir.Advance(v) {
		case book.NewQuality:
			bk.ofrRate = bk.dir.Current().Rate()
			bk.entryAdvance = true
			bk.tierLive = false
		case book.EndAdvance:
			if !reverse {
				c.logger.Warnf("node %d: book ran dry in forward pass", i)
				return ter.TelFAILED_PROCESSING
			}
			bk.hasOffer = false
			bk.entryAdvance = false
			ps.allConsumed = true
			return ter.TesSUCCESS
		}

		if !bk.entryAdvance {
			if bk.fundsDirty {
				bk.takerPays = bk.entry.TakerPays
				bk.takerGets = bk.entry.TakerGets
				bk.funds = state.AccountFunds(v, bk.owner, bk.takerGets)
				bk.fundsDirty = false
			}
			return ter.TesSUCCESS
		}

		key, ok := bk.dir.Next(v)
		if !ok {
			switch {
			case ps.multiQuality || !bk.tierLive:
				bk.dir.AdvanceNeeded = true
			case reverse:
				bk.hasOffer = false
				bk.entryAdvance = false
				return ter.TesSUCCESS
			default:
				c.logger.Warnf("node %d: tier ran dry in forward pass", i)
				return ter.TelFAILED_PROCESSING
			}
			continue
		}

		entry, ok := v.Offer(key)
		if !ok {
			c.logger.Warnf("node %d: missing offer %x", i, key[:8])
			continue
		}
		bk.key = key
		bk.entry = entry
		bk.owner = entry.Owner
		bk.takerPays = entry.TakerPays
		bk.takerGets = entry.TakerGets

		if entry.Expiration != 0 && entry.Expiration <= v.CloseTime() {
			c.logger.Debugf("node %d: expired offer %x", i, key[:8])
			c.calc.markUnfunded(key)
			continue
		}

		if !bk.takerPays.IsPositive() || !bk.takerGets.IsPositive() {
			switch {
			case c.consumed[key]:
			case reverse:
				c.calc.markUnfunded(key)
			case c.calc.isUnfunded(key) || ps.isUnfunded(key):
			default:
				c.logger.Warnf("node %d: offer %x has an empty side", i, key[:8])
				return ter.TefEXCEPTION
			}
			continue
		}

		// An owner's funds are used by one book node per path unless the
		// owner issues what the book delivers.
		src := source{account: bk.owner, issue: node.Issue}
		selfIssued := bk.owner == node.Issue.Account
		if idx, ok := ps.forward[src]; ok && idx != i && !selfIssued {
			continue
		}
		idx, seenReverse := ps.reverse[src]
		if seenReverse && idx != i && !selfIssued {
			continue
		}
		_, seenPast := c.calc.sources[src]

		bk.funds = state.AccountFunds(v, bk.owner, bk.takerGets)
		if !bk.funds.IsPositive() {
			if reverse && !seenReverse && !seenPast {
				c.logger.Debugf("node %d: unfunded offer %x", i, key[:8])
				c.calc.markUnfunded(key)
			}
			continue
		}
		if reverse && !seenReverse && !seenPast {
			ps.reverse[src] = i
		}

		bk.fundsDirty = false
		bk.entryAdvance = false
		bk.tierLive = true
		bk.hasOffer = true
		return ter.TesSUCCESS
	}
}

// deliverReverse takes up to outReq out of book node i for outAccount.
// What the offers want in exchange is added to the previous node's
// RevDeliver, recursing when that node is a book too.
func (c *cursor) deliverReverse(i int, outAccount amount.AccountID, outReq amount.Amount) (amount.Amount, ter.Result) {
	ps := c.ps
	v := c.view()
	node := &ps.Nodes[i]
	prev := &ps.Nodes[i-1]
	bk := node.book

	bk.dir.Restart(ps.multiQuality)
	bk.rateMax = 0
	outAct := outReq.Zeroed()
	issuer := node.Issue.Account
	rate := v.TransferRate(issuer)

	for loops := 1; outAct.Less(outReq); loops++ {
		if loops > c.deliverLimit() {
			c.logger.Warnf("node %d: reverse delivery loop limit", i)
			return outAct, ter.TelFAILED_PROCESSING
		}
		if r := c.advance(i, true); r != ter.TesSUCCESS {
			return outAct, r
		}
		if !bk.hasOffer {
			break
		}

		feeRate := rate
		if bk.owner == issuer || outAccount == issuer {
			feeRate = quality.Parity
		}
		// Offers are taken at one fee level per pass.
		switch {
		case bk.rateMax == 0:
			bk.rateMax = feeRate
		case feeRate > bk.rateMax:
			bk.entryAdvance = true
			continue
		case feeRate < bk.rateMax:
			bk.rateMax = feeRate
		}

		outPassReq := amount.Min(amount.Min(bk.funds, bk.takerGets), outReq.Sub(outAct))
		outPassAct := outPassReq
		if outPlusFees := feeRate.MulRound(outPassAct, false); outPlusFees.Greater(bk.funds) {
			outPassAct = amount.Min(outPassReq, feeRate.DivRound(bk.funds, true))
		}

		inPassReq := amount.Min(bk.takerPays, amount.MulRound(outPassAct, bk.ofrRate, bk.takerPays.Issue(), true))
		if !inPassReq.IsPositive() {
			bk.entryAdvance = true
			continue
		}

		inPassAct := inPassReq
		if !prev.IsAccount() {
			var r ter.Result
			inPassAct, r = c.deliverReverse(i-1, bk.owner, inPassReq)
			if r != ter.TesSUCCESS && r != ter.TecPATH_DRY {
				return outAct, r
			}
		}
		if inPassAct.Less(inPassReq) {
			outPassAct = amount.Min(outPassReq, amount.DivRound(inPassAct, bk.ofrRate, bk.takerGets.Issue(), true))
		}

		bk.fundsDirty = true
		// Take the output from the owner so later offers see its funds
		// shrink.
		if r := v.AccountSend(bk.owner, issuer, outPassAct); r != ter.TesSUCCESS {
			return outAct, r
		}

		gets := bk.takerGets.Sub(outPassAct)
		pays := bk.takerPays.Sub(inPassAct)
		if gets.IsNegative() || pays.IsNegative() {
			c.logger.Warnf("node %d: offer %x overdrawn", i, bk.key[:8])
			return outAct, ter.TelFAILED_PROCESSING
		}
		bk.entry.TakerGets = gets
		bk.entry.TakerPays = pays
		v.UpdateOffer(bk.entry)

		if outPassAct.Equal(bk.takerGets) {
			bk.entryAdvance = true
			c.consumed[bk.key] = true
		}
		outAct = outAct.Add(outPassAct)
		prev.RevDeliver = prev.RevDeliver.Add(inPassAct)
		if !inPassAct.IsPositive() {
			break
		}
	}

	if outAct.IsZero() {
		return outAct, ter.TecPATH_DRY
	}
	return outAct, ter.TesSUCCESS
}

// deliverForward pushes inReq from holder into book node i. payer is the
// account whose transfer the issuer may charge for. It returns what the
// offers took and the fees on top.
func (c *cursor) deliverForward(i int, holder, payer amount.AccountID, inReq amount.Amount) (inAct, inFees amount.Amount, r ter.Result) {
	ps := c.ps
	v := c.view()
	node := &ps.Nodes[i]
	prev := &ps.Nodes[i-1]
	bk := node.book

	bk.dir.Restart(ps.multiQuality)
	inAct = inReq.Zeroed()
	inFees = inReq.Zeroed()
	inIssue := prev.Issue
	baseRate := v.TransferRate(inIssue.Account)

	for loops := 1; inAct.Add(inFees).Less(inReq); loops++ {
		if loops > c.deliverLimit() {
			c.logger.Warnf("node %d: forward delivery loop limit", i)
			return inAct, inFees, ter.TelFAILED_PROCESSING
		}
		if r := c.advance(i, false); r != ter.TesSUCCESS {
			return inAct, inFees, r
		}
		if !bk.hasOffer {
			c.logger.Warnf("node %d: no offer in forward pass", i)
			return inAct, inFees, ter.TelFAILED_PROCESSING
		}

		feeRate := baseRate
		if inIssue.IsNative() || payer == inIssue.Account || bk.owner == inIssue.Account {
			feeRate = quality.Parity
		}

		outFunded := amount.Min(bk.funds, bk.takerGets)
		inFunded := amount.MulRound(outFunded, bk.ofrRate, bk.takerPays.Issue(), true)
		inTotal := feeRate.MulRound(inFunded, true)
		inRemaining := inReq.Sub(inAct).Sub(inFees)
		if inRemaining.IsNegative() {
			inRemaining = inRemaining.Zeroed()
		}
		inSum := amount.Min(inTotal, inRemaining)
		inPassAct := amount.Min(bk.takerPays, feeRate.DivRound(inSum, true))
		outPassMax := amount.Min(outFunded, amount.DivRound(inPassAct, bk.ofrRate, bk.takerGets.Issue(), true))
		inPassFeesMax := inSum.Sub(inPassAct)
		if inPassFeesMax.IsNegative() {
			inPassFeesMax = inPassFeesMax.Zeroed()
		}

		var outPassAct, inPassFees amount.Amount
		if !ps.nextIsAccount(i) {
			outIssuer := node.Issue.Account
			var outFees amount.Amount
			outPassAct, outFees, r = c.deliverForward(i+1, outIssuer, bk.owner, outPassMax)
			if r != ter.TesSUCCESS {
				return inAct, inFees, r
			}
			if outPassAct.Equal(outPassMax) {
				inPassFees = inPassFeesMax
			} else {
				inPassAct = amount.Min(bk.takerPays, amount.MulRound(outPassAct, bk.ofrRate, inReq.Issue(), true))
				inPassFees = amount.Min(inPassFeesMax, feeRate.MulRound(inPassAct, true))
			}
			if r := v.AccountSend(bk.owner, outIssuer, outPassAct.Add(outFees)); r != ter.TesSUCCESS {
				return inAct, inFees, r
			}
		} else {
			outPassAct = outPassMax
			inPassFees = inPassFeesMax
			if r := v.AccountSend(bk.owner, ps.Nodes[i+1].Account, outPassAct); r != ter.TesSUCCESS {
				return inAct, inFees, r
			}
		}

		// Pay the owner. Native comes out of limbo.
		if inIssue.IsNative() || holder != bk.owner {
			from := holder
			if inIssue.IsNative() {
				from = amount.XDVAccount
			}
			if r := v.AccountSend(from, bk.owner, inPassAct); r != ter.TesSUCCESS {
				return inAct, inFees, r
			}
		}

		gets := bk.takerGets.Sub(outPassAct)
		pays := bk.takerPays.Sub(inPassAct)
		if gets.IsNegative() || pays.IsNegative() {
			c.logger.Warnf("node %d: offer %x overdrawn", i, bk.key[:8])
			return inAct, inFees, ter.TelFAILED_PROCESSING
		}
		bk.entry.TakerGets = gets
		bk.entry.TakerPays = pays
		v.UpdateOffer(bk.entry)
		bk.fundsDirty = true

		if outPassAct.Equal(outFunded) || gets.IsZero() {
			ps.unfunded = append(ps.unfunded, bk.key)
			c.consumed[bk.key] = true
			bk.entryAdvance = true
		}

		inAct = inAct.Add(inPassAct)
		inFees = inFees.Add(inPassFees)
		node.FwdDeliver = amount.Min(node.RevDeliver, node.FwdDeliver.Add(outPassAct))
	}
	return inAct, inFees, ter.TesSUCCESS
}

func (ps *PathState) isUnfunded(key keylet.Key) bool {
	return slices.Contains(ps.unfunded, key)
}
