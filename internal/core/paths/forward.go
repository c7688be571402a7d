package paths

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// forwardAccount moves what the previous node actually supplied through
// account node i, bounded by what the reverse pass asked of it.
func (c *cursor) forwardAccount(i int) ter.Result {
	ps := c.ps
	v := c.view()
	node := &ps.Nodes[i]
	qIn, qOut := c.qualities(i)
	limited := !ps.inReq.IsNegative()
	var rateMax uint64

	var prev *Node
	if i > 0 {
		prev = &ps.Nodes[i-1]
	}

	switch {
	case i == 0 && ps.nextIsAccount(i):
		// The source redeems first, then issues what is left.
		node.FwdRedeem = node.RevRedeem
		if limited {
			node.FwdRedeem = amount.Min(node.FwdRedeem, ps.inReq.Sub(ps.inAct))
		}
		ps.inPass = node.FwdRedeem
		node.FwdIssue = node.RevIssue.Zeroed()
		if node.FwdRedeem.Equal(node.RevRedeem) {
			node.FwdIssue = node.RevIssue
		}
		if node.FwdIssue.IsPositive() && limited {
			node.FwdIssue = amount.Min(node.FwdIssue, ps.inReq.Sub(ps.inAct).Sub(node.FwdRedeem))
		}
		ps.inPass = ps.inPass.Add(node.FwdIssue)

	case i == 0:
		node.FwdDeliver = node.RevDeliver
		if limited {
			node.FwdDeliver = amount.Min(node.FwdDeliver, ps.inReq.Sub(ps.inAct))
		}
		if node.Issue.IsNative() {
			node.FwdDeliver = amount.Min(node.FwdDeliver, state.AccountHolds(v, node.Account, amount.NativeIssue))
		}
		ps.inPass = node.FwdDeliver
		if !node.FwdDeliver.IsPositive() {
			return ter.TecPATH_DRY
		}
		// Native leaves for limbo here; the book credits the offer owner.
		if node.Issue.IsNative() {
			return v.AccountSend(node.Account, amount.XDVAccount, node.FwdDeliver)
		}

	case prev.IsAccount() && i == ps.last():
		issueCrd := prev.FwdIssue
		if qIn < quality.One {
			issueCrd = amount.MulRound(prev.FwdIssue, quality.TransferRate(qIn).Amount(), prev.FwdIssue.Issue(), true)
		}
		ps.outPass = prev.FwdRedeem.Add(issueCrd)
		if !ps.outPass.IsPositive() {
			return ter.TecPATH_DRY
		}
		return credit(v, prev.Account, node.Account, prev.FwdRedeem.Add(prev.FwdIssue))

	case prev.IsAccount() && ps.nextIsAccount(i):
		node.FwdRedeem = node.RevRedeem.Zeroed()
		node.FwdIssue = node.RevIssue.Zeroed()
		prvRedeemAct := prev.FwdRedeem.Zeroed()
		prvIssueAct := prev.FwdIssue.Zeroed()

		if prev.FwdRedeem.IsPositive() && node.RevRedeem.IsPositive() {
			divvyLiquidity(quality.One, qOut, prev.FwdRedeem, node.RevRedeem, &prvRedeemAct, &node.FwdRedeem, &rateMax)
		}
		if !prev.FwdIssue.Equal(prvIssueAct) && !node.RevRedeem.Equal(node.FwdRedeem) {
			divvyLiquidity(qIn, qOut, prev.FwdIssue, node.RevRedeem, &prvIssueAct, &node.FwdRedeem, &rateMax)
		}
		if !prev.FwdRedeem.Equal(prvRedeemAct) && node.RevRedeem.Equal(node.FwdRedeem) && node.RevIssue.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), prev.FwdRedeem, node.RevIssue, &prvRedeemAct, &node.FwdIssue, &rateMax)
		}
		if !prev.FwdIssue.Equal(prvIssueAct) && node.RevRedeem.Equal(node.FwdRedeem) && node.RevIssue.IsPositive() {
			divvyLiquidity(qIn, quality.One, prev.FwdIssue, node.RevIssue, &prvIssueAct, &node.FwdIssue, &rateMax)
		}
		if node.FwdRedeem.IsZero() && node.FwdIssue.IsZero() {
			return ter.TecPATH_DRY
		}
		return credit(v, prev.Account, node.Account, prev.FwdRedeem.Add(prev.FwdIssue))

	case prev.IsAccount():
		node.FwdDeliver = node.RevDeliver.Zeroed()
		prvRedeemAct := prev.FwdRedeem.Zeroed()
		prvIssueAct := prev.FwdIssue.Zeroed()

		if prev.FwdRedeem.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), prev.FwdRedeem, node.RevDeliver, &prvRedeemAct, &node.FwdDeliver, &rateMax)
		}
		if prev.FwdRedeem.Equal(prvRedeemAct) && prev.FwdIssue.IsPositive() {
			divvyLiquidity(qIn, quality.One, prev.FwdIssue, node.RevDeliver, &prvIssueAct, &node.FwdDeliver, &rateMax)
		}
		if node.FwdDeliver.IsZero() {
			return ter.TecPATH_DRY
		}
		return credit(v, prev.Account, node.Account, prev.FwdRedeem.Add(prev.FwdIssue))

	case i == ps.last():
		// The book already paid the destination.
		ps.outPass = prev.FwdDeliver

	case ps.nextIsAccount(i):
		node.FwdRedeem = node.RevRedeem.Zeroed()
		node.FwdIssue = node.RevIssue.Zeroed()
		prvDeliverAct := prev.FwdDeliver.Zeroed()

		if prev.FwdDeliver.IsPositive() && node.RevRedeem.IsPositive() {
			divvyLiquidity(quality.One, qOut, prev.FwdDeliver, node.RevRedeem, &prvDeliverAct, &node.FwdRedeem, &rateMax)
		}
		if !prev.FwdDeliver.Equal(prvDeliverAct) && node.RevRedeem.Equal(node.FwdRedeem) && node.RevIssue.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), prev.FwdDeliver, node.RevIssue, &prvDeliverAct, &node.FwdIssue, &rateMax)
		}
		if node.FwdRedeem.IsZero() && node.FwdIssue.IsZero() {
			return ter.TecPATH_DRY
		}

	default:
		node.FwdDeliver = node.RevDeliver.Zeroed()
		prvDeliverAct := prev.FwdDeliver.Zeroed()
		if prev.FwdDeliver.IsPositive() && node.RevDeliver.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), prev.FwdDeliver, node.RevDeliver, &prvDeliverAct, &node.FwdDeliver, &rateMax)
		}
		if node.FwdDeliver.IsZero() {
			return ter.TecPATH_DRY
		}
	}
	return ter.TesSUCCESS
}

// forwardBook pushes the previous account's delivery into node i's book.
// A book fed by another book was already run by it.
func (c *cursor) forwardBook(i int) ter.Result {
	prev := &c.ps.Nodes[i-1]
	if !prev.IsAccount() {
		return ter.TesSUCCESS
	}
	_, _, r := c.deliverForward(i, prev.Account, prev.Account, prev.FwdDeliver)
	return r
}

// credit moves a along the line from one account to the next.
func credit(v *state.Sandbox, from, to amount.AccountID, a amount.Amount) ter.Result {
	if a.IsZero() {
		return ter.TesSUCCESS
	}
	if a.IsNative() {
		return v.TransferXDV(from, to, a)
	}
	return v.DivvyCredit(from, to, a)
}
