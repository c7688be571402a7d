package paths

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// reverseAccount works out what the node before account node i must
// redeem, issue or deliver so i can meet its own request.
//
// Node 0 is never visited: the source has nothing before it.
func (c *cursor) reverseAccount(i int) ter.Result {
	ps := c.ps
	v := c.view()
	node := &ps.Nodes[i]
	prev := &ps.Nodes[i-1]
	currency := node.Issue.Currency
	qIn, qOut := c.qualities(i)
	var rateMax uint64

	prvOwed := amount.Zero(amount.NewIssue(currency, node.Account))
	prvLimit := prvOwed
	if prev.IsAccount() {
		prvOwed = state.CreditBalance(v, node.Account, prev.Account, currency)
		prvLimit = state.CreditLimit(v, node.Account, prev.Account, currency)
	}
	// The previous account redeems what it holds of ours and issues up to
	// our limit on it.
	prvRedeemReq := prvOwed.Zeroed()
	if prvOwed.IsPositive() {
		prvRedeemReq = prvOwed
	}
	prvIssueReq := prvLimit
	if prvOwed.IsNegative() {
		prvIssueReq = prvLimit.Add(prvOwed)
	}

	switch {
	case prev.IsAccount() && i == ps.last():
		wanted := amount.Min(ps.outReq.Sub(ps.outAct), prvLimit.Add(prvOwed))
		if !wanted.IsPositive() {
			return ter.TecPATH_DRY
		}
		wantedAct := wanted.Zeroed()
		prev.RevRedeem = prvRedeemReq.Zeroed()
		if prvRedeemReq.IsPositive() {
			wantedAct = amount.Min(prvRedeemReq, wanted)
			prev.RevRedeem = wantedAct
			rateMax = quality.RateOne
		}
		prev.RevIssue = prvIssueReq.Zeroed()
		if !wanted.Equal(wantedAct) && prvIssueReq.IsPositive() {
			divvyLiquidity(qIn, quality.One, prvIssueReq, wanted, &prev.RevIssue, &wantedAct, &rateMax)
		}
		if wantedAct.IsZero() {
			return ter.TecPATH_DRY
		}

	case prev.IsAccount() && ps.nextIsAccount(i):
		prev.RevRedeem = prvRedeemReq.Zeroed()
		prev.RevIssue = prvIssueReq.Zeroed()
		curRedeemAct := node.RevRedeem.Zeroed()
		curIssueAct := node.RevIssue.Zeroed()

		// Previous redeems, we redeem.
		if node.RevRedeem.IsPositive() && prvRedeemReq.IsPositive() {
			divvyLiquidity(quality.One, qOut, prvRedeemReq, node.RevRedeem, &prev.RevRedeem, &curRedeemAct, &rateMax)
		}
		// Previous issues, we redeem.
		if !node.RevRedeem.Equal(curRedeemAct) && prev.RevRedeem.Equal(prvRedeemReq) {
			divvyLiquidity(qIn, qOut, prvIssueReq, node.RevRedeem, &prev.RevIssue, &curRedeemAct, &rateMax)
		}
		// Previous redeems, we issue.
		if node.RevIssue.IsPositive() && curRedeemAct.Equal(node.RevRedeem) && !prev.RevRedeem.Equal(prvRedeemReq) {
			divvyLiquidity(quality.One, c.transferRate(i), prvRedeemReq, node.RevIssue, &prev.RevRedeem, &curIssueAct, &rateMax)
		}
		// Previous issues, we issue.
		if !node.RevIssue.Equal(curIssueAct) && curRedeemAct.Equal(node.RevRedeem) &&
			prev.RevRedeem.Equal(prvRedeemReq) && prvIssueReq.IsPositive() {
			divvyLiquidity(qIn, quality.One, prvIssueReq, node.RevIssue, &prev.RevIssue, &curIssueAct, &rateMax)
		}
		if curRedeemAct.IsZero() && curIssueAct.IsZero() {
			return ter.TecPATH_DRY
		}

	case prev.IsAccount():
		prev.RevRedeem = prvRedeemReq.Zeroed()
		prev.RevIssue = prvIssueReq.Zeroed()
		curDeliverAct := node.RevDeliver.Zeroed()

		if prvOwed.IsPositive() && node.RevDeliver.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), prvRedeemReq, node.RevDeliver, &prev.RevRedeem, &curDeliverAct, &rateMax)
		}
		if prvRedeemReq.Equal(prev.RevRedeem) && !node.RevDeliver.Equal(curDeliverAct) {
			divvyLiquidity(qIn, quality.One, prvIssueReq, node.RevDeliver, &prev.RevIssue, &curDeliverAct, &rateMax)
		}
		if curDeliverAct.IsZero() {
			return ter.TecPATH_DRY
		}

	case i == ps.last():
		wanted := ps.outReq.Sub(ps.outAct)
		wantedAct := wanted.Zeroed()
		prev.RevDeliver = prev.RevDeliver.Zeroed()
		divvyLiquidity(quality.One, quality.One, unlimited(prev.Issue), wanted, &prev.RevDeliver, &wantedAct, &rateMax)
		if wantedAct.IsZero() {
			return ter.TecPATH_DRY
		}

	case ps.nextIsAccount(i):
		prev.RevDeliver = prev.RevDeliver.Zeroed()
		curRedeemAct := node.RevRedeem.Zeroed()
		curIssueAct := node.RevIssue.Zeroed()

		if node.RevRedeem.IsPositive() {
			divvyLiquidity(quality.One, qOut, unlimited(prev.Issue), node.RevRedeem, &prev.RevDeliver, &curRedeemAct, &rateMax)
		}
		if curRedeemAct.Equal(node.RevRedeem) && node.RevIssue.IsPositive() {
			divvyLiquidity(quality.One, c.transferRate(i), unlimited(prev.Issue), node.RevIssue, &prev.RevDeliver, &curIssueAct, &rateMax)
		}
		if curRedeemAct.IsZero() && curIssueAct.IsZero() {
			return ter.TecPATH_DRY
		}

	default:
		prev.RevDeliver = prev.RevDeliver.Zeroed()
		curDeliverAct := node.RevDeliver.Zeroed()
		divvyLiquidity(quality.One, c.transferRate(i), unlimited(prev.Issue), node.RevDeliver, &prev.RevDeliver, &curDeliverAct, &rateMax)
		if curDeliverAct.IsZero() {
			return ter.TecPATH_DRY
		}
	}
	return ter.TesSUCCESS
}

// reverseBook pulls node i's delivery out of its book. A book feeding
// another book is pulled by that book instead.
func (c *cursor) reverseBook(i int) ter.Result {
	ps := c.ps
	if !ps.nextIsAccount(i) {
		return ter.TesSUCCESS
	}
	node := &ps.Nodes[i]
	_, r := c.deliverReverse(i, ps.Nodes[i+1].Account, node.RevDeliver)
	return r
}
