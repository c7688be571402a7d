package paths

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// expand turns a compact path into the full node list from sender to
// receiver, inserting the issuer accounts and books the path implies.
// The outcome is left in ps.status.
func (ps *PathState) expand(v state.ReadView, path Path, receiver, sender amount.AccountID) {
	ps.status = ps.doExpand(v, path, receiver, sender)
	if ps.status == ter.TesSUCCESS {
		ps.quality.Value = 1
	}
}

func (ps *PathState) doExpand(v state.ReadView, path Path, receiver, sender amount.AccountID) ter.Result {
	maxIssue := ps.inReq.Issue()
	outIssue := ps.outReq.Issue()

	if !maxIssue.IsConsistent() || !outIssue.IsConsistent() {
		return ter.TemBAD_PATH
	}

	senderIssuer := sender
	flags := TypeAll
	if maxIssue.IsNative() {
		senderIssuer = amount.XDVAccount
		flags = TypeAccount | TypeCurrency
	}
	if r := ps.pushNode(v, flags, sender, maxIssue.Currency, senderIssuer); r != ter.TesSUCCESS {
		return r
	}

	// A foreign send max issuer needs its own hop unless the path starts
	// there anyway.
	if maxIssue.Account != senderIssuer {
		nextCurrency := outIssue.Currency
		nextAccount := amount.XDVAccount
		if len(path) > 0 {
			nextCurrency = path[0].Currency
			nextAccount = path[0].Account
		} else if !outIssue.IsNative() {
			nextAccount = outIssue.Account
		}
		if nextCurrency.IsNative() || nextCurrency != maxIssue.Currency || nextAccount != maxIssue.Account {
			if r := ps.pushNode(v, TypeAll, maxIssue.Account, maxIssue.Currency, maxIssue.Account); r != ter.TesSUCCESS {
				return r
			}
		}
	}

	for _, e := range path {
		if r := ps.pushNode(v, e.Type, e.Account, e.Currency, e.Issuer); r != ter.TesSUCCESS {
			return r
		}
	}

	back := &ps.Nodes[ps.last()]
	if !outIssue.IsNative() && outIssue.Account != receiver &&
		(back.Issue.Currency != outIssue.Currency || back.Account != outIssue.Account) {
		if r := ps.pushNode(v, TypeAll, outIssue.Account, outIssue.Currency, outIssue.Account); r != ter.TesSUCCESS {
			return r
		}
	}

	flags = TypeAll
	if outIssue.IsNative() {
		flags = TypeAccount | TypeCurrency
	}
	if r := ps.pushNode(v, flags, receiver, outIssue.Currency, receiver); r != ter.TesSUCCESS {
		return r
	}

	// Each (account, issue) may appear once.
	clear(ps.forward)
	for i := range ps.Nodes {
		n := &ps.Nodes[i]
		key := source{account: n.Account, issue: n.Issue}
		if _, ok := ps.forward[key]; ok {
			return ter.TemBAD_PATH_LOOP
		}
		ps.forward[key] = i
	}
	return ter.TesSUCCESS
}

// pushNode appends one node, preceded by whatever implied nodes are needed
// to reach it from the current tail.
func (ps *PathState) pushNode(v state.ReadView, flags uint8, account amount.AccountID,
	currency amount.Currency, issuer amount.AccountID) ter.Result {
	if len(ps.Nodes) >= MaxPathNodes {
		return ter.TemBAD_PATH
	}
	first := len(ps.Nodes) == 0

	var back Node
	if !first {
		back = ps.Nodes[ps.last()]
	}

	hasAccount := flags&TypeAccount != 0
	hasCurrency := flags&TypeCurrency != 0
	hasIssuer := flags&TypeIssuer != 0

	if !hasCurrency {
		currency = back.Issue.Currency
	}

	switch {
	case flags&^TypeAll != 0:
		return ter.TemBAD_PATH
	case hasIssuer && currency.IsNative():
		return ter.TemBAD_PATH
	case !hasAccount && !hasCurrency && !hasIssuer:
		return ter.TemBAD_PATH
	case hasAccount:
		return ps.pushAccount(v, flags, account, currency, issuer, hasIssuer, first)
	default:
		return ps.pushBook(v, flags, back, currency, issuer, hasIssuer)
	}
}

func (ps *PathState) pushAccount(v state.ReadView, flags uint8, account amount.AccountID,
	currency amount.Currency, issuer amount.AccountID, hasIssuer, first bool) ter.Result {
	nodeIssuer := account
	switch {
	case hasIssuer:
		nodeIssuer = issuer
	case currency.IsNative():
		nodeIssuer = amount.XDVAccount
	}
	node := newAccountNode(flags, account, amount.NewIssue(currency, nodeIssuer))

	if !first {
		if account.IsZero() {
			return ter.TemBAD_PATH
		}
		implied := account
		if currency.IsNative() {
			implied = amount.XDVAccount
		}
		if r := ps.pushImplied(v, account, currency, implied); r != ter.TesSUCCESS {
			return r
		}
	}

	if len(ps.Nodes) > 0 {
		if back := &ps.Nodes[ps.last()]; back.IsAccount() {
			if r := checkLink(v, back, &node); r != ter.TesSUCCESS {
				return r
			}
		}
	}
	ps.Nodes = append(ps.Nodes, node)
	return ter.TesSUCCESS
}

// checkLink verifies the trust line between two consecutive accounts can
// carry anything.
func checkLink(v state.ReadView, back, node *Node) ter.Result {
	currency := back.Issue.Currency
	if currency.IsNative() {
		return ter.TesSUCCESS
	}
	line, ok := state.ReadLine(v, back.Account, node.Account, currency)
	if !ok {
		return ter.TerNO_LINE
	}
	acct, ok := state.ReadAccount(v, back.Account)
	if !ok {
		return ter.TerNO_ACCOUNT
	}
	if acct.Has(state.RequireAuth) && !line.Authorized(back.Account) && line.BalanceFor(back.Account).IsZero() {
		return ter.TerNO_AUTH
	}

	owed := state.CreditBalance(v, node.Account, back.Account, node.Issue.Currency)
	if !owed.IsPositive() {
		limit := state.CreditLimit(v, node.Account, back.Account, node.Issue.Currency)
		if !owed.Negate().Less(limit) {
			return ter.TecPATH_DRY
		}
	}
	return ter.TesSUCCESS
}

func (ps *PathState) pushBook(v state.ReadView, flags uint8, back Node,
	currency amount.Currency, issuer amount.AccountID, hasIssuer bool) ter.Result {
	var out amount.Issue
	switch {
	case hasIssuer:
		out = amount.Issue{Currency: currency, Account: issuer}
	case currency.IsNative():
		out = amount.NativeIssue
	case back.Issue.Account.IsZero():
		out = amount.Issue{Currency: currency, Account: back.Account}
	default:
		out = amount.Issue{Currency: currency, Account: back.Issue.Account}
	}
	if !out.IsConsistent() || back.Issue == out {
		return ter.TemBAD_PATH
	}

	// The book takes whatever the tail holds, routed through its issuer.
	if r := ps.pushImplied(v, amount.XDVAccount, back.Issue.Currency, back.Issue.Account); r != ter.TesSUCCESS {
		return r
	}
	in := ps.Nodes[ps.last()].Issue
	ps.Nodes = append(ps.Nodes, newBookNode(flags, in, out))
	return ter.TesSUCCESS
}

// pushImplied inserts the book needed to change currency and the issuer
// hop needed for account to take issuer's IOUs.
func (ps *PathState) pushImplied(v state.ReadView, account amount.AccountID,
	currency amount.Currency, issuer amount.AccountID) ter.Result {
	if ps.Nodes[ps.last()].Issue.Currency != currency {
		flags := TypeCurrency | TypeIssuer
		if currency.IsNative() {
			flags = TypeCurrency
		}
		if r := ps.pushNode(v, flags, amount.XDVAccount, currency, issuer); r != ter.TesSUCCESS {
			return r
		}
	}
	if !currency.IsNative() && ps.Nodes[ps.last()].Account != issuer && account != issuer {
		return ps.pushNode(v, TypeAll, issuer, currency, issuer)
	}
	return ter.TesSUCCESS
}

// checkNoDivvy rejects paths that divvy through an account that set no
// divvy on both sides.
func (ps *PathState) checkNoDivvy(v state.ReadView) {
	for i := 1; i < ps.last(); i++ {
		prev, node, next := &ps.Nodes[i-1], &ps.Nodes[i], &ps.Nodes[i+1]
		if !prev.IsAccount() || !node.IsAccount() || !next.IsAccount() {
			continue
		}
		currency := node.Issue.Currency
		if currency.IsNative() {
			continue
		}
		if prev.Issue.Currency != currency || next.Issue.Currency != currency {
			ps.status = ter.TemBAD_PATH
			return
		}
		in, ok := state.ReadLine(v, prev.Account, node.Account, currency)
		if !ok {
			ps.status = ter.TerNO_LINE
			return
		}
		out, ok := state.ReadLine(v, node.Account, next.Account, currency)
		if !ok {
			ps.status = ter.TerNO_LINE
			return
		}
		if in.NoDivvy(node.Account) && out.NoDivvy(node.Account) {
			ps.status = ter.TerNO_DIVVY
			return
		}
	}
}

// checkFreeze drops paths through a globally frozen issuer or along a line
// its receiving side froze.
func (ps *PathState) checkFreeze(v state.ReadView) {
	if len(ps.Nodes) <= 2 {
		return
	}
	for i := 0; i < ps.last(); i++ {
		node := &ps.Nodes[i]
		if node.Flags&TypeIssuer != 0 && state.IsGlobalFrozen(v, node.Issue.Account) {
			ps.status = ter.TerNO_LINE
			return
		}
		if !node.IsAccount() {
			continue
		}
		in, out := node.Account, ps.Nodes[i+1].Account
		if in == out || out.IsZero() {
			continue
		}
		if state.IsGlobalFrozen(v, out) {
			ps.status = ter.TerNO_LINE
			return
		}
		if line, ok := state.ReadLine(v, in, out, node.Issue.Currency); ok && line.FrozenBy(out) {
			ps.status = ter.TerNO_LINE
			return
		}
	}
}
