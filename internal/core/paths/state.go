package paths

import (
	"fmt"
	"strings"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// Phase tracks a path through one calculation.
type Phase uint8

const (
	PhasePending Phase = iota
	PhaseReversed
	PhaseApplied
	PhaseDry
	PhaseMalformed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseReversed:
		return "reversed"
	case PhaseApplied:
		return "applied"
	case PhaseDry:
		return "dry"
	case PhaseMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// source names the funds of one account in one issue.
type source struct {
	account amount.AccountID
	issue   amount.Issue
}

// PathState is one expanded path with its per-round results.
type PathState struct {
	Nodes []Node

	index   int
	status  ter.Result
	phase   Phase
	quality quality.Quality

	inReq  amount.Amount
	inAct  amount.Amount
	inPass amount.Amount

	outReq  amount.Amount
	outAct  amount.Amount
	outPass amount.Amount

	// sandbox holds the changes of the last forward pass.
	sandbox *state.Sandbox

	// unfunded lists offers the forward pass used up.
	unfunded []keylet.Key

	// forward maps every node's (account, issue) to its index.
	forward map[source]int
	// reverse records which book node first used an owner's funds.
	reverse map[source]int

	multiQuality bool
	// allConsumed is set once a book ran out of offers.
	allConsumed bool
}

func newPathState(inReq, outReq amount.Amount) *PathState {
	return &PathState{
		status:  ter.TesSUCCESS,
		inReq:   inReq,
		inAct:   inReq.Zeroed(),
		inPass:  inReq.Zeroed(),
		outReq:  outReq,
		outAct:  outReq.Zeroed(),
		outPass: outReq.Zeroed(),
		forward: make(map[source]int),
		reverse: make(map[source]int),
	}
}

// reset prepares the path for another round.
func (ps *PathState) reset(inAct, outAct amount.Amount) {
	ps.inAct = inAct
	ps.outAct = outAct
	ps.inPass = ps.inReq.Zeroed()
	ps.outPass = ps.outReq.Zeroed()
	ps.unfunded = nil
	clear(ps.reverse)
	ps.status = ter.TesSUCCESS
	ps.phase = PhasePending
	ps.allConsumed = false
	for i := range ps.Nodes {
		ps.Nodes[i].clear()
	}
}

// Index is the position of the path in Output.PathStates.
func (ps *PathState) Index() int { return ps.index }

func (ps *PathState) Status() ter.Result { return ps.status }

func (ps *PathState) Phase() Phase { return ps.phase }

// Quality is the in/out rate of the last round; zero once the path is dry.
func (ps *PathState) Quality() quality.Quality { return ps.quality }

func (ps *PathState) InPass() amount.Amount { return ps.inPass }

func (ps *PathState) OutPass() amount.Amount { return ps.outPass }

// IsDry reports whether the last round moved nothing.
func (ps *PathState) IsDry() bool {
	return !ps.inPass.IsPositive() || !ps.outPass.IsPositive()
}

// Unfunded returns the offers the last forward pass consumed.
func (ps *PathState) Unfunded() []keylet.Key {
	return ps.unfunded
}

func (ps *PathState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path %d %s %s q=%s in=%s out=%s", ps.index, ps.status, ps.phase, ps.quality, ps.inPass, ps.outPass)
	for i := range ps.Nodes {
		fmt.Fprintf(&b, "\n  %d: %s", i, &ps.Nodes[i])
	}
	return b.String()
}

func (ps *PathState) last() int { return len(ps.Nodes) - 1 }

// nextIsAccount reports whether the node after i is an account; the
// destination counts as one.
func (ps *PathState) nextIsAccount(i int) bool {
	return i == ps.last() || ps.Nodes[i+1].IsAccount()
}

// prevIsAccount reports whether the node before i is an account; the
// source counts as one.
func (ps *PathState) prevIsAccount(i int) bool {
	return i == 0 || ps.Nodes[i-1].IsAccount()
}
