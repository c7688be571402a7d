package paths

import (
	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// cursor runs one round of one path: a reverse pass that works out what
// each node must supply, then a forward pass that moves the funds.
type cursor struct {
	calc       *calculation
	ps         *PathState
	checkpoint *state.Sandbox
	logger     *log.Entry

	// consumed holds offers used up earlier in the current pass.
	consumed map[keylet.Key]bool
}

func newCursor(calc *calculation, ps *PathState, checkpoint *state.Sandbox) *cursor {
	return &cursor{
		calc:       calc,
		ps:         ps,
		checkpoint: checkpoint,
		logger:     calc.logger.WithField("path", ps.index),
		consumed:   make(map[keylet.Key]bool),
	}
}

func (c *cursor) view() *state.Sandbox { return c.ps.sandbox }

func (c *cursor) deliverLimit() int {
	if c.ps.multiQuality {
		return c.calc.limits.DeliverLoopsMQ
	}
	return c.calc.limits.DeliverLoops
}

// liquidity computes the reverse then the forward pass. Each starts from
// a fresh copy of the round checkpoint.
func (c *cursor) liquidity() ter.Result {
	ps := c.ps

	ps.sandbox = c.checkpoint.Duplicate()
	for i := ps.last(); i > 0; i-- {
		if r := c.reverse(i); r != ter.TesSUCCESS {
			c.logger.Debugf("reverse pass stopped at node %d: %s", i, r)
			return r
		}
	}
	ps.phase = PhaseReversed

	ps.sandbox = c.checkpoint.Duplicate()
	clear(c.consumed)
	for i := range ps.Nodes {
		if r := c.forward(i); r != ter.TesSUCCESS {
			c.logger.Debugf("forward pass stopped at node %d: %s", i, r)
			return r
		}
	}
	ps.phase = PhaseApplied
	return ter.TesSUCCESS
}

// nextIncrement computes one round and records its quality. A round that
// moves nothing is reported dry.
func (c *cursor) nextIncrement() {
	ps := c.ps
	r := c.liquidity()
	ps.quality = quality.Quality{}
	if r == ter.TesSUCCESS {
		if ps.IsDry() {
			c.logger.Debugf("no progress: in=%s out=%s", ps.inPass, ps.outPass)
			r = ter.TecPATH_DRY
		} else {
			ps.quality = quality.FromAmounts(ps.inPass, ps.outPass)
		}
	}
	ps.status = r
	if ps.quality.IsZero() {
		ps.phase = PhaseDry
	}
}

func (c *cursor) reverse(i int) ter.Result {
	node := &c.ps.Nodes[i]
	switch node.Kind {
	case AccountNode:
		return c.reverseAccount(i)
	case BookNode:
		return c.reverseBook(i)
	default:
		return ter.TefINTERNAL
	}
}

func (c *cursor) forward(i int) ter.Result {
	node := &c.ps.Nodes[i]
	switch node.Kind {
	case AccountNode:
		return c.forwardAccount(i)
	case BookNode:
		return c.forwardBook(i)
	default:
		return ter.TefINTERNAL
	}
}

// transferRate is the issuer fee charged when value passes through the
// account at node i.
func (c *cursor) transferRate(i int) uint32 {
	return uint32(c.view().TransferRate(c.ps.Nodes[i].Account))
}

// qualities returns the line qualities of the account at node i toward
// its neighbors. The ends of the path use parity.
func (c *cursor) qualities(i int) (in, out uint32) {
	ps := c.ps
	node := &ps.Nodes[i]
	currency := node.Issue.Currency
	in, out = quality.One, quality.One
	if i != 0 {
		from := node.Account
		if ps.prevIsAccount(i) {
			from = ps.Nodes[i-1].Account
		}
		in = state.QualityIn(c.view(), node.Account, from, currency)
	}
	if i != ps.last() {
		to := node.Account
		if ps.nextIsAccount(i) {
			to = ps.Nodes[i+1].Account
		}
		out = state.QualityOut(c.view(), node.Account, to, currency)
	}
	return in, out
}
