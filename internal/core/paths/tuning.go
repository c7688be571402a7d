package paths

const (
	// MaxPaths bounds the explicit paths of one payment.
	MaxPaths = 6
	// MaxPathLength bounds the elements of one explicit path.
	MaxPathLength = 8
	// MaxPathNodes bounds an expanded path, implied nodes included.
	MaxPathNodes = 4*MaxPathLength + 4

	// PaymentMaxLoops bounds the passes over all paths.
	PaymentMaxLoops = 1000
	// CalcNodeDeliverMaxLoops bounds offers taken by one book in one pass.
	CalcNodeDeliverMaxLoops = 100
	// CalcNodeDeliverMaxLoopsMQ is the same bound in multi-quality mode.
	CalcNodeDeliverMaxLoopsMQ = 2000
	// NodeAdvanceMaxLoops bounds the offers skipped while looking for the
	// next usable one.
	NodeAdvanceMaxLoops = 100
)

// Limits are the loop bounds of a calculation.
type Limits struct {
	MaxPasses      int
	DeliverLoops   int
	DeliverLoopsMQ int
	AdvanceLoops   int
	// MultiQuality lets the last live path walk every tier of its books
	// in one pass.
	MultiQuality bool
}

// DefaultLimits returns the divvyd bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxPasses:      PaymentMaxLoops,
		DeliverLoops:   CalcNodeDeliverMaxLoops,
		DeliverLoopsMQ: CalcNodeDeliverMaxLoopsMQ,
		AdvanceLoops:   NodeAdvanceMaxLoops,
		MultiQuality:   true,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPasses <= 0 {
		l.MaxPasses = d.MaxPasses
	}
	if l.DeliverLoops <= 0 {
		l.DeliverLoops = d.DeliverLoops
	}
	if l.DeliverLoopsMQ <= 0 {
		l.DeliverLoopsMQ = d.DeliverLoopsMQ
	}
	if l.AdvanceLoops <= 0 {
		l.AdvanceLoops = d.AdvanceLoops
	}
	return l
}
