package paths

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

// ErrInvariant reports a broken internal invariant. The calculation that
// hit it ends with tefEXCEPTION.
var ErrInvariant = errors.New("payment invariant violated")

// Options are the switches of one payment.
type Options struct {
	// PartialPaymentAllowed accepts delivering less than the amount.
	PartialPaymentAllowed bool `json:"partial_payment_allowed"`
	// DefaultPathsAllowed adds the direct path to the explicit ones.
	DefaultPathsAllowed bool `json:"default_paths_allowed"`
	// LimitQuality refuses any round worse than SendMax/Amount.
	LimitQuality bool `json:"limit_quality"`
	// DeleteUnfundedOffers removes unfunded and expired offers met on the
	// way when the payment succeeds.
	DeleteUnfundedOffers bool `json:"delete_unfunded_offers"`
	// IsLedgerOpen turns telFAILED_PROCESSING into tecFAILED_PROCESSING
	// when false.
	IsLedgerOpen bool `json:"is_ledger_open"`
}

// DefaultOptions returns the options of a plain payment.
func DefaultOptions() Options {
	return Options{
		DefaultPathsAllowed:  true,
		DeleteUnfundedOffers: true,
		IsLedgerOpen:         true,
	}
}

// Request is one payment to compute.
type Request struct {
	Source      amount.AccountID `json:"source"`
	Destination amount.AccountID `json:"destination"`
	// Amount is what the destination should receive.
	Amount amount.Amount `json:"amount"`
	// SendMax bounds what the source spends. Nil means Amount issued by
	// the source; a negative value means no bound.
	SendMax *amount.Amount `json:"send_max,omitempty"`
	Paths   PathSet        `json:"paths,omitempty"`
	Options
}

// Output is the outcome of a calculation.
type Output struct {
	ID              string        `json:"id"`
	Result          ter.Result    `json:"result"`
	ActualAmountIn  amount.Amount `json:"actual_amount_in"`
	ActualAmountOut amount.Amount `json:"actual_amount_out"`
	// PathStates lists every expanded path, dropped ones included.
	PathStates []*PathState `json:"-"`
	Passes     int          `json:"passes"`
	// Rounds lists the adopted result of every pass that moved value.
	Rounds []Round `json:"rounds,omitempty"`
	// Removed lists the offers deleted on success.
	Removed []keylet.Key `json:"-"`
}

// Round is the path adopted by one pass.
type Round struct {
	Pass int `json:"pass"`
	// Path is the Index of the adopted PathState.
	Path    int             `json:"path"`
	Quality quality.Quality `json:"quality"`
	In      amount.Amount   `json:"in"`
	Out     amount.Amount   `json:"out"`
	// Delivered is the total delivered once this round is applied.
	Delivered amount.Amount `json:"delivered"`
}

// Calculator runs payment calculations.
type Calculator struct {
	limits Limits
	logger *log.Entry
}

// NewCalculator creates a calculator. Unset limits take their defaults.
func NewCalculator(limits Limits, logger *log.Entry) *Calculator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Calculator{limits: limits.withDefaults(), logger: logger}
}

// Calculate computes req against view with default limits.
func Calculate(ctx context.Context, view *state.Sandbox, req Request) (*Output, error) {
	return NewCalculator(DefaultLimits(), nil).Calculate(ctx, view, req)
}

// Calculate computes req against view. On tesSUCCESS the changes are
// applied to view; otherwise view is left untouched. The calculation
// itself is not interruptible: ctx is only checked before it starts.
//
// The returned error is reserved for failures outside the payment's own
// result, such as a cancelled context.
func (c *Calculator) Calculate(ctx context.Context, view *state.Sandbox, req Request) (out *Output, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	logger := c.logger.WithFields(log.Fields{
		"calc":        id,
		"source":      req.Source.String(),
		"destination": req.Destination.String(),
	})
	out = &Output{ID: id}

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !isArithmetic(e) {
				panic(r)
			}
			logger.WithError(e).Error("calculation aborted")
			out.Result = ter.TefEXCEPTION
			err = nil
		}
	}()

	maxReq, r := sendMax(req)
	if r == ter.TesSUCCESS {
		r = validate(req, maxReq)
	}
	if r != ter.TesSUCCESS {
		out.Result = r
		out.ActualAmountIn = maxReq.Zeroed()
		out.ActualAmountOut = req.Amount.Zeroed()
		return out, nil
	}

	active := state.NewSandbox(view)
	if maxReq.IsNative() && req.Amount.IsNative() {
		out.Result = direct(active, req)
		out.ActualAmountIn = req.Amount
		out.ActualAmountOut = req.Amount
		if out.Result != ter.TesSUCCESS {
			out.ActualAmountIn = req.Amount.Zeroed()
			out.ActualAmountOut = req.Amount.Zeroed()
		}
	} else {
		k := &calculation{
			req:       req,
			maxReq:    maxReq,
			dstReq:    req.Amount,
			limits:    c.limits,
			logger:    logger,
			active:    active,
			sources:   make(map[source]int),
			permanent: make(map[keylet.Key]bool),
		}
		out.Result = k.run()
		out.ActualAmountIn = k.inAct
		out.ActualAmountOut = k.outAct
		out.PathStates = k.all
		out.Passes = k.passes
		out.Rounds = k.rounds
		out.Removed = k.removed
	}

	if out.Result != ter.TesSUCCESS {
		logger.Debugf("payment failed: %s", out.Result)
		return out, nil
	}
	if err := active.Apply(); err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	logger.Debugf("payment delivered %s for %s in %d passes", out.ActualAmountOut, out.ActualAmountIn, out.Passes)
	return out, nil
}

func isArithmetic(err error) bool {
	return errors.Is(err, amount.ErrOverflow) ||
		errors.Is(err, amount.ErrIncomparable) ||
		errors.Is(err, amount.ErrDivideByZero)
}

// sendMax derives the input bound of req.
func sendMax(req Request) (amount.Amount, ter.Result) {
	if req.SendMax != nil {
		if req.SendMax.IsZero() {
			return *req.SendMax, ter.TemBAD_AMOUNT
		}
		return *req.SendMax, ter.TesSUCCESS
	}
	if req.Amount.IsNative() {
		return req.Amount, ter.TesSUCCESS
	}
	return req.Amount.WithIssuer(req.Source), ter.TesSUCCESS
}

func validate(req Request, maxReq amount.Amount) ter.Result {
	switch {
	case !req.Amount.IsPositive():
		return ter.TemBAD_AMOUNT
	case !req.Amount.Issue().IsConsistent() || !maxReq.Issue().IsConsistent():
		return ter.TemBAD_ISSUER
	case req.Source.IsZero() || req.Destination.IsZero():
		return ter.TemMALFORMED
	case len(req.Paths) > MaxPaths:
		return ter.TelBAD_PATH_COUNT
	}
	for _, p := range req.Paths {
		if len(p) > MaxPathLength {
			return ter.TelBAD_PATH_COUNT
		}
	}

	if maxReq.IsNative() && req.Amount.IsNative() {
		switch {
		case req.SendMax != nil:
			return ter.TemBAD_SEND_XDV_MAX
		case len(req.Paths) > 0:
			return ter.TemBAD_SEND_XDV_PATHS
		case req.PartialPaymentAllowed:
			return ter.TemBAD_SEND_XDV_PARTIAL
		case req.LimitQuality:
			return ter.TemBAD_SEND_XDV_LIMIT
		case !req.DefaultPathsAllowed:
			return ter.TemBAD_SEND_XDV_NO_DIRECT
		case req.Source == req.Destination:
			return ter.TemDST_IS_SRC
		}
		return ter.TesSUCCESS
	}
	if req.Source == req.Destination && maxReq.Currency() == req.Amount.Currency() && len(req.Paths) == 0 {
		return ter.TemDST_IS_SRC
	}
	if req.LimitQuality && maxReq.IsNegative() {
		return ter.TemBAD_AMOUNT
	}
	return ter.TesSUCCESS
}

// direct pays native to native with no paths involved.
func direct(sb *state.Sandbox, req Request) ter.Result {
	if state.AccountHolds(sb, req.Source, amount.NativeIssue).Less(req.Amount) {
		return ter.TecUNFUNDED_PAYMENT
	}
	return sb.TransferXDV(req.Source, req.Destination, req.Amount)
}

// calculation is the state of one payment across its rounds.
type calculation struct {
	req    Request
	maxReq amount.Amount
	dstReq amount.Amount
	limits Limits
	logger *log.Entry

	active *state.Sandbox
	states []*PathState
	all    []*PathState

	inAct  amount.Amount
	outAct amount.Amount
	passes int
	rounds []Round

	// sources records owners whose funds a winning path already used.
	sources map[source]int

	// permanent holds offers found expired or unfunded, in discovery order.
	permanent      map[keylet.Key]bool
	permanentOrder []keylet.Key

	// fromBest holds offers consumed by winning paths.
	fromBest      []keylet.Key
	fromBestIndex map[keylet.Key]bool

	removed []keylet.Key
}

func (k *calculation) markUnfunded(key keylet.Key) {
	if k.permanent[key] {
		return
	}
	k.permanent[key] = true
	k.permanentOrder = append(k.permanentOrder, key)
}

func (k *calculation) isUnfunded(key keylet.Key) bool {
	return k.permanent[key]
}

// addPathState expands one path. It returns false when the path is
// malformed and the whole payment must stop with result.
func (k *calculation) addPathState(path Path, result *ter.Result) bool {
	ps := newPathState(k.maxReq, k.dstReq)
	ps.expand(k.active, path, k.req.Destination, k.req.Source)
	if ps.status == ter.TesSUCCESS {
		ps.checkNoDivvy(k.active)
	}
	if ps.status == ter.TesSUCCESS {
		ps.checkFreeze(k.active)
	}
	ps.index = len(k.all)
	k.all = append(k.all, ps)

	if ps.status.IsTem() {
		ps.phase = PhaseMalformed
		ps.quality = quality.Quality{}
		k.logger.Debugf("malformed path %s: %s", path, ps.status)
		*result = ps.status
		return false
	}
	if ps.status == ter.TesSUCCESS {
		*result = ter.TesSUCCESS
		k.states = append(k.states, ps)
		return true
	}

	ps.phase = PhaseDry
	ps.quality = quality.Quality{}
	k.logger.Debugf("dropped path %s: %s", path, ps.status)
	// Once a usable path exists a dropped one cannot fail the payment.
	if ps.status != ter.TerNO_LINE && *result != ter.TesSUCCESS {
		*result = ps.status
	}
	return true
}

func (k *calculation) run() ter.Result {
	k.inAct = k.maxReq.Zeroed()
	k.outAct = k.dstReq.Zeroed()

	result := ter.TemUNCERTAIN
	if k.req.DefaultPathsAllowed {
		if !k.addPathState(nil, &result) {
			return result
		}
	} else if len(k.req.Paths) == 0 {
		return ter.TemDIVVY_EMPTY
	}
	for _, p := range k.req.Paths {
		if !k.addPathState(p, &result) {
			return result
		}
	}
	if result != ter.TesSUCCESS {
		if result == ter.TemUNCERTAIN {
			return ter.TerNO_LINE
		}
		return result
	}

	var limit quality.Quality
	if k.req.LimitQuality {
		limit = quality.FromAmounts(k.maxReq, k.dstReq)
	}

	k.fromBestIndex = make(map[keylet.Key]bool)
	result = ter.TemUNCERTAIN
	for result == ter.TemUNCERTAIN {
		best, dry, alive := k.round(limit)
		k.passes++

		if best == nil {
			switch {
			case !k.req.PartialPaymentAllowed:
				result = ter.TecPATH_PARTIAL
			case k.outAct.IsZero():
				result = ter.TecPATH_DRY
			default:
				result = ter.TesSUCCESS
			}
			break
		}

		for _, key := range best.unfunded {
			if !k.fromBestIndex[key] {
				k.fromBestIndex[key] = true
				k.fromBest = append(k.fromBest, key)
			}
		}
		k.active.SwapWith(best.sandbox)
		best.sandbox = nil
		k.inAct = k.inAct.Add(best.inPass)
		k.outAct = k.outAct.Add(best.outPass)
		k.rounds = append(k.rounds, Round{
			Pass:      k.passes,
			Path:      best.index,
			Quality:   best.quality,
			In:        best.inPass,
			Out:       best.outPass,
			Delivered: k.outAct,
		})
		k.logger.Debugf("pass %d: path %d moved %s for %s at %s", k.passes, best.index, best.outPass, best.inPass, best.quality)

		if best.allConsumed || best.multiQuality {
			dry++
			best.quality = quality.Quality{}
			best.phase = PhaseDry
		}

		switch {
		case k.outAct.Equal(k.dstReq):
			result = ter.TesSUCCESS
		case k.outAct.Greater(k.dstReq):
			k.logger.WithError(fmt.Errorf("%w: delivered %s of %s", ErrInvariant, k.outAct, k.dstReq)).Error("overdelivery")
			return ter.TefEXCEPTION
		case !k.inAct.Equal(k.maxReq) && dry < alive:
			for src, idx := range best.reverse {
				if _, ok := k.sources[src]; !ok {
					k.sources[src] = idx
				}
			}
			if k.passes >= k.limits.MaxPasses {
				k.logger.Warnf("payment gave up after %d passes", k.passes)
				result = ter.TelFAILED_PROCESSING
			}
		case !k.req.PartialPaymentAllowed:
			result = ter.TecPATH_PARTIAL
		default:
			result = ter.TesSUCCESS
		}
	}

	if result == ter.TesSUCCESS {
		if r := k.deleteOffers(k.fromBest); r != ter.TesSUCCESS {
			return r
		}
		if k.req.DeleteUnfundedOffers {
			if r := k.deleteOffers(k.permanentOrder); r != ter.TesSUCCESS {
				return r
			}
		}
	}
	if result == ter.TelFAILED_PROCESSING && !k.req.IsLedgerOpen {
		result = ter.TecFAILED_PROCESSING
	}
	return result
}

// round runs every live path once from a common checkpoint and returns
// the best one within limit, the number of paths found dry this round and
// the number that were live at its start.
func (k *calculation) round(limit quality.Quality) (best *PathState, dry, alive int) {
	checkpoint := k.active.Duplicate()
	for _, ps := range k.states {
		if !ps.quality.IsZero() {
			alive++
		}
	}

	for _, ps := range k.states {
		if ps.quality.IsZero() {
			continue
		}
		ps.multiQuality = k.limits.MultiQuality && alive-dry == 1
		ps.reset(k.inAct, k.outAct)
		newCursor(k, ps, checkpoint).nextIncrement()

		if ps.quality.IsZero() {
			dry++
			continue
		}
		if ps.outPass.IsZero() {
			ps.quality = quality.Quality{}
			ps.phase = PhaseDry
			dry++
			continue
		}
		if !limit.IsZero() && ps.quality.WorseThan(limit) {
			continue
		}
		if best == nil || ps.quality.BetterThan(best.quality) {
			best = ps
		}
	}
	return best, dry, alive
}

func (k *calculation) deleteOffers(keys []keylet.Key) ter.Result {
	for _, key := range keys {
		if _, ok := k.active.Offer(key); !ok {
			continue
		}
		if r := k.active.OfferDelete(key); r != ter.TesSUCCESS {
			return r
		}
		k.removed = append(k.removed, key)
	}
	return ter.TesSUCCESS
}
