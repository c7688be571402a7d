package paths

import (
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
)

// unlimited marks a previous node with no bound on what it can supply.
func unlimited(issue amount.Issue) amount.Amount {
	return amount.FromInt(issue, -1)
}

// divvyLiquidity moves as much of curReq-curAct as possible through an
// account, taking it in at qualityIn and handing it on at qualityOut, and
// charges the previous node for it up to prvReq. A negative prvReq is
// unlimited.
//
// rateMax is the worst rate already accepted on this node; steps at a
// worse rate move nothing. Zero means unset.
func divvyLiquidity(qualityIn, qualityOut uint32, prvReq, curReq amount.Amount,
	prvAct, curAct *amount.Amount, rateMax *uint64) {
	prvUnlimited := prvReq.IsNegative()
	prv := prvReq
	if !prvUnlimited {
		prv = prvReq.Sub(*prvAct)
	}
	cur := curReq.Sub(*curAct)
	if !cur.IsPositive() {
		return
	}

	if qualityIn >= qualityOut {
		transfer := cur
		if !prvUnlimited {
			transfer = amount.Min(prv, cur)
		}
		if *rateMax == 0 || quality.RateOne <= *rateMax {
			*prvAct = prvAct.Add(transfer)
			*curAct = curAct.Add(transfer)
			if *rateMax == 0 {
				*rateMax = quality.RateOne
			}
		}
		return
	}

	rate := quality.LineRate(qualityIn, qualityOut)
	if *rateMax != 0 && rate > *rateMax {
		return
	}
	in := quality.TransferRate(qualityIn).Amount()
	out := quality.TransferRate(qualityOut).Amount()

	curIn := amount.DivRound(amount.MulRound(cur, out, prvAct.Issue(), true), in, prvAct.Issue(), true)
	if prvUnlimited || !curIn.Greater(prv) {
		*curAct = curAct.Add(cur)
		*prvAct = prvAct.Add(curIn)
	} else {
		curOut := amount.DivRound(amount.MulRound(prv, in, curAct.Issue(), true), out, curAct.Issue(), true)
		*curAct = curAct.Add(amount.Min(curOut, cur))
		*prvAct = prvReq
	}
	if *rateMax == 0 {
		*rateMax = rate
	}
}
