package snapshot

import (
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// formatVersion is bumped whenever the document layout changes.
const formatVersion = 1

type document struct {
	Version          int          `codec:"v"`
	CloseTime        uint32       `codec:"close_time"`
	Open             bool         `codec:"open"`
	ReserveBase      int64        `codec:"reserve_base"`
	ReserveIncrement int64        `codec:"reserve_increment"`
	Accounts         []accountDoc `codec:"accounts"`
	Lines            []lineDoc    `codec:"lines"`
	Offers           []offerDoc   `codec:"offers"`
}

type amountDoc struct {
	Value    string `codec:"value"`
	Currency string `codec:"currency"`
	Issuer   string `codec:"issuer"`
}

type accountDoc struct {
	ID           string    `codec:"id"`
	Balance      amountDoc `codec:"balance"`
	OwnerCount   uint32    `codec:"owner_count"`
	Sequence     uint32    `codec:"sequence"`
	TransferRate uint32    `codec:"transfer_rate"`
	Flags        uint32    `codec:"flags"`
}

type lineDoc struct {
	Low            string    `codec:"low"`
	High           string    `codec:"high"`
	Currency       string    `codec:"currency"`
	Balance        amountDoc `codec:"balance"`
	LowLimit       amountDoc `codec:"low_limit"`
	HighLimit      amountDoc `codec:"high_limit"`
	LowQualityIn   uint32    `codec:"low_quality_in"`
	LowQualityOut  uint32    `codec:"low_quality_out"`
	HighQualityIn  uint32    `codec:"high_quality_in"`
	HighQualityOut uint32    `codec:"high_quality_out"`
	Flags          uint32    `codec:"flags"`
}

type offerDoc struct {
	Owner      string    `codec:"owner"`
	Sequence   uint32    `codec:"sequence"`
	TakerPays  amountDoc `codec:"taker_pays"`
	TakerGets  amountDoc `codec:"taker_gets"`
	Expiration uint32    `codec:"expiration"`
	Quality    uint64    `codec:"quality"`
}

var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}()

// Encode serializes every entry of l together with its settings.
func Encode(l *state.Ledger) ([]byte, error) {
	fees := l.Fees()
	doc := document{
		Version:          formatVersion,
		CloseTime:        l.CloseTime(),
		Open:             l.Open(),
		ReserveBase:      fees.ReserveBase,
		ReserveIncrement: fees.ReserveIncrement,
	}
	for _, e := range l.Entries() {
		switch e := e.(type) {
		case *state.AccountRoot:
			doc.Accounts = append(doc.Accounts, accountDoc{
				ID:           e.ID.Hex(),
				Balance:      fromAmount(e.Balance),
				OwnerCount:   e.OwnerCount,
				Sequence:     e.Sequence,
				TransferRate: uint32(e.TransferRate),
				Flags:        uint32(e.Flags),
			})
		case *state.TrustLine:
			doc.Lines = append(doc.Lines, lineDoc{
				Low:            e.Low.Hex(),
				High:           e.High.Hex(),
				Currency:       string(e.Currency),
				Balance:        fromAmount(e.Balance),
				LowLimit:       fromAmount(e.LowLimit),
				HighLimit:      fromAmount(e.HighLimit),
				LowQualityIn:   e.LowQualityIn,
				LowQualityOut:  e.LowQualityOut,
				HighQualityIn:  e.HighQualityIn,
				HighQualityOut: e.HighQualityOut,
				Flags:          uint32(e.Flags),
			})
		case *state.Offer:
			doc.Offers = append(doc.Offers, offerDoc{
				Owner:      e.Owner.Hex(),
				Sequence:   e.Sequence,
				TakerPays:  fromAmount(e.TakerPays),
				TakerGets:  fromAmount(e.TakerGets),
				Expiration: e.Expiration,
				Quality:    e.Quality.Value,
			})
		default:
			return nil, fmt.Errorf("snapshot: unsupported entry %T", e)
		}
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, msgpackHandle).Encode(&doc); err != nil {
		return nil, fmt.Errorf("snapshot encode: %w", err)
	}
	return out, nil
}

// Decode rebuilds a ledger from Encode output. Offers keep the directory
// tier they were stored under.
func Decode(data []byte, rateCacheSize int) (*state.Ledger, error) {
	var doc document
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrCorrupt, doc.Version)
	}

	l, err := state.NewLedger(state.LedgerConfig{
		Fees:          state.Fees{ReserveBase: doc.ReserveBase, ReserveIncrement: doc.ReserveIncrement},
		CloseTime:     doc.CloseTime,
		Open:          doc.Open,
		RateCacheSize: rateCacheSize,
	})
	if err != nil {
		return nil, err
	}

	for _, a := range doc.Accounts {
		id, err := amount.ParseAccountID(a.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		balance, err := toAmount(a.Balance)
		if err != nil {
			return nil, err
		}
		if err := l.Insert(&state.AccountRoot{
			ID:           id,
			Balance:      balance,
			OwnerCount:   a.OwnerCount,
			Sequence:     a.Sequence,
			TransferRate: quality.TransferRate(a.TransferRate),
			Flags:        state.AccountFlags(a.Flags),
		}); err != nil {
			return nil, err
		}
	}

	for _, d := range doc.Lines {
		line, err := toLine(d)
		if err != nil {
			return nil, err
		}
		if err := l.Insert(line); err != nil {
			return nil, err
		}
	}

	for _, d := range doc.Offers {
		owner, err := amount.ParseAccountID(d.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		pays, err := toAmount(d.TakerPays)
		if err != nil {
			return nil, err
		}
		gets, err := toAmount(d.TakerGets)
		if err != nil {
			return nil, err
		}
		if err := l.Insert(&state.Offer{
			Owner:      owner,
			Sequence:   d.Sequence,
			TakerPays:  pays,
			TakerGets:  gets,
			Expiration: d.Expiration,
			Quality:    quality.Quality{Value: d.Quality},
		}); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func toLine(d lineDoc) (*state.TrustLine, error) {
	low, err := amount.ParseAccountID(d.Low)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	high, err := amount.ParseAccountID(d.High)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	line := state.NewTrustLine(low, high, amount.Currency(d.Currency))
	if line.Low != low {
		return nil, fmt.Errorf("%w: line %s/%s out of order", ErrCorrupt, d.Low, d.High)
	}
	if line.Balance, err = toAmount(d.Balance); err != nil {
		return nil, err
	}
	if line.LowLimit, err = toAmount(d.LowLimit); err != nil {
		return nil, err
	}
	if line.HighLimit, err = toAmount(d.HighLimit); err != nil {
		return nil, err
	}
	line.LowQualityIn, line.LowQualityOut = d.LowQualityIn, d.LowQualityOut
	line.HighQualityIn, line.HighQualityOut = d.HighQualityIn, d.HighQualityOut
	line.Flags = state.LineFlags(d.Flags)
	return line, nil
}

func fromAmount(a amount.Amount) amountDoc {
	return amountDoc{Value: a.Value(), Currency: string(a.Currency()), Issuer: a.Issuer().Hex()}
}

func toAmount(d amountDoc) (amount.Amount, error) {
	currency := amount.Currency(d.Currency)
	issue := amount.NativeIssue
	if !currency.IsNative() {
		issuer, err := amount.ParseAccountID(d.Issuer)
		if err != nil {
			return amount.Amount{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		issue = amount.NewIssue(currency, issuer)
	}
	a, err := amount.ParseValue(issue, d.Value)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return a, nil
}
