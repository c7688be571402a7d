package fixture

import (
	"fmt"
	"strings"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
	"github.com/LeJamon/goDivvyd/internal/crypto"
)

// DefaultFees are the reserves used when a scenario sets none.
var DefaultFees = state.Fees{ReserveBase: 200_000_000, ReserveIncrement: 50_000_000}

var accountFlags = map[string]state.AccountFlags{
	"require_auth":  state.RequireAuth,
	"global_freeze": state.GlobalFreeze,
	"default_divvy": state.DefaultDivvy,
}

// Accounts maps scenario names to account IDs.
type Accounts map[string]amount.AccountID

// Resolve returns the ID of a name, or parses s as an address or hex ID.
func (a Accounts) Resolve(s string) (amount.AccountID, error) {
	if id, ok := a[s]; ok {
		return id, nil
	}
	id, err := amount.ParseAccountID(s)
	if err != nil {
		return id, fmt.Errorf("%w: unknown account %q", ErrInvalidScenario, s)
	}
	return id, nil
}

// Name returns the scenario name of id, or its address.
func (a Accounts) Name(id amount.AccountID) string {
	for name, v := range a {
		if v == id {
			return name
		}
	}
	return id.String()
}

// Amount parses "drops", "drops/XDV" or "value/CUR/account".
func (a Accounts) Amount(s string) (amount.Amount, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) == 3 {
		issuer, err := a.Resolve(parts[2])
		if err != nil {
			return amount.Amount{}, err
		}
		return amount.ParseValue(amount.NewIssue(amount.Currency(parts[1]), issuer), parts[0])
	}
	return amount.Parse(s)
}

// Setup is a scenario resolved into engine types.
type Setup struct {
	Scenario *Scenario
	Accounts Accounts
	Ledger   *state.Ledger
}

// Build resolves the accounts of s and creates its ledger.
func Build(s *Scenario) (*Setup, error) {
	accounts := make(Accounts, len(s.Accounts))
	for _, spec := range s.Accounts {
		id, err := accountID(spec)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", spec.Name, err)
		}
		accounts[spec.Name] = id
	}

	fees := DefaultFees
	if s.Fees != nil {
		fees = state.Fees{ReserveBase: s.Fees.ReserveBase, ReserveIncrement: s.Fees.ReserveIncrement}
	}
	l, err := state.NewLedger(state.LedgerConfig{Fees: fees, CloseTime: s.CloseTime, Open: !s.Closed})
	if err != nil {
		return nil, err
	}

	for _, spec := range s.Accounts {
		root, err := accountRoot(accounts, spec)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", spec.Name, err)
		}
		if err := l.Insert(root); err != nil {
			return nil, err
		}
	}
	for i, spec := range s.Lines {
		line, err := trustLine(accounts, spec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if err := l.Insert(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
	}
	for i, spec := range s.Offers {
		offer, err := offerEntry(accounts, spec)
		if err != nil {
			return nil, fmt.Errorf("offer %d: %w", i, err)
		}
		if err := l.Insert(offer); err != nil {
			return nil, fmt.Errorf("offer %d: %w", i, err)
		}
	}
	return &Setup{Scenario: s, Accounts: accounts, Ledger: l}, nil
}

func accountID(spec AccountSpec) (amount.AccountID, error) {
	switch {
	case spec.Address != "":
		return amount.ParseAccountID(spec.Address)
	case spec.PublicKey != "":
		return crypto.AccountFromPublicKey(spec.PublicKey)
	default:
		return crypto.KeyFromPassphrase(spec.Name).Account(), nil
	}
}

func accountRoot(accounts Accounts, spec AccountSpec) (*state.AccountRoot, error) {
	balance, err := amount.ParseValue(amount.NativeIssue, orZero(spec.Balance))
	if err != nil {
		return nil, err
	}
	root := &state.AccountRoot{
		ID:           accounts[spec.Name],
		Balance:      balance,
		OwnerCount:   spec.OwnerCount,
		Sequence:     spec.Sequence,
		TransferRate: quality.TransferRate(spec.TransferRate),
	}
	for _, name := range spec.Flags {
		f, ok := accountFlags[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown account flag %q", ErrInvalidScenario, name)
		}
		root.Flags |= f
	}
	return root, nil
}

func trustLine(accounts Accounts, spec LineSpec) (*state.TrustLine, error) {
	holder, err := accounts.Resolve(spec.Holder)
	if err != nil {
		return nil, err
	}
	issuer, err := accounts.Resolve(spec.Issuer)
	if err != nil {
		return nil, err
	}
	if holder == issuer {
		return nil, fmt.Errorf("%w: line from %q to itself", ErrInvalidScenario, spec.Holder)
	}
	currency := amount.Currency(spec.Currency)
	if currency.IsNative() {
		return nil, fmt.Errorf("%w: native trust line", ErrInvalidScenario)
	}
	issue := amount.NewIssue(currency, issuer)

	limit, err := amount.ParseValue(issue, orZero(spec.Limit))
	if err != nil {
		return nil, err
	}
	peerLimit, err := amount.ParseValue(issue, orZero(spec.PeerLimit))
	if err != nil {
		return nil, err
	}
	balance, err := amount.ParseValue(issue, orZero(spec.Balance))
	if err != nil {
		return nil, err
	}

	line := state.NewTrustLine(holder, issuer, currency)
	low := line.IsLow(holder)
	if low {
		line.LowLimit = limit.WithIssuer(holder)
		line.HighLimit = peerLimit.WithIssuer(issuer)
		line.LowQualityIn, line.LowQualityOut = spec.QualityIn, spec.QualityOut
	} else {
		line.HighLimit = limit.WithIssuer(holder)
		line.LowLimit = peerLimit.WithIssuer(issuer)
		line.HighQualityIn, line.HighQualityOut = spec.QualityIn, spec.QualityOut
	}
	line.SetBalanceFor(holder, balance)

	for _, name := range spec.Flags {
		f, err := lineFlag(name, low)
		if err != nil {
			return nil, err
		}
		line.Flags |= f
	}
	return line, nil
}

// lineFlag maps a flag named from the holder's side onto the low/high bits.
func lineFlag(name string, holderIsLow bool) (state.LineFlags, error) {
	pick := func(low, high state.LineFlags, holderSide bool) state.LineFlags {
		if holderSide == holderIsLow {
			return low
		}
		return high
	}
	switch name {
	case "auth":
		return pick(state.LowAuth, state.HighAuth, true), nil
	case "authorized":
		return pick(state.LowAuth, state.HighAuth, false), nil
	case "no_divvy":
		return pick(state.LowNoDivvy, state.HighNoDivvy, true), nil
	case "issuer_no_divvy":
		return pick(state.LowNoDivvy, state.HighNoDivvy, false), nil
	case "freeze":
		return pick(state.LowFreeze, state.HighFreeze, true), nil
	case "frozen":
		return pick(state.LowFreeze, state.HighFreeze, false), nil
	default:
		return 0, fmt.Errorf("%w: unknown line flag %q", ErrInvalidScenario, name)
	}
}

func offerEntry(accounts Accounts, spec OfferSpec) (*state.Offer, error) {
	owner, err := accounts.Resolve(spec.Owner)
	if err != nil {
		return nil, err
	}
	pays, err := accounts.Amount(spec.TakerPays)
	if err != nil {
		return nil, err
	}
	gets, err := accounts.Amount(spec.TakerGets)
	if err != nil {
		return nil, err
	}
	return &state.Offer{
		Owner:      owner,
		Sequence:   spec.Sequence,
		TakerPays:  pays,
		TakerGets:  gets,
		Expiration: spec.Expiration,
	}, nil
}

// OfferKey resolves "owner:sequence" to an offer key.
func (s *Setup) OfferKey(ref string) (keylet.Key, error) {
	name, seq, ok := strings.Cut(ref, ":")
	if !ok {
		return keylet.Key{}, fmt.Errorf("%w: offer reference %q", ErrInvalidScenario, ref)
	}
	owner, err := s.Accounts.Resolve(name)
	if err != nil {
		return keylet.Key{}, err
	}
	var n uint32
	if _, err := fmt.Sscan(seq, &n); err != nil {
		return keylet.Key{}, fmt.Errorf("%w: offer sequence %q", ErrInvalidScenario, seq)
	}
	return keylet.Offer(owner, n).Key, nil
}

// Request builds the payment of the scenario on top of the plain payment
// options.
func (s *Setup) Request() (paths.Request, error) {
	return s.RequestWith(paths.DefaultOptions())
}

// RequestWith builds the payment of the scenario. Flags set by the
// scenario override base.
func (s *Setup) RequestWith(base paths.Options) (paths.Request, error) {
	spec := s.Scenario.Payment
	if spec == nil {
		return paths.Request{}, fmt.Errorf("%w: scenario has no payment", ErrInvalidScenario)
	}
	src, err := s.Accounts.Resolve(spec.Source)
	if err != nil {
		return paths.Request{}, err
	}
	dst, err := s.Accounts.Resolve(spec.Destination)
	if err != nil {
		return paths.Request{}, err
	}
	amt, err := s.Accounts.Amount(spec.Amount)
	if err != nil {
		return paths.Request{}, fmt.Errorf("amount: %w", err)
	}

	req := paths.Request{
		Source:      src,
		Destination: dst,
		Amount:      amt,
		Options: paths.Options{
			PartialPaymentAllowed: base.PartialPaymentAllowed || spec.Partial,
			DefaultPathsAllowed:   base.DefaultPathsAllowed && !spec.NoDirect,
			LimitQuality:          base.LimitQuality || spec.LimitQuality,
			DeleteUnfundedOffers:  base.DeleteUnfundedOffers && !spec.KeepUnfunded,
			IsLedgerOpen:          !s.Scenario.Closed,
		},
	}
	if spec.SendMax != "" {
		max, err := s.Accounts.Amount(spec.SendMax)
		if err != nil {
			return paths.Request{}, fmt.Errorf("send_max: %w", err)
		}
		req.SendMax = &max
	}
	for _, p := range spec.Paths {
		path := make(paths.Path, 0, len(p))
		for _, e := range p {
			el, err := s.element(e)
			if err != nil {
				return paths.Request{}, err
			}
			path = append(path, el)
		}
		req.Paths = append(req.Paths, path)
	}
	return req, nil
}

func (s *Setup) element(e ElementSpec) (paths.Element, error) {
	var el paths.Element
	if e.Account != "" {
		id, err := s.Accounts.Resolve(e.Account)
		if err != nil {
			return el, err
		}
		el.Type |= paths.TypeAccount
		el.Account = id
	}
	if e.Currency != "" {
		el.Type |= paths.TypeCurrency
		el.Currency = amount.Currency(e.Currency)
	}
	if e.Issuer != "" {
		id, err := s.Accounts.Resolve(e.Issuer)
		if err != nil {
			return el, err
		}
		el.Type |= paths.TypeIssuer
		el.Issuer = id
	}
	if el.Type == 0 {
		return el, fmt.Errorf("%w: empty path element", ErrInvalidScenario)
	}
	return el, nil
}

// Cross builds the offer crossing of the scenario.
func (s *Setup) Cross() (amount.AccountID, quality.Amounts, taker.Flags, error) {
	spec := s.Scenario.Cross
	if spec == nil {
		return amount.AccountID{}, quality.Amounts{}, 0, fmt.Errorf("%w: scenario has no cross", ErrInvalidScenario)
	}
	account, err := s.Accounts.Resolve(spec.Account)
	if err != nil {
		return account, quality.Amounts{}, 0, err
	}
	pays, err := s.Accounts.Amount(spec.Pays)
	if err != nil {
		return account, quality.Amounts{}, 0, fmt.Errorf("pays: %w", err)
	}
	gets, err := s.Accounts.Amount(spec.Gets)
	if err != nil {
		return account, quality.Amounts{}, 0, fmt.Errorf("gets: %w", err)
	}
	var flags taker.Flags
	if spec.Passive {
		flags |= taker.Passive
	}
	if spec.Sell {
		flags |= taker.Sell
	}
	return account, quality.Amounts{In: pays, Out: gets}, flags, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
