// Package fixture reads payment scenarios: a small ledger described by
// named accounts, the payment or offer crossing to run against it, and
// the outcome expected.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ugorji/go/codec"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is one fixture file.
type Scenario struct {
	Name        string `codec:"name"`
	Description string `codec:"description,omitempty"`

	CloseTime uint32 `codec:"close_time,omitempty"`
	// Closed runs the scenario as if the ledger were already closed.
	Closed bool      `codec:"closed,omitempty"`
	Fees   *FeesSpec `codec:"fees,omitempty"`

	Accounts []AccountSpec `codec:"accounts"`
	Lines    []LineSpec    `codec:"lines,omitempty"`
	Offers   []OfferSpec   `codec:"offers,omitempty"`

	Payment *PaymentSpec `codec:"payment,omitempty"`
	Cross   *CrossSpec   `codec:"cross,omitempty"`

	Expect Expect `codec:"expect"`
}

// FeesSpec overrides the reserve settings, in drops.
type FeesSpec struct {
	ReserveBase      int64 `codec:"reserve_base"`
	ReserveIncrement int64 `codec:"reserve_increment"`
}

// AccountSpec declares an account. Its ID comes from Address, then
// PublicKey, and is otherwise derived from Name.
type AccountSpec struct {
	Name      string `codec:"name"`
	Address   string `codec:"address,omitempty"`
	PublicKey string `codec:"public_key,omitempty"`
	// Balance is in drops.
	Balance      string   `codec:"balance"`
	OwnerCount   uint32   `codec:"owner_count,omitempty"`
	Sequence     uint32   `codec:"sequence,omitempty"`
	TransferRate uint32   `codec:"transfer_rate,omitempty"`
	Flags        []string `codec:"flags,omitempty"`
}

// LineSpec declares a trust line from Holder to Issuer. Limit and Balance
// are seen from the holder.
type LineSpec struct {
	Holder     string   `codec:"holder"`
	Issuer     string   `codec:"issuer"`
	Currency   string   `codec:"currency"`
	Limit      string   `codec:"limit"`
	Balance    string   `codec:"balance,omitempty"`
	PeerLimit  string   `codec:"peer_limit,omitempty"`
	QualityIn  uint32   `codec:"quality_in,omitempty"`
	QualityOut uint32   `codec:"quality_out,omitempty"`
	Flags      []string `codec:"flags,omitempty"`
}

// OfferSpec declares an offer. Amounts use the "value/CUR/account" form
// where account may be an account name.
type OfferSpec struct {
	Owner      string `codec:"owner"`
	Sequence   uint32 `codec:"sequence"`
	TakerPays  string `codec:"taker_pays"`
	TakerGets  string `codec:"taker_gets"`
	Expiration uint32 `codec:"expiration,omitempty"`
}

// ElementSpec is one step of an explicit path.
type ElementSpec struct {
	Account  string `codec:"account,omitempty"`
	Currency string `codec:"currency,omitempty"`
	Issuer   string `codec:"issuer,omitempty"`
}

// PaymentSpec is the payment to calculate.
type PaymentSpec struct {
	Source      string          `codec:"source"`
	Destination string          `codec:"destination"`
	Amount      string          `codec:"amount"`
	SendMax     string          `codec:"send_max,omitempty"`
	Paths       [][]ElementSpec `codec:"paths,omitempty"`

	Partial      bool `codec:"partial,omitempty"`
	LimitQuality bool `codec:"limit_quality,omitempty"`
	NoDirect     bool `codec:"no_direct,omitempty"`
	KeepUnfunded bool `codec:"keep_unfunded,omitempty"`
}

// CrossSpec is an offer to cross against the books. Pays is what the
// account gives, Gets what it wants.
type CrossSpec struct {
	Account string `codec:"account"`
	Pays    string `codec:"pays"`
	Gets    string `codec:"gets"`
	Passive bool   `codec:"passive,omitempty"`
	Sell    bool   `codec:"sell,omitempty"`
}

// BalanceSpec is a position expected after the run. Currency "XDV" reads
// the account's drops; otherwise the net balance on the line with Issuer.
type BalanceSpec struct {
	Account  string `codec:"account"`
	Currency string `codec:"currency"`
	Issuer   string `codec:"issuer,omitempty"`
	Value    string `codec:"value"`
}

// Expect is the outcome a scenario asserts. Empty fields are not checked.
type Expect struct {
	Result    string        `codec:"result"`
	Delivered string        `codec:"delivered,omitempty"`
	Sent      string        `codec:"sent,omitempty"`
	Balances  []BalanceSpec `codec:"balances,omitempty"`
	// Removed is the number of offers deleted.
	Removed *int `codec:"removed,omitempty"`
	// Offers lists offers, as "owner:sequence", that must still exist.
	Offers []string `codec:"offers,omitempty"`
	// Gone lists offers that must have been deleted.
	Gone []string `codec:"gone,omitempty"`
}

var jsonHandle = func() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.ErrorIfNoField = true
	h.Indent = 2
	return h
}()

// Decode reads one scenario from r.
func Decode(r io.Reader) (*Scenario, error) {
	var s Scenario
	if err := codec.NewDecoder(r, jsonHandle).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeBytes is Decode over a buffer.
func DecodeBytes(data []byte) (*Scenario, error) {
	var s Scenario
	if err := codec.NewDecoderBytes(data, jsonHandle).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads the scenario stored at path.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *Scenario) error {
	return codec.NewEncoder(w, jsonHandle).Encode(s)
}

// Validate checks the structure of the scenario. Names and amounts are
// resolved later by Build.
func (s *Scenario) Validate() error {
	if len(s.Accounts) == 0 {
		return fmt.Errorf("%w: no accounts", ErrInvalidScenario)
	}
	seen := make(map[string]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Name == "" {
			return fmt.Errorf("%w: account without a name", ErrInvalidScenario)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: account %q declared twice", ErrInvalidScenario, a.Name)
		}
		seen[a.Name] = true
	}
	if s.Payment != nil && s.Cross != nil {
		return fmt.Errorf("%w: both payment and cross set", ErrInvalidScenario)
	}
	if s.Payment == nil && s.Cross == nil {
		return fmt.Errorf("%w: nothing to run", ErrInvalidScenario)
	}
	if s.Expect.Result == "" {
		return fmt.Errorf("%w: expect.result is required", ErrInvalidScenario)
	}
	return nil
}
