package fixture

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/audit"
	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
	"github.com/LeJamon/goDivvyd/internal/crypto"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".json"), func(t *testing.T) {
			s, err := Load(file)
			require.NoError(t, err)

			setup, err := Build(s)
			require.NoError(t, err)

			run, err := NewRunner(paths.DefaultLimits(), nil).Run(context.Background(), setup)
			require.NoError(t, err)
			require.NoError(t, Verify(setup, run))

			_, err = audit.Check(run.Before, setup.Ledger.Entries(), run.Journal)
			assert.NoError(t, err)
		})
	}
}

func TestVerifyReportsMismatches(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "direct_iou.json"))
	require.NoError(t, err)
	s.Expect.Result = "tecPATH_PARTIAL"
	s.Expect.Delivered = "11/USD/gw"
	s.Expect.Balances[1].Value = "9"

	setup, err := Build(s)
	require.NoError(t, err)
	run, err := NewRunner(paths.DefaultLimits(), nil).Run(context.Background(), setup)
	require.NoError(t, err)

	err = Verify(setup, run)
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "result tesSUCCESS")
	assert.Contains(t, err.Error(), "delivered")
	assert.Contains(t, err.Error(), "bob USD balance 10")
}

func TestFailedPaymentLeavesLedger(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "direct_iou.json"))
	require.NoError(t, err)
	s.Payment.Amount = "500/USD/gw"
	s.Expect = Expect{
		Result: "tecPATH_PARTIAL",
		Balances: []BalanceSpec{
			{Account: "alice", Currency: "USD", Issuer: "gw", Value: "100"},
			{Account: "bob", Currency: "USD", Issuer: "gw", Value: "0"},
		},
	}

	setup, err := Build(s)
	require.NoError(t, err)
	before := setup.Ledger.Entries()

	run, err := NewRunner(paths.DefaultLimits(), nil).Run(context.Background(), setup)
	require.NoError(t, err)
	assert.Equal(t, ter.TecPATH_PARTIAL, run.Result)
	assert.Empty(t, run.Journal)
	assert.Equal(t, before, setup.Ledger.Entries())
	require.NoError(t, Verify(setup, run))
}

func TestBuild(t *testing.T) {
	key := crypto.KeyFromPassphrase("carol")
	s := &Scenario{
		Name: "build",
		Accounts: []AccountSpec{
			{Name: "alice", Balance: "500", Flags: []string{"default_divvy"}},
			{Name: "bob", Address: "0000000000000000000000000000000000000B01"},
			{Name: "carol", PublicKey: key.PublicKeyHex()},
			{Name: "gw", Balance: "1000", TransferRate: 1_002_000_000, Flags: []string{"require_auth"}},
		},
		Lines: []LineSpec{
			{Holder: "alice", Issuer: "gw", Currency: "USD", Limit: "100", Balance: "7", Flags: []string{"no_divvy", "authorized"}},
		},
		Offers: []OfferSpec{
			{Owner: "alice", Sequence: 3, TakerPays: "10", TakerGets: "5/USD/gw"},
		},
		Payment: &PaymentSpec{Source: "alice", Destination: "bob", Amount: "10"},
		Expect:  Expect{Result: "tesSUCCESS"},
	}
	require.NoError(t, s.Validate())

	setup, err := Build(s)
	require.NoError(t, err)

	alice := crypto.KeyFromPassphrase("alice").Account()
	gw := crypto.KeyFromPassphrase("gw").Account()
	assert.Equal(t, alice, setup.Accounts["alice"])
	assert.Equal(t, amount.MustParseAccountID("0000000000000000000000000000000000000B01"), setup.Accounts["bob"])
	assert.Equal(t, key.Account(), setup.Accounts["carol"])
	assert.Equal(t, "carol", setup.Accounts.Name(key.Account()))

	root, ok := state.ReadAccount(setup.Ledger, alice)
	require.True(t, ok)
	assert.Equal(t, "500", root.Balance.Value())
	assert.True(t, root.Has(state.DefaultDivvy))

	gwRoot, ok := state.ReadAccount(setup.Ledger, gw)
	require.True(t, ok)
	assert.True(t, gwRoot.Has(state.RequireAuth))
	assert.Equal(t, "1.002", setup.Ledger.TransferRate(gw).Amount().Value())

	line, ok := state.ReadLine(setup.Ledger, alice, gw, "USD")
	require.True(t, ok)
	assert.Equal(t, "7", line.BalanceFor(alice).Value())
	assert.Equal(t, "100", line.LimitOf(alice).Value())
	assert.True(t, line.NoDivvy(alice))
	assert.False(t, line.NoDivvy(gw))
	assert.True(t, line.Authorized(gw))
	assert.False(t, line.Authorized(alice))

	key3, err := setup.OfferKey("alice:3")
	require.NoError(t, err)
	_, ok = state.ReadOffer(setup.Ledger, key3)
	assert.True(t, ok)
}

func TestRequest(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "cross_currency.json"))
	require.NoError(t, err)
	setup, err := Build(s)
	require.NoError(t, err)

	req, err := setup.Request()
	require.NoError(t, err)
	gw := setup.Accounts["gw"]
	assert.Equal(t, setup.Accounts["alice"], req.Source)
	assert.Equal(t, amount.NewIssue("EUR", gw), req.Amount.Issue())
	require.NotNil(t, req.SendMax)
	assert.Equal(t, setup.Accounts["alice"], req.SendMax.Issuer())
	assert.Equal(t, paths.PathSet{{paths.BookElement("EUR", gw)}}, req.Paths)
	assert.True(t, req.DefaultPathsAllowed)
	assert.True(t, req.DeleteUnfundedOffers)
	assert.True(t, req.IsLedgerOpen)

	_, _, _, err = setup.Cross()
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestInvalidScenarios(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown field", `{"name":"x","accounts":[{"name":"a"}],"payment":{},"expect":{"result":"tesSUCCESS"},"extra":1}`},
		{"no accounts", `{"name":"x","payment":{},"expect":{"result":"tesSUCCESS"}}`},
		{"duplicate account", `{"accounts":[{"name":"a"},{"name":"a"}],"payment":{},"expect":{"result":"tesSUCCESS"}}`},
		{"nothing to run", `{"accounts":[{"name":"a"}],"expect":{"result":"tesSUCCESS"}}`},
		{"both runs", `{"accounts":[{"name":"a"}],"payment":{},"cross":{},"expect":{"result":"tesSUCCESS"}}`},
		{"no result", `{"accounts":[{"name":"a"}],"payment":{},"expect":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestBuildRejects(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Accounts: []AccountSpec{{Name: "alice"}, {Name: "gw"}},
			Payment:  &PaymentSpec{Source: "alice", Destination: "gw", Amount: "1"},
			Expect:   Expect{Result: "tesSUCCESS"},
		}
	}
	tests := []struct {
		name   string
		mutate func(s *Scenario)
	}{
		{"account flag", func(s *Scenario) { s.Accounts[0].Flags = []string{"sparkly"} }},
		{"line flag", func(s *Scenario) {
			s.Lines = []LineSpec{{Holder: "alice", Issuer: "gw", Currency: "USD", Flags: []string{"sparkly"}}}
		}},
		{"line to self", func(s *Scenario) {
			s.Lines = []LineSpec{{Holder: "alice", Issuer: "alice", Currency: "USD"}}
		}},
		{"unknown issuer", func(s *Scenario) {
			s.Offers = []OfferSpec{{Owner: "alice", Sequence: 1, TakerPays: "1", TakerGets: "1/USD/nobody"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			_, err := Build(s)
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}

	t.Run("bad public key", func(t *testing.T) {
		s := base()
		s.Accounts[1].PublicKey = "02ff"
		_, err := Build(s)
		assert.ErrorIs(t, err, crypto.ErrInvalidPublicKey)
	})
}

func TestEncodeDecode(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "cross_offer.json"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	back, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, s, back)
}
