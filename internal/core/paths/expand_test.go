package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/core/ter"
)

func TestExpand(t *testing.T) {
	l, _ := eurBook(t)
	trust(t, l, bob, usd, "100", "0")
	view := state.NewSandbox(l)

	type hop struct {
		kind    NodeKind
		account amount.AccountID
		issue   amount.Issue
	}

	tests := []struct {
		name   string
		maxReq amount.Amount
		outReq amount.Amount
		path   Path
		want   []hop
	}{
		{
			name:   "same currency through the issuer",
			maxReq: val(t, usd, "10").WithIssuer(alice),
			outReq: val(t, usd, "10"),
			want: []hop{
				{AccountNode, alice, amount.NewIssue("USD", alice)},
				{AccountNode, gw, usd},
				{AccountNode, bob, amount.NewIssue("USD", bob)},
			},
		},
		{
			name:   "book implied by the currency change",
			maxReq: val(t, usd, "15"),
			outReq: val(t, eur, "10"),
			want: []hop{
				{AccountNode, alice, amount.NewIssue("USD", alice)},
				{AccountNode, gw, usd},
				{BookNode, amount.XDVAccount, eur},
				{AccountNode, gw, eur},
				{AccountNode, bob, amount.NewIssue("EUR", bob)},
			},
		},
		{
			name:   "explicit book",
			maxReq: val(t, usd, "15"),
			outReq: val(t, eur, "10"),
			path:   Path{BookElement("EUR", gw)},
			want: []hop{
				{AccountNode, alice, amount.NewIssue("USD", alice)},
				{AccountNode, gw, usd},
				{BookNode, amount.XDVAccount, eur},
				{AccountNode, gw, eur},
				{AccountNode, bob, amount.NewIssue("EUR", bob)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newPathState(tt.maxReq, tt.outReq)
			ps.expand(view, tt.path, bob, alice)
			require.Equal(t, ter.TesSUCCESS, ps.Status(), "nodes: %s", ps)
			require.Len(t, ps.Nodes, len(tt.want))
			for i, w := range tt.want {
				n := ps.Nodes[i]
				assert.Equal(t, w.kind, n.Kind, "node %d", i)
				assert.Equal(t, w.account, n.Account, "node %d", i)
				assert.Equal(t, w.issue, n.Issue, "node %d", i)
			}
			book, ok := ps.Nodes[len(ps.Nodes)-1].Book()
			assert.False(t, ok, "last node is an account: %v", book)
		})
	}
}

func TestExpandRejects(t *testing.T) {
	l := newLedger(t)
	trust(t, l, alice, usd, "100", "50")
	trust(t, l, bob, usd, "100", "0")
	trust(t, l, carol, usd, "100", "5")
	view := state.NewSandbox(l)

	tests := []struct {
		name string
		path Path
		want ter.Result
	}{
		{name: "unknown type bits", path: Path{{Type: 0x80, Account: gw}}, want: ter.TemBAD_PATH},
		{name: "native book with an issuer", path: Path{{Type: TypeCurrency | TypeIssuer, Currency: amount.XDV, Issuer: gw}}, want: ter.TemBAD_PATH},
		{name: "issuer visited twice", path: Path{AccountElement(gw), AccountElement(carol), AccountElement(gw)}, want: ter.TemBAD_PATH_LOOP},
		{name: "account without a line", path: Path{AccountElement(dave)}, want: ter.TerNO_LINE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newPathState(val(t, usd, "10").WithIssuer(alice), val(t, usd, "10"))
			ps.expand(view, tt.path, bob, alice)
			assert.Equal(t, tt.want, ps.Status())
			assert.True(t, ps.Quality().IsZero())
		})
	}
}
