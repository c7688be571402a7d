package paths

import (
	"fmt"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
	"github.com/LeJamon/goDivvyd/internal/core/book"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/quality"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// NodeKind tags the variants of an expanded path node.
type NodeKind uint8

const (
	// AccountNode is a hop through an account's trust lines, or native
	// balance.
	AccountNode NodeKind = iota
	// BookNode converts through an order book.
	BookNode
)

func (k NodeKind) String() string {
	switch k {
	case AccountNode:
		return "account"
	case BookNode:
		return "book"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one hop of an expanded path. Neighbors are addressed by index in
// PathState.Nodes.
//
// For an account node Issue is the currency it holds, issued by itself or
// by the explicit issuer. For a book node Issue is what the book delivers.
type Node struct {
	Kind    NodeKind
	Flags   uint8
	Account amount.AccountID
	Issue   amount.Issue

	// Amounts wanted by the next node, in the reverse pass.
	RevRedeem  amount.Amount
	RevIssue   amount.Amount
	RevDeliver amount.Amount

	// Amounts actually moved, in the forward pass.
	FwdRedeem  amount.Amount
	FwdIssue   amount.Amount
	FwdDeliver amount.Amount

	book *bookCursor
}

// bookCursor is the walking state of a book node, kept across passes of
// one round.
type bookCursor struct {
	dir *book.Directory

	// rateMax is the worst output transfer rate accepted so far; zero
	// until the first offer.
	rateMax quality.TransferRate
	ofrRate amount.Amount

	hasOffer bool
	key      keylet.Key
	entry    *state.Offer
	owner    amount.AccountID

	takerPays amount.Amount
	takerGets amount.Amount
	funds     amount.Amount

	fundsDirty   bool
	entryAdvance bool
	// tierLive is set once the current tier yielded a usable offer.
	tierLive bool
}

func newAccountNode(flags uint8, account amount.AccountID, issue amount.Issue) Node {
	line := amount.Zero(amount.NewIssue(issue.Currency, account))
	return Node{
		Kind:       AccountNode,
		Flags:      flags,
		Account:    account,
		Issue:      issue,
		RevRedeem:  line,
		RevIssue:   line,
		RevDeliver: amount.Zero(issue),
		FwdRedeem:  line,
		FwdIssue:   line,
		FwdDeliver: amount.Zero(issue),
	}
}

func newBookNode(flags uint8, in, out amount.Issue) Node {
	zero := amount.Zero(out)
	return Node{
		Kind:       BookNode,
		Flags:      flags,
		Issue:      out,
		RevRedeem:  zero,
		RevIssue:   zero,
		RevDeliver: zero,
		FwdRedeem:  zero,
		FwdIssue:   zero,
		FwdDeliver: zero,
		book:       &bookCursor{dir: book.NewDirectory(amount.Book{In: in, Out: out})},
	}
}

// IsAccount reports whether the node is an account hop.
func (n *Node) IsAccount() bool { return n.Kind == AccountNode }

// Book returns the book of a book node.
func (n *Node) Book() (amount.Book, bool) {
	if n.book == nil {
		return amount.Book{}, false
	}
	return n.book.dir.Book(), true
}

// clear zeroes the per-round amounts and rewinds the book walker.
func (n *Node) clear() {
	n.RevRedeem = n.RevRedeem.Zeroed()
	n.RevIssue = n.RevIssue.Zeroed()
	n.RevDeliver = n.RevDeliver.Zeroed()
	n.FwdDeliver = n.FwdDeliver.Zeroed()
	if n.book != nil {
		n.book.dir.Reset()
		*n.book = bookCursor{dir: n.book.dir}
	}
}

func (n *Node) String() string {
	switch n.Kind {
	case AccountNode:
		return fmt.Sprintf("account %s %s", n.Account, n.Issue)
	case BookNode:
		b, _ := n.Book()
		return fmt.Sprintf("book %s", b)
	default:
		return n.Kind.String()
	}
}
