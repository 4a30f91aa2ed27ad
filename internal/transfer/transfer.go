// Package transfer validates operator input into a send request and models
// the per-wallet results returned by the backend.
package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/wallet"
)

// MaxPercentage is the sweep option; the backend reserves gas for it.
const MaxPercentage = 100

// Percentages are the operator-selectable options.
var Percentages = []int{25, 50, 75, MaxPercentage}

var (
	ErrNoWallets     = errors.New("import wallets first")
	ErrNoRecipient   = errors.New("enter a recipient address")
	ErrBadRecipient  = errors.New("enter a valid address (0x followed by 40 hex characters)")
	ErrBadPercentage = errors.New("choose a percentage")
)

// IsPercentage reports whether p is one of the selectable options.
func IsPercentage(p int) bool {
	for _, v := range Percentages {
		if v == p {
			return true
		}
	}
	return false
}

// PercentLabel renders p the way the operator sees it: 100 is "MAXIMUM".
func PercentLabel(p int) string {
	if p == MaxPercentage {
		return "MAXIMUM"
	}
	return fmt.Sprintf("%d%%", p)
}

// Request is an immutable, validated send request.
type Request struct {
	network     network.Config
	percentage  int
	recipient   string
	walletCount int
	snapshotID  uint64
}

func (r Request) Network() network.Config { return r.network }
func (r Request) Percentage() int         { return r.percentage }
func (r Request) Recipient() string       { return r.recipient }
func (r Request) WalletCount() int        { return r.walletCount }

// SnapshotID is the balance snapshot the request was validated against.
func (r Request) SnapshotID() uint64 { return r.snapshotID }

// Prompt describes the blast radius of the request for the confirmation gate.
func (r Request) Prompt() string {
	return fmt.Sprintf("Send %s of each wallet's balance to %s?\n\nThis affects %d wallets on %s.",
		PercentLabel(r.percentage), r.recipient, r.walletCount, r.network.Name)
}

// Builder combines the session's wallets and balances with operator input.
type Builder struct {
	Wallets  *wallet.Registry
	Balances *balance.Book
}

// Build validates the workflow preconditions and operator input, in that order,
// then resolves the network. It never talks to the backend.
func (b Builder) Build(selection string, custom *network.CustomFields, recipient string, percentage int) (Request, error) {
	if b.Wallets == nil || b.Wallets.Len() == 0 {
		return Request{}, ErrNoWallets
	}
	if b.Balances == nil {
		return Request{}, balance.ErrNoBalances
	}
	snap, err := b.Balances.Current(b.Wallets.Version())
	if err != nil {
		return Request{}, err
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Request{}, ErrNoRecipient
	}
	if !wallet.IsAddress(recipient) {
		return Request{}, ErrBadRecipient
	}
	if !IsPercentage(percentage) {
		return Request{}, ErrBadPercentage
	}
	net, err := network.Resolve(selection, custom)
	if err != nil {
		return Request{}, err
	}
	return Request{
		network:     net,
		percentage:  percentage,
		recipient:   recipient,
		walletCount: b.Wallets.Len(),
		snapshotID:  snap.ID,
	}, nil
}
