// Package balance keeps the most recent balance fetch of a session.
//
// A snapshot is keyed by wallet address and remembers the wallet-set version
// it was computed against, so a later re-import with a different address set
// makes it unusable instead of silently misaligned.
package balance

import (
	"errors"
	"fmt"

	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/wallet"
)

var (
	ErrNoBalances    = errors.New("load balances first")
	ErrStaleSnapshot = errors.New("wallets changed since balances were loaded; load balances again")
	ErrMismatch      = errors.New("malformed response: balances do not match the imported wallets")
)

// Entry is the balance of one wallet. Error is set when the per-wallet lookup failed;
// such entries are display-only data, not failures of the whole fetch.
type Entry struct {
	Address          string `json:"address" yaml:"address"`
	BalanceFormatted string `json:"balance_formatted" yaml:"balance_formatted"`
	Error            string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the backend could not read this wallet's balance.
func (e Entry) Failed() bool { return e.Error != "" }

// Snapshot is an immutable balance fetch result.
type Snapshot struct {
	ID            uint64
	WalletVersion uint64
	Network       network.Config

	order  []string
	byAddr map[string]Entry
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.order) }

// Get looks up the entry for addr (case-insensitive).
func (s *Snapshot) Get(addr string) (Entry, bool) {
	e, ok := s.byAddr[wallet.Key(addr)]
	return e, ok
}

// Entries returns the entries in the order the backend reported them.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byAddr[k])
	}
	return out
}

// FailedCount returns how many wallets carry a per-wallet error.
func (s *Snapshot) FailedCount() int {
	n := 0
	for _, e := range s.byAddr {
		if e.Failed() {
			n++
		}
	}
	return n
}

// ValidFor reports whether the snapshot was computed against walletVersion.
func (s *Snapshot) ValidFor(walletVersion uint64) bool {
	return s != nil && s.WalletVersion == walletVersion
}

// Covers checks that entries name exactly the wallets in addrs, compared
// case-insensitively. Repeated entries for one address are tolerated.
func Covers(addrs []string, entries []Entry) error {
	want := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		want[wallet.Key(a)] = false
	}
	for _, e := range entries {
		k := wallet.Key(e.Address)
		if _, ok := want[k]; !ok {
			return fmt.Errorf("%w: unexpected address %s", ErrMismatch, e.Address)
		}
		want[k] = true
	}
	for a, seen := range want {
		if !seen {
			return fmt.Errorf("%w: no entry for %s", ErrMismatch, a)
		}
	}
	return nil
}

// Book holds the current snapshot and hands out monotonic snapshot ids.
type Book struct {
	current *Snapshot
	seq     uint64
}

// NewBook returns an empty book.
func NewBook() *Book { return &Book{} }

// Record replaces the current snapshot with entries fetched for walletVersion on net.
// Later duplicates of an address overwrite earlier ones but keep the first position.
func (b *Book) Record(walletVersion uint64, net network.Config, entries []Entry) *Snapshot {
	b.seq++
	s := &Snapshot{
		ID:            b.seq,
		WalletVersion: walletVersion,
		Network:       net,
		order:         make([]string, 0, len(entries)),
		byAddr:        make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		k := wallet.Key(e.Address)
		if _, ok := s.byAddr[k]; !ok {
			s.order = append(s.order, k)
		}
		s.byAddr[k] = e
	}
	b.current = s
	return s
}

// Latest returns the current snapshot regardless of validity, or nil.
func (b *Book) Latest() *Snapshot { return b.current }

// Current returns the snapshot usable for walletVersion.
func (b *Book) Current(walletVersion uint64) (*Snapshot, error) {
	if b.current == nil || b.current.Len() == 0 {
		return nil, ErrNoBalances
	}
	if !b.current.ValidFor(walletVersion) {
		return nil, ErrStaleSnapshot
	}
	return b.current, nil
}

// Reset drops the current snapshot. Ids keep increasing.
func (b *Book) Reset() { b.current = nil }
