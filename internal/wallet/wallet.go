// Package wallet holds the wallets imported for the current session.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// KeyFileExt is the only key-list artifact suffix accepted for import.
const KeyFileExt = ".txt"

var (
	// ErrImport marks every import failure, local or remote.
	ErrImport = errors.New("import failed")
	ErrNoFile = fmt.Errorf("%w: choose a key file first", ErrImport)
	ErrNotTxt = fmt.Errorf("%w: choose a %s file", ErrImport, KeyFileExt)
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsAddress reports whether s is exactly 0x followed by 40 hex digits.
func IsAddress(s string) bool { return addressRe.MatchString(s) }

// Wallet is an address derived remotely from an imported private key.
type Wallet struct {
	Address string `json:"address" yaml:"address"`
}

// KeyImporter derives wallets from raw key-list bytes. The backend gateway implements it.
type KeyImporter interface {
	ImportKeys(ctx context.Context, filename string, data []byte) ([]Wallet, error)
}

// Registry is the ordered, address-unique wallet set of a session.
// Version increases every time the address sequence changes, so snapshots
// computed against an older set can be detected.
type Registry struct {
	wallets []Wallet
	version uint64
}

// NewRegistry returns an empty registry at version 0.
func NewRegistry() *Registry { return &Registry{} }

// CheckKeyFile rejects artifacts that are not recognised key-list files.
func CheckKeyFile(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrNoFile
	}
	if !strings.HasSuffix(filepath.Base(filename), KeyFileExt) {
		return ErrNotTxt
	}
	return nil
}

// ImportFrom sends the key file to imp and replaces the registry contents with
// the returned wallets, in the order returned. The registry is untouched on error.
func (r *Registry) ImportFrom(ctx context.Context, imp KeyImporter, filename string, data []byte) ([]Wallet, int, error) {
	if err := CheckKeyFile(filename); err != nil {
		return nil, 0, err
	}
	ws, err := imp.ImportKeys(ctx, filepath.Base(filename), data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	r.Replace(ws)
	return r.Wallets(), r.Len(), nil
}

// Replace swaps the registry contents wholesale. Duplicate addresses keep their
// first position; comparison is case-insensitive.
func (r *Registry) Replace(ws []Wallet) {
	seen := make(map[string]struct{}, len(ws))
	next := make([]Wallet, 0, len(ws))
	for _, w := range ws {
		k := Key(w.Address)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		next = append(next, w)
	}
	if !sameSequence(r.wallets, next) {
		r.version++
	}
	r.wallets = next
}

// Reset empties the registry. Emptying a non-empty set moves the version
// forward like any other change; resetting an empty one is a no-op.
func (r *Registry) Reset() {
	if len(r.wallets) == 0 {
		return
	}
	r.wallets = nil
	r.version++
}

// Wallets returns a copy of the wallet sequence.
func (r *Registry) Wallets() []Wallet {
	out := make([]Wallet, len(r.wallets))
	copy(out, r.wallets)
	return out
}

func (r *Registry) Len() int        { return len(r.wallets) }
func (r *Registry) Version() uint64 { return r.version }

// Addresses returns the wallet addresses in import order.
func (r *Registry) Addresses() []string {
	out := make([]string, len(r.wallets))
	for i, w := range r.wallets {
		out[i] = w.Address
	}
	return out
}

// Key normalises an address for map lookups.
func Key(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }

func sameSequence(a, b []Wallet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if Key(a[i].Address) != Key(b[i].Address) {
			return false
		}
	}
	return true
}
