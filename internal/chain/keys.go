package chain

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrNoValidKeys is returned when a key list holds nothing usable.
var ErrNoValidKeys = errors.New("no valid private keys found in file")

// Key is a parsed private key and the address it controls.
type Key struct {
	Address common.Address
	priv    *ecdsa.PrivateKey
}

// String prints the address only.
func (k Key) String() string { return k.Address.Hex() }

// ParseKeyList splits a key-list file into normalised 64-char hex keys.
// Lines are trimmed, blank lines skipped and a 0x prefix is optional.
// Malformed lines are counted in skipped.
func ParseKeyList(data []byte) (keys []string, skipped int) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h := strings.TrimPrefix(strings.TrimPrefix(line, "0x"), "0X")
		if !isHex64(h) {
			skipped++
			continue
		}
		keys = append(keys, h)
	}
	return keys, skipped
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// DeriveKey parses a hex private key (with or without 0x) and derives its address.
func DeriveKey(hexKey string) (Key, error) {
	h := strings.TrimSpace(strings.TrimPrefix(hexKey, "0x"))
	if h == "" {
		return Key{}, errors.New("empty private key")
	}
	prv, err := gethcrypto.HexToECDSA(h)
	if err != nil {
		return Key{}, err
	}
	return Key{Address: gethcrypto.PubkeyToAddress(prv.PublicKey), priv: prv}, nil
}

// DeriveKeys parses data and derives every valid key. Keys that fail to derive
// are counted with the malformed lines.
func DeriveKeys(data []byte) ([]Key, int, error) {
	hexKeys, skipped := ParseKeyList(data)
	out := make([]Key, 0, len(hexKeys))
	for _, h := range hexKeys {
		k, err := DeriveKey(h)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, skipped, ErrNoValidKeys
	}
	return out, skipped, nil
}
