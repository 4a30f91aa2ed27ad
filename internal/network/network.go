// Package network turns an operator's network selection into a validated Config.
// No I/O happens here: predefined networks come from a static table and custom
// ones are built from operator-supplied fields.
package network

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Custom is the selection identifier for an operator-defined network.
const Custom = "custom"

// CustomName is the display name given to every custom network.
const CustomName = "Custom Network"

var (
	ErrNoSelection      = errors.New("select a network first")
	ErrIncompleteCustom = errors.New("fill in all required custom network fields")
	ErrUnknownNetwork   = errors.New("unknown network")
)

// Config is the network record sent to the backend on every balance and send call.
type Config struct {
	Name     string `json:"name" yaml:"name"`
	RPCURL   string `json:"rpc_url" yaml:"rpc_url"`
	ChainID  int64  `json:"chain_id" yaml:"chain_id"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Explorer string `json:"explorer" yaml:"explorer"`
}

// CustomFields are the raw operator inputs for a custom network.
// ChainID stays a string so non-numeric input can be rejected here.
type CustomFields struct {
	RPCURL   string
	ChainID  string
	Symbol   string
	Explorer string
}

var predefined = map[string]Config{
	"ethereum": {
		Name:     "Ethereum Mainnet",
		RPCURL:   "https://eth.llamarpc.com",
		ChainID:  1,
		Symbol:   "ETH",
		Explorer: "https://etherscan.io",
	},
	"sepolia": {
		Name:     "Sepolia Testnet",
		RPCURL:   "https://ethereum-sepolia-rpc.publicnode.com",
		ChainID:  11155111,
		Symbol:   "ETH",
		Explorer: "https://sepolia.etherscan.io",
	},
	"holesky": {
		Name:     "Holesky Testnet",
		RPCURL:   "https://ethereum-holesky.publicnode.com",
		ChainID:  17000,
		Symbol:   "ETH",
		Explorer: "https://holesky.etherscan.io",
	},
	"monad": {
		Name:     "Monad Testnet",
		RPCURL:   "https://testnet-rpc.monad.xyz",
		ChainID:  41454,
		Symbol:   "MON",
		Explorer: "https://testnet-explorer.monad.xyz",
	},
}

// Predefined returns the static entry for id.
func Predefined(id string) (Config, bool) {
	c, ok := predefined[strings.ToLower(strings.TrimSpace(id))]
	return c, ok
}

// Identifiers lists the predefined network identifiers in sorted order.
func Identifiers() []string {
	ids := make([]string, 0, len(predefined))
	for id := range predefined {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve validates a selection and returns its Config.
// custom is only consulted when selection is "custom"; a missing explorer
// defaults to the empty string.
func Resolve(selection string, custom *CustomFields) (Config, error) {
	sel := strings.ToLower(strings.TrimSpace(selection))
	if sel == "" {
		return Config{}, ErrNoSelection
	}
	if sel != Custom {
		c, ok := predefined[sel]
		if !ok {
			return Config{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, selection)
		}
		return c, nil
	}
	if custom == nil {
		return Config{}, ErrIncompleteCustom
	}
	rpcURL := strings.TrimSpace(custom.RPCURL)
	symbol := strings.TrimSpace(custom.Symbol)
	chainID, err := strconv.ParseInt(strings.TrimSpace(custom.ChainID), 10, 64)
	if rpcURL == "" || symbol == "" || err != nil || chainID <= 0 {
		return Config{}, ErrIncompleteCustom
	}
	return Config{
		Name:     CustomName,
		RPCURL:   rpcURL,
		ChainID:  chainID,
		Symbol:   symbol,
		Explorer: strings.TrimSpace(custom.Explorer),
	}, nil
}

// Validate checks the invariants every Config must hold before it is used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("network %q: rpc_url is empty", c.Name)
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("network %q: symbol is empty", c.Name)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("network %q: chain_id must be positive", c.Name)
	}
	return nil
}

// TxURL returns the explorer link for hash, or "" when no explorer is configured.
func (c Config) TxURL(hash string) string {
	if c.Explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer, "/") + "/tx/" + hash
}
