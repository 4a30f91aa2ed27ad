package chain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var weiPerEther = big.NewInt(1_000_000_000_000_000_000)

// Build a legacy (gasPrice) value transfer.
func buildLegacyTx(nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    new(big.Int).Set(value),
		Gas:      gasLimit,
		GasPrice: new(big.Int).Set(gasPrice),
	})
}

// Sign transaction with latest signer for given chain ID.
func signTx(tx *types.Transaction, chain *big.Int, prv *ecdsa.PrivateKey) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(chain)
	return types.SignTx(tx, signer, prv)
}

// FormatEther renders wei with 6 decimals; nil is zero.
func FormatEther(x *big.Int) string {
	if x == nil {
		x = new(big.Int)
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), weiPerEther)
	return r.FloatString(6)
}
