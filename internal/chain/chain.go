// Package chain is the backend's EVM side: balance reads and percentage
// transfers signed with the session's keys.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/logging"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
)

// DefaultTransferGas is used when gas estimation fails.
const DefaultTransferGas uint64 = 21000

// Per-wallet failure texts surfaced to the operator.
const (
	MsgNoBalance    = "Insufficient balance"
	MsgInsufficient = "Insufficient balance for transaction + gas"
)

// RPC is the subset of *ethclient.Client the service needs.
type RPC interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

// Dialer opens an RPC connection for a network.
type Dialer func(ctx context.Context, rpcURL string) (RPC, error)

// rpcHTTP is shared by every dial so keep-alive connections are reused across batches.
var rpcHTTP = &http.Client{
	Transport: &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	},
}

// DialEth dials rpcURL with go-ethereum's ethclient. HTTP endpoints go through rpcHTTP.
func DialEth(ctx context.Context, rpcURL string) (RPC, error) {
	rc, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(rpcHTTP))
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(rc), nil
}

// Service runs balance and transfer batches. Each wallet is handled concurrently;
// a wallet's failure never fails the batch.
type Service struct {
	dial    Dialer
	timeout time.Duration
	log     *logging.Logger
}

// New returns a service using dial (DialEth when nil). timeout bounds each
// batch; 0 means none.
func New(dial Dialer, timeout time.Duration, log *logging.Logger) *Service {
	if dial == nil {
		dial = DialEth
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Service{dial: dial, timeout: timeout, log: log}
}

func (s *Service) connect(ctx context.Context, net network.Config) (RPC, context.Context, context.CancelFunc, error) {
	if err := net.Validate(); err != nil {
		return nil, nil, nil, err
	}
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	cl, err := s.dial(ctx, net.RPCURL)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to connect to %s: %w", net.RPCURL, err)
	}
	return cl, ctx, cancel, nil
}

// Balances reads every address's balance on net. Entries keep the input order.
func (s *Service) Balances(ctx context.Context, net network.Config, addrs []common.Address) []balance.Entry {
	out := make([]balance.Entry, len(addrs))
	cl, ctx, cancel, err := s.connect(ctx, net)
	if err != nil {
		s.log.Warn("balance batch failed", "network", net.Name, "err", err)
		for i, a := range addrs {
			out[i] = failedEntry(a, err)
		}
		return out
	}
	defer cancel()
	defer cl.Close()

	var wg sync.WaitGroup
	for i, a := range addrs {
		wg.Add(1)
		go func(i int, a common.Address) {
			defer wg.Done()
			bal, err := cl.BalanceAt(ctx, a, nil)
			if err != nil {
				s.log.Warn("balance lookup failed", "address", a.Hex(), "err", err)
				out[i] = failedEntry(a, err)
				return
			}
			out[i] = balance.Entry{Address: a.Hex(), BalanceFormatted: FormatEther(bal)}
		}(i, a)
	}
	wg.Wait()
	return out
}

func failedEntry(a common.Address, err error) balance.Entry {
	return balance.Entry{Address: a.Hex(), BalanceFormatted: FormatEther(nil), Error: err.Error()}
}

// Send transfers percentage of each key's balance to recipient on net.
// Results keep the key order.
func (s *Service) Send(ctx context.Context, net network.Config, keys []Key, percentage int, recipient common.Address) []transfer.Result {
	out := make([]transfer.Result, len(keys))
	cl, ctx, cancel, err := s.connect(ctx, net)
	if err != nil {
		s.log.Warn("send batch failed", "network", net.Name, "err", err)
		for i, k := range keys {
			out[i] = failedResult(k.Address, err.Error())
		}
		return out
	}
	defer cancel()
	defer cl.Close()

	chainID := big.NewInt(net.ChainID)
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k Key) {
			defer wg.Done()
			out[i] = s.sendOne(ctx, cl, net, chainID, k, percentage, recipient)
		}(i, k)
	}
	wg.Wait()
	return out
}

func (s *Service) sendOne(ctx context.Context, cl RPC, net network.Config, chainID *big.Int, k Key, percentage int, to common.Address) transfer.Result {
	from := k.Address
	bal, err := cl.BalanceAt(ctx, from, nil)
	if err != nil {
		return failedResult(from, err.Error())
	}
	if bal.Sign() == 0 {
		return failedResult(from, MsgNoBalance)
	}
	nonce, err := cl.PendingNonceAt(ctx, from)
	if err != nil {
		return failedResult(from, err.Error())
	}
	gasPrice, err := cl.SuggestGasPrice(ctx)
	if err != nil {
		return failedResult(from, err.Error())
	}
	gas, err := cl.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: big.NewInt(1)})
	if err != nil {
		s.log.Debug("gas estimation failed, using default", "address", from.Hex(), "err", err)
		gas = DefaultTransferGas
	}

	amount, ok := TransferAmount(bal, gasPrice, gas, percentage)
	if !ok {
		return failedResult(from, MsgInsufficient)
	}

	tx := buildLegacyTx(nonce, &to, amount, gas, gasPrice)
	signed, err := signTx(tx, chainID, k.priv)
	if err != nil {
		return failedResult(from, err.Error())
	}
	if err := cl.SendTransaction(ctx, signed); err != nil {
		s.log.Warn("broadcast failed", "address", from.Hex(), "err", err)
		return failedResult(from, err.Error())
	}
	hash := signed.Hash().Hex()
	s.log.Info("transfer sent", "from", from.Hex(), "tx", hash, "amount", FormatEther(amount))
	return transfer.Result{
		Wallet:      from.Hex(),
		Status:      transfer.StatusSuccess,
		Amount:      FormatEther(amount),
		TxHash:      hash,
		ExplorerURL: net.TxURL(hash),
	}
}

// TransferAmount computes what to send out of bal. 100% sends everything
// minus gas; otherwise bal*pct/100. ok is false when the transfer plus gas
// does not fit the balance.
func TransferAmount(bal, gasPrice *big.Int, gas uint64, percentage int) (*big.Int, bool) {
	if bal == nil || gasPrice == nil {
		return nil, false
	}
	cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas))
	var amount *big.Int
	if percentage == transfer.MaxPercentage {
		amount = new(big.Int).Sub(bal, cost)
	} else {
		amount = new(big.Int).Mul(bal, big.NewInt(int64(percentage)))
		amount.Quo(amount, big.NewInt(100))
	}
	if amount.Sign() <= 0 || new(big.Int).Add(amount, cost).Cmp(bal) > 0 {
		return nil, false
	}
	return amount, true
}

func failedResult(from common.Address, msg string) transfer.Result {
	return transfer.Result{Wallet: from.Hex(), Status: transfer.StatusFailed, Amount: "0", Error: msg}
}

// ParseAddress accepts only 0x-prefixed 40-hex-digit addresses.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid recipient address")
	}
	return common.HexToAddress(s), nil
}
