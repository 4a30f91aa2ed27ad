// Package gateway is the boundary to the remote execution backend that derives
// keys, reads balances and signs/broadcasts transfers.
package gateway

import (
	"context"
	"fmt"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
	"github.com/ligun0805/multisender/internal/wallet"
)

// Gateway is a single request/response round trip per call: no streaming,
// no retries, no cancellation beyond what ctx offers.
type Gateway interface {
	ImportKeys(ctx context.Context, filename string, data []byte) ([]wallet.Wallet, error)
	GetBalances(ctx context.Context, net network.Config) ([]balance.Entry, error)
	SendTransactions(ctx context.Context, net network.Config, percentage int, recipient string) ([]transfer.Result, error)
	ClearSession(ctx context.Context) error
}

// ApplicationError means the backend answered but reported failure.
type ApplicationError struct {
	Op      string
	Status  int
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TransportError means the round trip itself failed: no response or an unreadable one.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Operation names, also the HTTP paths without the leading slash.
const (
	OpImportKeys       = "import_keys"
	OpGetBalances      = "get_balances"
	OpSendTransactions = "send_transactions"
	OpClearSession     = "clear_session"
)
