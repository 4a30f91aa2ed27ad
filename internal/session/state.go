package session

import (
	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/transfer"
	"github.com/ligun0805/multisender/internal/wallet"
)

// Stage is the workflow position of a session.
type Stage int

const (
	StageEmpty Stage = iota
	StageWalletsImported
	StageNetworkSelected
	StageBalancesLoaded
	StageTransactionsSent
)

func (s Stage) String() string {
	switch s {
	case StageWalletsImported:
		return "wallets-imported"
	case StageNetworkSelected:
		return "network-selected"
	case StageBalancesLoaded:
		return "balances-loaded"
	case StageTransactionsSent:
		return "transactions-sent"
	default:
		return "empty"
	}
}

// Action is what an awaiting confirmation will do once confirmed.
type Action string

const (
	ActionSend  Action = "send"
	ActionClear Action = "clear"
)

// Pending is the awaiting-confirmation sub-state.
type Pending struct {
	Action  Action
	Prompt  string
	Request *transfer.Request
}

// State is a copy of everything a session owns, for display.
type State struct {
	ID              string
	Stage           Stage
	Wallets         []wallet.Wallet
	SelectedNetwork string
	// SnapshotID is 0 when no balance snapshot is usable for the current wallets.
	SnapshotID uint64
	Balances   []balance.Entry
	Results    []transfer.Result
	Summary    transfer.Summary
}
