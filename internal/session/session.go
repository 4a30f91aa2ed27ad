// Package session orchestrates the multi-send workflow:
// import wallets, choose a network, load balances, send.
//
// The controller validates every precondition locally, delegates the actual
// work to a gateway.Gateway and keeps the results. Send and clear do not go
// straight to the backend: they first enter an awaiting-confirmation sub-state
// that the operator resolves with Confirm or Decline.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/gateway"
	"github.com/ligun0805/multisender/internal/logging"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/notify"
	"github.com/ligun0805/multisender/internal/transfer"
	"github.com/ligun0805/multisender/internal/wallet"
)

// Confirmer answers a yes/no prompt synchronously.
type Confirmer func(prompt string) bool

// ClearPrompt is shown before a session is wiped.
const ClearPrompt = "Clear all data and start over?"

// Controller owns one operator session. The state mutex is never held across
// a backend call: overlapping calls are not queued and the last response wins.
type Controller struct {
	id      string
	gw      gateway.Gateway
	log     *logging.Logger
	notices *notify.Board

	mu        sync.Mutex
	closed    bool
	wallets   *wallet.Registry
	balances  *balance.Book
	selection string
	custom    *network.CustomFields
	results   []transfer.Result
	// snapshot the current results were sent against
	resultsSnap uint64
	pending     *Pending

	inFlight atomic.Int32
}

// New creates an empty session bound to gw. A nil logger or board gets a default.
func New(gw gateway.Gateway, log *logging.Logger, notices *notify.Board) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	if notices == nil {
		notices = notify.NewBoard(notify.DefaultTTL, nil)
	}
	id := uuid.New().String()
	return &Controller{
		id:       id,
		gw:       gw,
		log:      log.With("session", id[:8]),
		notices:  notices,
		wallets:  wallet.NewRegistry(),
		balances: balance.NewBook(),
	}
}

// ID identifies the session in logs and reports.
func (c *Controller) ID() string { return c.id }

// Notices returns the board workflow notices are posted to.
func (c *Controller) Notices() *notify.Board { return c.notices }

// InFlight reports whether a backend call is outstanding, so a UI can disable actions.
func (c *Controller) InFlight() bool { return c.inFlight.Load() > 0 }

// State returns a copy of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		ID:              c.id,
		Stage:           c.stageLocked(),
		Wallets:         c.wallets.Wallets(),
		SelectedNetwork: c.selection,
		Results:         append([]transfer.Result(nil), c.results...),
		Summary:         transfer.Summarize(c.results),
	}
	if snap, err := c.balances.Current(c.wallets.Version()); err == nil {
		st.SnapshotID = snap.ID
		st.Balances = snap.Entries()
	}
	return st
}

// Stage returns the current workflow stage.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stageLocked()
}

// stageLocked derives the stage from the owned data, so a re-import that
// changes the wallet set falls back to WalletsImported by construction.
func (c *Controller) stageLocked() Stage {
	if c.wallets.Len() == 0 {
		return StageEmpty
	}
	snap, err := c.balances.Current(c.wallets.Version())
	if err == nil {
		if c.results != nil && c.resultsSnap == snap.ID {
			return StageTransactionsSent
		}
		return StageBalancesLoaded
	}
	if c.selection != "" {
		return StageNetworkSelected
	}
	return StageWalletsImported
}

// Awaiting returns the pending confirmation, or nil.
func (c *Controller) Awaiting() *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}

// ImportFile reads a key-list file and imports it. The file is only held open
// for the duration of the read.
func (c *Controller) ImportFile(ctx context.Context, path string) ([]wallet.Wallet, error) {
	if err := wallet.CheckKeyFile(path); err != nil {
		return nil, c.fail(invalid(err), "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, c.fail(invalid(fmt.Errorf("%w: %w", wallet.ErrImport, err)), "")
	}
	return c.Import(ctx, path, data)
}

// Import replaces the session's wallets with those derived from data.
func (c *Controller) Import(ctx context.Context, filename string, data []byte) ([]wallet.Wallet, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := wallet.CheckKeyFile(filename); err != nil {
		return nil, c.fail(invalid(err), "")
	}
	c.log.Debug("importing keys", "file", filename, "bytes", len(data))

	// Staged so the live registry is untouched when the backend rejects the file.
	done := c.begin()
	ws, _, err := wallet.NewRegistry().ImportFrom(ctx, c.gw, filename, data)
	done()
	if err != nil {
		return nil, c.fail(err, "Failed to import private keys.", "Network error while importing keys.")
	}

	c.mu.Lock()
	before := c.wallets.Version()
	c.wallets.Replace(ws)
	changed := c.wallets.Version() != before
	n := c.wallets.Len()
	out := c.wallets.Wallets()
	c.mu.Unlock()

	c.log.Info("wallets imported", "count", n, "changed", changed)
	c.notices.Post(notify.Success, fmt.Sprintf("Imported %d wallets!", n))
	return out, nil
}

// SelectNetwork records the operator's network choice. It is purely local;
// validation happens when the network is used.
func (c *Controller) SelectNetwork(selection string, custom *network.CustomFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = selection
	c.custom = nil
	if custom != nil {
		cf := *custom
		c.custom = &cf
	}
	c.log.Debug("network selected", "network", selection, "stage", c.stageLocked())
}

// LoadBalances fetches a balance snapshot for the current wallets on the selected network.
func (c *Controller) LoadBalances(ctx context.Context) (*balance.Snapshot, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	n := c.wallets.Len()
	version := c.wallets.Version()
	addrs := c.wallets.Addresses()
	sel, custom := c.selection, c.custom
	c.mu.Unlock()

	if n == 0 {
		return nil, c.fail(invalid(transfer.ErrNoWallets), "")
	}
	net, err := network.Resolve(sel, custom)
	if err != nil {
		return nil, c.fail(invalid(err), "")
	}

	c.log.Debug("loading balances", "network", net.Name, "wallets", n)
	done := c.begin()
	entries, err := c.gw.GetBalances(ctx, net)
	done()
	if err != nil {
		return nil, c.fail(err, "Failed to load balances.", "Network error while loading balances.")
	}
	if err := balance.Covers(addrs, entries); err != nil {
		err = &gateway.TransportError{Op: gateway.OpGetBalances, Err: err}
		return nil, c.fail(err, "Failed to load balances.", "Network error while loading balances.")
	}

	c.mu.Lock()
	snap := c.balances.Record(version, net, entries)
	c.mu.Unlock()

	c.log.Info("balances loaded", "snapshot", snap.ID, "entries", snap.Len(), "failed", snap.FailedCount())
	c.notices.Post(notify.Success, "Balances loaded!")
	return snap, nil
}

// RequestSend validates a send and enters the awaiting-confirmation sub-state.
// Nothing is sent until Confirm.
func (c *Controller) RequestSend(recipient string, percentage int) (*Pending, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	b := transfer.Builder{Wallets: c.wallets, Balances: c.balances}
	req, err := b.Build(c.selection, c.custom, recipient, percentage)
	if err != nil {
		c.mu.Unlock()
		return nil, c.fail(invalid(err), "")
	}
	c.pending = &Pending{Action: ActionSend, Prompt: req.Prompt(), Request: &req}
	p := *c.pending
	c.mu.Unlock()

	c.log.Debug("send awaiting confirmation", "percentage", percentage, "recipient", recipient, "wallets", req.WalletCount())
	return &p, nil
}

// RequestClear enters the awaiting-confirmation sub-state for a clear.
func (c *Controller) RequestClear() (*Pending, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pending = &Pending{Action: ActionClear, Prompt: ClearPrompt}
	p := *c.pending
	c.mu.Unlock()
	return &p, nil
}

// Decline leaves the awaiting-confirmation sub-state without any side effect.
func (c *Controller) Decline() {
	c.mu.Lock()
	had := c.pending != nil
	c.pending = nil
	c.mu.Unlock()
	if had {
		c.log.Debug("confirmation declined")
	}
}

// Confirm runs the pending action. Send results are returned; a clear returns nil results.
func (c *Controller) Confirm(ctx context.Context) ([]transfer.Result, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()
	if p == nil {
		return nil, invalid(ErrNotAwaiting)
	}
	switch p.Action {
	case ActionSend:
		return c.send(ctx, *p.Request)
	case ActionClear:
		return nil, c.clear(ctx)
	default:
		return nil, invalid(fmt.Errorf("unknown action %q", p.Action))
	}
}

// Send is RequestSend followed by the confirmer's answer. confirmed is false
// when validation failed or the operator declined.
func (c *Controller) Send(ctx context.Context, recipient string, percentage int, confirm Confirmer) (results []transfer.Result, confirmed bool, err error) {
	p, err := c.RequestSend(recipient, percentage)
	if err != nil {
		return nil, false, err
	}
	if confirm == nil || !confirm(p.Prompt) {
		c.Decline()
		return nil, false, nil
	}
	results, err = c.Confirm(ctx)
	return results, true, err
}

// Clear is RequestClear followed by the confirmer's answer.
func (c *Controller) Clear(ctx context.Context, confirm Confirmer) (confirmed bool, err error) {
	p, err := c.RequestClear()
	if err != nil {
		return false, err
	}
	if confirm == nil || !confirm(p.Prompt) {
		c.Decline()
		return false, nil
	}
	_, err = c.Confirm(ctx)
	return true, err
}

func (c *Controller) send(ctx context.Context, req transfer.Request) ([]transfer.Result, error) {
	c.mu.Lock()
	snap, err := c.balances.Current(c.wallets.Version())
	if err == nil && snap.ID != req.SnapshotID() {
		err = balance.ErrStaleSnapshot
	}
	c.mu.Unlock()
	if err != nil {
		return nil, c.fail(invalid(err), "")
	}

	net := req.Network()
	c.log.Info("sending transactions", "network", net.Name, "chain_id", net.ChainID,
		"percentage", req.Percentage(), "recipient", req.Recipient(), "wallets", req.WalletCount())
	done := c.begin()
	results, err := c.gw.SendTransactions(ctx, net, req.Percentage(), req.Recipient())
	done()
	if err != nil {
		return nil, c.fail(err, "Failed to send transactions.", "Network error while sending transactions.")
	}
	if results == nil {
		results = []transfer.Result{}
	}

	c.mu.Lock()
	c.results = results
	c.resultsSnap = req.SnapshotID()
	c.mu.Unlock()

	sum := transfer.Summarize(results)
	c.log.Info("transactions finished", "total", sum.Total, "success", sum.Success, "failed", sum.Failed)
	c.notices.Post(notify.Info, "Transactions finished! Check the results below.")
	return append([]transfer.Result(nil), results...), nil
}

func (c *Controller) clear(ctx context.Context) error {
	done := c.begin()
	err := c.gw.ClearSession(ctx)
	done()
	if err != nil {
		return c.fail(err, "Error clearing session.", "Error clearing session.")
	}
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.log.Info("session cleared")
	c.notices.Post(notify.Success, "Session cleared!")
	return nil
}

func (c *Controller) resetLocked() {
	c.wallets.Reset()
	c.balances.Reset()
	c.selection = ""
	c.custom = nil
	c.results = nil
	c.resultsSnap = 0
	c.pending = nil
}

// Close tears the session down: the backend session is cleared without a
// confirmation gate and every later call fails with ErrClosed.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	hadWallets := c.wallets.Len() > 0
	c.resetLocked()
	c.mu.Unlock()

	if !hadWallets {
		return nil
	}
	if err := c.gw.ClearSession(ctx); err != nil {
		c.log.Warn("backend session not cleared on close", "err", err)
		return err
	}
	return nil
}

func (c *Controller) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Controller) begin() func() {
	c.inFlight.Add(1)
	return func() { c.inFlight.Add(-1) }
}

// fail posts the operator notice for err and returns it. Validation errors
// show their own text; backend errors show the backend message or appFallback;
// transport errors show the generic network notice.
func (c *Controller) fail(err error, appFallback string, transportMsg ...string) error {
	kind := Failure(err)
	msg := err.Error()
	switch kind {
	case KindApplication:
		var a *gateway.ApplicationError
		if errors.As(err, &a) && a.Message != "" {
			msg = a.Message
		} else if appFallback != "" {
			msg = appFallback
		}
		c.log.Warn("backend reported failure", "err", err)
	case KindTransport:
		msg = "Network error."
		if len(transportMsg) > 0 {
			msg = transportMsg[0]
		}
		c.log.Warn("backend unreachable", "err", err)
	default:
		c.log.Debug("validation failed", "err", err)
	}
	c.notices.Post(notify.Danger, msg)
	return err
}
