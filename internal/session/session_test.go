package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/gateway"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/notify"
	"github.com/ligun0805/multisender/internal/transfer"
	"github.com/ligun0805/multisender/internal/wallet"
)

const (
	addr1     = "0x1111111111111111111111111111111111111111"
	addr2     = "0x2222222222222222222222222222222222222222"
	addr3     = "0x3333333333333333333333333333333333333333"
	recipient = "0x9999999999999999999999999999999999999999"
)

type sendCall struct {
	net        network.Config
	percentage int
	recipient  string
}

type fakeGateway struct {
	mu sync.Mutex

	wallets  []wallet.Wallet
	balances []balance.Entry
	results  []transfer.Result

	importErr, balanceErr, sendErr, clearErr error

	imports, balanceCalls, clears int
	sends                         []sendCall
	lastFile                      string
	lastNet                       network.Config
}

func (f *fakeGateway) ImportKeys(_ context.Context, filename string, _ []byte) ([]wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports++
	f.lastFile = filename
	if f.importErr != nil {
		return nil, f.importErr
	}
	return append([]wallet.Wallet(nil), f.wallets...), nil
}

func (f *fakeGateway) GetBalances(_ context.Context, net network.Config) ([]balance.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	f.lastNet = net
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return append([]balance.Entry(nil), f.balances...), nil
}

func (f *fakeGateway) SendTransactions(_ context.Context, net network.Config, pct int, to string) ([]transfer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sendCall{net: net, percentage: pct, recipient: to})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return append([]transfer.Result(nil), f.results...), nil
}

func (f *fakeGateway) ClearSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.clearErr
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imports + f.balanceCalls + len(f.sends) + f.clears
}

func threeWallets() *fakeGateway {
	return &fakeGateway{
		wallets: []wallet.Wallet{{Address: addr1}, {Address: addr2}, {Address: addr3}},
		balances: []balance.Entry{
			{Address: addr1, BalanceFormatted: "1.000000"},
			{Address: addr2, BalanceFormatted: "0.500000"},
			{Address: addr3, BalanceFormatted: "0.000000"},
		},
		results: []transfer.Result{
			{Wallet: addr1, Status: transfer.StatusSuccess, Amount: "0.5", TxHash: "0xaaaa", ExplorerURL: "https://sepolia.etherscan.io/tx/0xaaaa"},
			{Wallet: addr2, Status: transfer.StatusFailed, Amount: "0", Error: "Insufficient balance for transaction + gas"},
		},
	}
}

func newController(gw gateway.Gateway) (*Controller, *[]notify.Notice) {
	var mu sync.Mutex
	var got []notify.Notice
	board := notify.NewBoard(0, func(n notify.Notice) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	return New(gw, nil, board), &got
}

func yes(string) bool { return true }
func no(string) bool  { return false }

func loaded(t *testing.T, gw *fakeGateway) (*Controller, *[]notify.Notice) {
	t.Helper()
	c, notices := newController(gw)
	ctx := context.Background()
	_, err := c.Import(ctx, "keys.txt", []byte("k1\nk2\nk3\n"))
	require.NoError(t, err)
	c.SelectNetwork("sepolia", nil)
	_, err = c.LoadBalances(ctx)
	require.NoError(t, err)
	return c, notices
}

func TestFullWorkflow(t *testing.T) {
	gw := threeWallets()
	c, notices := newController(gw)
	ctx := context.Background()
	assert.Equal(t, StageEmpty, c.Stage())

	ws, err := c.Import(ctx, "/tmp/keys.txt", []byte("k"))
	require.NoError(t, err)
	assert.Len(t, ws, 3)
	assert.Equal(t, "keys.txt", gw.lastFile)
	assert.Equal(t, StageWalletsImported, c.Stage())

	c.SelectNetwork("sepolia", nil)
	assert.Equal(t, StageNetworkSelected, c.Stage())

	snap, err := c.LoadBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, int64(11155111), gw.lastNet.ChainID)
	assert.Equal(t, StageBalancesLoaded, c.Stage())

	results, confirmed, err := c.Send(ctx, recipient, 50, yes)
	require.NoError(t, err)
	assert.True(t, confirmed)
	require.Len(t, results, 2)
	require.Len(t, gw.sends, 1)
	assert.Equal(t, "Sepolia Testnet", gw.sends[0].net.Name)
	assert.Equal(t, 50, gw.sends[0].percentage)
	assert.Equal(t, recipient, gw.sends[0].recipient)

	st := c.State()
	assert.Equal(t, StageTransactionsSent, st.Stage)
	assert.Equal(t, transfer.Summary{Total: 2, Success: 1, Failed: 1}, st.Summary)
	assert.Len(t, st.Balances, 3)

	msgs := messages(*notices)
	assert.Equal(t, []string{
		"Imported 3 wallets!",
		"Balances loaded!",
		"Transactions finished! Check the results below.",
	}, msgs)
}

func TestOperationsRequirePreconditions(t *testing.T) {
	gw := threeWallets()
	c, notices := newController(gw)
	ctx := context.Background()

	_, err := c.LoadBalances(ctx)
	assert.ErrorIs(t, err, transfer.ErrNoWallets)
	assert.Equal(t, KindValidation, Failure(err))

	_, _, err = c.Send(ctx, recipient, 50, yes)
	assert.ErrorIs(t, err, transfer.ErrNoWallets)

	_, err = c.Import(ctx, "keys.csv", nil)
	assert.ErrorIs(t, err, wallet.ErrNotTxt)

	_, err = c.Import(ctx, "keys.txt", nil)
	require.NoError(t, err)

	_, err = c.LoadBalances(ctx)
	assert.ErrorIs(t, err, network.ErrNoSelection)

	c.SelectNetwork("sepolia", nil)
	_, _, err = c.Send(ctx, recipient, 50, yes)
	assert.ErrorIs(t, err, balance.ErrNoBalances)

	assert.Equal(t, 1, gw.calls())
	assert.Equal(t, notify.Danger, (*notices)[0].Level)
}

func TestSendInputValidation(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()

	cases := []struct {
		name      string
		recipient string
		pct       int
		want      error
	}{
		{"empty recipient", "  ", 50, transfer.ErrNoRecipient},
		{"short recipient", "0x1234", 50, transfer.ErrBadRecipient},
		{"missing prefix", "9999999999999999999999999999999999999999", 50, transfer.ErrBadRecipient},
		{"bad percentage", recipient, 30, transfer.ErrBadPercentage},
		{"zero percentage", recipient, 0, transfer.ErrBadPercentage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, confirmed, err := c.Send(ctx, tc.recipient, tc.pct, yes)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, confirmed)
		})
	}
	assert.Empty(t, gw.sends)
}

func TestDeclineHasNoSideEffects(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()
	before := c.State()
	callsBefore := gw.calls()

	var prompt string
	_, confirmed, err := c.Send(ctx, recipient, 100, func(p string) bool { prompt = p; return false })
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.Contains(t, prompt, "MAXIMUM")
	assert.Contains(t, prompt, "3 wallets on Sepolia Testnet")

	confirmed, err = c.Clear(ctx, no)
	require.NoError(t, err)
	assert.False(t, confirmed)

	assert.Equal(t, before, c.State())
	assert.Equal(t, callsBefore, gw.calls())
	assert.Nil(t, c.Awaiting())
}

func TestAwaitingConfirmation(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()

	_, err := c.Confirm(ctx)
	assert.ErrorIs(t, err, ErrNotAwaiting)

	p, err := c.RequestSend(recipient, 25)
	require.NoError(t, err)
	assert.Equal(t, ActionSend, p.Action)
	require.NotNil(t, c.Awaiting())
	assert.Empty(t, gw.sends)

	results, err := c.Confirm(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Nil(t, c.Awaiting())

	p, err = c.RequestClear()
	require.NoError(t, err)
	assert.Equal(t, ClearPrompt, p.Prompt)
	c.Decline()
	assert.Nil(t, c.Awaiting())
	assert.Equal(t, 0, gw.clears)
}

func TestReimportInvalidatesSnapshot(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()

	p, err := c.RequestSend(recipient, 50)
	require.NoError(t, err)
	require.NotNil(t, p)

	gw.wallets = gw.wallets[:2]
	_, err = c.Import(ctx, "other.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, StageNetworkSelected, c.Stage())
	assert.Empty(t, c.State().Balances)

	_, err = c.Confirm(ctx)
	assert.ErrorIs(t, err, balance.ErrStaleSnapshot)
	assert.Equal(t, KindValidation, Failure(err))
	assert.Empty(t, gw.sends)

	_, _, err = c.Send(ctx, recipient, 50, yes)
	assert.ErrorIs(t, err, balance.ErrStaleSnapshot)
}

func TestReimportSameWalletsKeepsSnapshot(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	snapID := c.State().SnapshotID

	_, err := c.Import(context.Background(), "keys.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, StageBalancesLoaded, c.Stage())
	assert.Equal(t, snapID, c.State().SnapshotID)
}

func TestNewSnapshotLeavesTransactionsSent(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()
	_, _, err := c.Send(ctx, recipient, 50, yes)
	require.NoError(t, err)
	assert.Equal(t, StageTransactionsSent, c.Stage())

	_, err = c.LoadBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageBalancesLoaded, c.Stage())
}

func TestResultsReplacedWholesale(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()
	_, _, err := c.Send(ctx, recipient, 50, yes)
	require.NoError(t, err)

	gw.results = []transfer.Result{{Wallet: addr3, Status: transfer.StatusFailed, Amount: "0", Error: "Insufficient balance"}}
	_, _, err = c.Send(ctx, recipient, 75, yes)
	require.NoError(t, err)

	st := c.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, addr3, st.Results[0].Wallet)
	assert.Equal(t, transfer.Summary{Total: 1, Failed: 1}, st.Summary)
}

func TestClearIsIdempotent(t *testing.T) {
	gw := threeWallets()
	c, notices := loaded(t, gw)
	ctx := context.Background()

	confirmed, err := c.Clear(ctx, yes)
	require.NoError(t, err)
	assert.True(t, confirmed)
	first := c.State()
	assert.Equal(t, StageEmpty, first.Stage)
	assert.Empty(t, first.Wallets)
	assert.Empty(t, first.SelectedNetwork)

	_, err = c.Clear(ctx, yes)
	require.NoError(t, err)
	assert.Equal(t, first, c.State())
	assert.Equal(t, 2, gw.clears)
	assert.Equal(t, "Session cleared!", (*notices)[len(*notices)-1].Message)
}

func TestClearFailureKeepsState(t *testing.T) {
	gw := threeWallets()
	c, notices := loaded(t, gw)
	gw.clearErr = &gateway.TransportError{Op: gateway.OpClearSession, Err: errors.New("refused")}

	confirmed, err := c.Clear(context.Background(), yes)
	assert.True(t, confirmed)
	assert.Equal(t, KindTransport, Failure(err))
	assert.Equal(t, StageBalancesLoaded, c.Stage())
	assert.Equal(t, "Error clearing session.", (*notices)[len(*notices)-1].Message)
}

func TestBackendFailureNotices(t *testing.T) {
	gw := threeWallets()
	c, notices := newController(gw)
	ctx := context.Background()

	gw.importErr = &gateway.ApplicationError{Op: gateway.OpImportKeys, Status: 400, Message: "No valid private keys found"}
	_, err := c.Import(ctx, "keys.txt", nil)
	assert.Equal(t, KindApplication, Failure(err))
	assert.Equal(t, StageEmpty, c.Stage())
	last := (*notices)[len(*notices)-1]
	assert.Equal(t, notify.Danger, last.Level)
	assert.Equal(t, "No valid private keys found", last.Message)

	gw.importErr = nil
	_, err = c.Import(ctx, "keys.txt", nil)
	require.NoError(t, err)
	c.SelectNetwork("sepolia", nil)

	gw.balanceErr = &gateway.ApplicationError{Op: gateway.OpGetBalances, Status: 500}
	_, err = c.LoadBalances(ctx)
	assert.Equal(t, KindApplication, Failure(err))
	assert.Equal(t, "Failed to load balances.", (*notices)[len(*notices)-1].Message)

	gw.balanceErr = &gateway.TransportError{Op: gateway.OpGetBalances, Err: errors.New("connection refused")}
	_, err = c.LoadBalances(ctx)
	assert.Equal(t, KindTransport, Failure(err))
	assert.Equal(t, "Network error while loading balances.", (*notices)[len(*notices)-1].Message)
	assert.Equal(t, StageNetworkSelected, c.Stage())
}

func TestBalancesMustCoverWallets(t *testing.T) {
	gw := threeWallets()
	gw.balances = []balance.Entry{{Address: "0x4444444444444444444444444444444444444444", BalanceFormatted: "9.000000"}}
	c, notices := newController(gw)
	ctx := context.Background()
	_, err := c.Import(ctx, "keys.txt", nil)
	require.NoError(t, err)
	c.SelectNetwork("sepolia", nil)

	_, err = c.LoadBalances(ctx)
	assert.ErrorIs(t, err, balance.ErrMismatch)
	assert.Equal(t, KindTransport, Failure(err))
	assert.Equal(t, "Network error while loading balances.", (*notices)[len(*notices)-1].Message)
	assert.Equal(t, StageNetworkSelected, c.Stage())
	assert.Empty(t, c.State().Balances)

	_, err = c.RequestSend(recipient, 50)
	assert.ErrorIs(t, err, balance.ErrNoBalances)
	assert.Nil(t, c.Awaiting())

	gw.balances = gw.balances[:0]
	for _, a := range []string{addr1, addr2} {
		gw.balances = append(gw.balances, balance.Entry{Address: a, BalanceFormatted: "1.000000"})
	}
	_, err = c.LoadBalances(ctx)
	assert.ErrorIs(t, err, balance.ErrMismatch)
}

func TestSendFailureKeepsPreviousResults(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()
	_, _, err := c.Send(ctx, recipient, 50, yes)
	require.NoError(t, err)

	gw.sendErr = &gateway.ApplicationError{Op: gateway.OpSendTransactions, Status: 400, Message: "Invalid recipient address"}
	_, confirmed, err := c.Send(ctx, recipient, 50, yes)
	assert.True(t, confirmed)
	assert.Equal(t, KindApplication, Failure(err))
	assert.Len(t, c.State().Results, 2)
}

func TestCustomNetwork(t *testing.T) {
	gw := threeWallets()
	c, _ := newController(gw)
	ctx := context.Background()
	_, err := c.Import(ctx, "keys.txt", nil)
	require.NoError(t, err)

	c.SelectNetwork(network.Custom, &network.CustomFields{RPCURL: "https://rpc.example.org"})
	_, err = c.LoadBalances(ctx)
	assert.ErrorIs(t, err, network.ErrIncompleteCustom)
	assert.Equal(t, 1, gw.calls())

	c.SelectNetwork(network.Custom, &network.CustomFields{RPCURL: "https://rpc.example.org", ChainID: "31337", Symbol: "GO"})
	_, err = c.LoadBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), gw.lastNet.ChainID)
	assert.Equal(t, network.CustomName, gw.lastNet.Name)
}

func TestImportFile(t *testing.T) {
	gw := threeWallets()
	c, _ := newController(gw)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte("k1\n"), 0o600))
	_, err := c.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "wallets.txt", gw.lastFile)

	_, err = c.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, wallet.ErrImport)
	assert.Equal(t, KindValidation, Failure(err))
	assert.Equal(t, 1, gw.imports)
}

func TestCloseClearsBackend(t *testing.T) {
	gw := threeWallets()
	c, _ := loaded(t, gw)
	ctx := context.Background()

	require.NoError(t, c.Close(ctx))
	assert.Equal(t, 1, gw.clears)
	assert.Equal(t, StageEmpty, c.Stage())

	_, err := c.Import(ctx, "keys.txt", nil)
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, 1, gw.clears)
}

func messages(ns []notify.Notice) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}
