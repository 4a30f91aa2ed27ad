package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/chain"
	"github.com/ligun0805/multisender/internal/gateway"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
)

const (
	keyOne    = "0x0000000000000000000000000000000000000000000000000000000000000001"
	addrOne   = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	keyTwo    = "0000000000000000000000000000000000000000000000000000000000000002"
	recipient = "0xCC00000000000000000000000000000000000003"
)

type fakeChain struct {
	mu       sync.Mutex
	addrs    []common.Address
	sendKeys []chain.Key
	pct      int
	to       common.Address
	net      network.Config
}

func (f *fakeChain) Balances(_ context.Context, net network.Config, addrs []common.Address) []balance.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs, f.net = addrs, net
	out := make([]balance.Entry, len(addrs))
	for i, a := range addrs {
		out[i] = balance.Entry{Address: a.Hex(), BalanceFormatted: "1.000000"}
	}
	return out
}

func (f *fakeChain) Send(_ context.Context, net network.Config, keys []chain.Key, pct int, to common.Address) []transfer.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendKeys, f.pct, f.to, f.net = keys, pct, to, net
	out := make([]transfer.Result, len(keys))
	for i, k := range keys {
		out[i] = transfer.Result{Wallet: k.Address.Hex(), Status: transfer.StatusSuccess, Amount: "0.5", TxHash: "0xabc"}
	}
	return out
}

func newTestServer(t *testing.T) (*Server, *fakeChain, *gateway.Client) {
	t.Helper()
	fc := &fakeChain{}
	s := New(Config{}, fc, nil)
	ts := httptest.NewServer(s.Echo)
	t.Cleanup(ts.Close)
	gw, err := gateway.NewClient(ts.URL, 5*time.Second)
	require.NoError(t, err)
	return s, fc, gw
}

func keyFile() []byte {
	return []byte(keyOne + "\n\n  " + keyTwo + "  \nbogus\n")
}

func TestWorkflowThroughGateway(t *testing.T) {
	s, fc, gw := newTestServer(t)
	ctx := context.Background()
	sepolia, _ := network.Predefined("sepolia")

	ws, err := gw.ImportKeys(ctx, "keys.txt", keyFile())
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, addrOne, ws[0].Address)
	assert.Equal(t, 1, s.Sessions.Len())

	entries, err := gw.GetBalances(ctx, sepolia)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1.000000", entries[0].BalanceFormatted)
	assert.Equal(t, sepolia, fc.net)

	results, err := gw.SendTransactions(ctx, sepolia, 75, recipient)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 75, fc.pct)
	assert.Equal(t, common.HexToAddress(recipient), fc.to)
	assert.Equal(t, addrOne, fc.sendKeys[0].Address.Hex())

	require.NoError(t, gw.ClearSession(ctx))
	assert.Equal(t, 0, s.Sessions.Len())

	_, err = gw.GetBalances(ctx, sepolia)
	var app *gateway.ApplicationError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "No wallets imported", app.Message)
	assert.Equal(t, http.StatusBadRequest, app.Status)
}

func TestImportRejectsBadFiles(t *testing.T) {
	_, _, gw := newTestServer(t)
	_, err := gw.ImportKeys(context.Background(), "keys.txt", []byte("nope\n\n"))
	var app *gateway.ApplicationError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "No valid private keys found in file", app.Message)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err = gw.ImportKeys(context.Background(), "keys.txt", png)
	require.ErrorAs(t, err, &app)
	assert.Equal(t, http.StatusUnsupportedMediaType, app.Status)
	assert.Equal(t, "File must be plain text", app.Message)
}

func TestImportRequiresFileField(t *testing.T) {
	s, _, _ := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import_keys", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "No file uploaded", env.Error)
}

func TestSendValidation(t *testing.T) {
	_, fc, gw := newTestServer(t)
	ctx := context.Background()
	sepolia, _ := network.Predefined("sepolia")
	_, err := gw.ImportKeys(ctx, "keys.txt", keyFile())
	require.NoError(t, err)

	cases := []struct {
		name string
		net  network.Config
		pct  int
		to   string
		want string
	}{
		{"missing recipient", sepolia, 50, "", "Missing required parameters"},
		{"missing percentage", sepolia, 0, recipient, "Missing required parameters"},
		{"bad percentage", sepolia, 60, recipient, "Invalid percentage"},
		{"bad recipient", sepolia, 50, "0x1234", "Invalid recipient address"},
		{"bad network", network.Config{Name: "x"}, 50, recipient, `network "x": rpc_url is empty`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gw.SendTransactions(ctx, tc.net, tc.pct, tc.to)
			var app *gateway.ApplicationError
			require.ErrorAs(t, err, &app)
			assert.Equal(t, tc.want, app.Message)
		})
	}
	assert.Nil(t, fc.sendKeys)
}

func TestBalancesRequireNetwork(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/get_balances", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Network configuration is required")
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _, gw := newTestServer(t)
	ctx := context.Background()
	_, err := gw.ImportKeys(ctx, "keys.txt", keyFile())
	require.NoError(t, err)

	other, err := gateway.NewClient(gw.BaseURL(), time.Second)
	require.NoError(t, err)
	sepolia, _ := network.Predefined("sepolia")
	_, err = other.GetBalances(ctx, sepolia)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Sessions.Len())
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestNetworks(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/networks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]network.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 4)
	assert.Equal(t, int64(41454), out["monad"].ChainID)
}

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ss := NewSessions(time.Hour)
	ss.now = func() time.Time { return now }
	k, err := chain.DeriveKey(keyOne)
	require.NoError(t, err)

	ss.Put("a", []chain.Key{k})
	now = now.Add(30 * time.Minute)
	assert.Len(t, ss.Keys("a"), 1)
	now = now.Add(45 * time.Minute)
	assert.Len(t, ss.Keys("a"), 1)
	now = now.Add(2 * time.Hour)
	assert.Empty(t, ss.Keys("a"))
	assert.Equal(t, 0, ss.Len())
}
