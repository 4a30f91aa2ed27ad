package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
	"github.com/ligun0805/multisender/internal/wallet"
)

// Client talks to the backend over its JSON HTTP surface. The backend keeps
// key material in a cookie-bound session, so the client carries a cookie jar.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient builds a client for baseURL. timeout 0 means calls never time out.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if u == "" {
		return nil, errors.New("backend url is empty")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}, nil
}

// BaseURL returns the normalised backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the common response shape: {success, error} plus op-specific fields.
type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Wallets []wallet.Wallet   `json:"wallets,omitempty"`
	Count   int               `json:"count,omitempty"`
	Balance []balance.Entry   `json:"balances,omitempty"`
	Results []transfer.Result `json:"results,omitempty"`
}

type balancesBody struct {
	Network network.Config `json:"network"`
}

type sendBody struct {
	Network          network.Config `json:"network"`
	Percentage       int            `json:"percentage"`
	RecipientAddress string         `json:"recipient_address"`
}

func (c *Client) ImportKeys(ctx context.Context, filename string, data []byte) ([]wallet.Wallet, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransportError{Op: OpImportKeys, Err: err}
	}
	if _, err := fw.Write(data); err != nil {
		return nil, &TransportError{Op: OpImportKeys, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &TransportError{Op: OpImportKeys, Err: err}
	}
	env, err := c.do(ctx, OpImportKeys, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return env.Wallets, nil
}

func (c *Client) GetBalances(ctx context.Context, net network.Config) ([]balance.Entry, error) {
	body, err := json.Marshal(balancesBody{Network: net})
	if err != nil {
		return nil, &TransportError{Op: OpGetBalances, Err: err}
	}
	env, err := c.do(ctx, OpGetBalances, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return env.Balance, nil
}

func (c *Client) SendTransactions(ctx context.Context, net network.Config, percentage int, recipient string) ([]transfer.Result, error) {
	body, err := json.Marshal(sendBody{Network: net, Percentage: percentage, RecipientAddress: recipient})
	if err != nil {
		return nil, &TransportError{Op: OpSendTransactions, Err: err}
	}
	env, err := c.do(ctx, OpSendTransactions, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// ClearSession only needs an ok HTTP status; the body is optional.
func (c *Client) ClearSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+OpClearSession, nil)
	if err != nil {
		return &TransportError{Op: OpClearSession, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: OpClearSession, Err: err}
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ApplicationError{Op: OpClearSession, Status: resp.StatusCode, Message: failureMessage(resp.StatusCode, rb)}
	}
	return nil
}

// do posts body to /op and decodes the envelope. A non-2xx status or
// success:false is an ApplicationError; an unreadable 2xx body is a TransportError.
func (c *Client) do(ctx context.Context, op, contentType string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	var env envelope
	if err := json.Unmarshal(rb, &env); err != nil {
		if !ok {
			return nil, &ApplicationError{Op: op, Status: resp.StatusCode, Message: failureMessage(resp.StatusCode, nil)}
		}
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !ok || !env.Success {
		return nil, &ApplicationError{Op: op, Status: resp.StatusCode, Message: failureMessage(resp.StatusCode, rb)}
	}
	return &env, nil
}

func failureMessage(status int, body []byte) string {
	var env envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
		return env.Error
	}
	if status >= 200 && status <= 299 {
		return "request failed"
	}
	return fmt.Sprintf("http %d", status)
}
