// Package server is the reference execution backend: it keeps imported keys in a
// cookie-bound session and answers the four workflow endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/chain"
	"github.com/ligun0805/multisender/internal/logging"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
)

// Chain is what the handlers need from the EVM side. *chain.Service implements it.
type Chain interface {
	Balances(ctx context.Context, net network.Config, addrs []common.Address) []balance.Entry
	Send(ctx context.Context, net network.Config, keys []chain.Key, percentage int, recipient common.Address) []transfer.Result
}

// Config holds backend settings.
type Config struct {
	ListenAddr string
	SessionTTL time.Duration
	// MaxUploadBytes caps the key-list upload.
	MaxUploadBytes int64
}

// Server keeps the dependencies shared by all handlers.
type Server struct {
	Echo     *echo.Echo
	Config   Config
	Chain    Chain
	Sessions *Sessions
	Log      *logging.Logger
}

// envelope mirrors the client's response shape.
type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Wallets []walletJSON      `json:"wallets,omitempty"`
	Count   int               `json:"count,omitempty"`
	Balance []balance.Entry   `json:"balances,omitempty"`
	Results []transfer.Result `json:"results,omitempty"`
}

type walletJSON struct {
	Address string `json:"address"`
}

// New wires routes and middleware around c.
func New(cfg Config, c Chain, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &Server{
		Echo:     e,
		Config:   cfg,
		Chain:    c,
		Sessions: NewSessions(cfg.SessionTTL),
		Log:      log,
	}
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	PostImportKeysRoute(s)
	PostGetBalancesRoute(s)
	PostSendTransactionsRoute(s)
	PostClearSessionRoute(s)
	GetNetworksRoute(s)
	return s
}

// Start serves on the configured address until Shutdown.
func (s *Server) Start() error {
	s.Log.Info("backend listening", "addr", s.Config.ListenAddr)
	if err := s.Echo.Start(s.Config.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Error: msg})
}

// errorHandler renders echo errors (404, 405, panics) in the failure envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		s.Log.Error("unhandled error", "path", c.Path(), "err", err)
	}
	_ = fail(c, status, msg)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.Log.Debug("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"took", time.Since(start).Round(time.Millisecond))
		return err
	}
}
