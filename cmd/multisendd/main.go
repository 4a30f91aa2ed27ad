package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisender/internal/chain"
	"github.com/ligun0805/multisender/internal/config"
	"github.com/ligun0805/multisender/internal/logging"
	"github.com/ligun0805/multisender/internal/server"
)

func main() {
	config.LoadDotenv("")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.LoadServer()
	var rpcTimeoutSec int
	cmd := &cobra.Command{
		Use:          "multisendd",
		Short:        "Execution backend for multisender: key import, balances and signed transfers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("rpc-timeout") {
				cfg.RPCTimeout = time.Duration(rpcTimeoutSec) * time.Second
			}
			return serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "listen address (LISTEN_ADDR)")
	f.IntVar(&rpcTimeoutSec, "rpc-timeout", int(cfg.RPCTimeout/time.Second), "per-batch RPC timeout in seconds, 0 = none (RPC_TIMEOUT_SEC)")
	f.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "idle session lifetime (SESSION_TTL_MIN)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error (LOG_LEVEL)")
	return cmd
}

func serve(ctx context.Context, cfg config.Server) error {
	log := logging.New(&logging.Config{Level: cfg.LogLevel, Output: os.Stderr})
	svc := chain.New(chain.DialEth, cfg.RPCTimeout, log.Component("chain"))
	srv := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr,
		SessionTTL:     cfg.SessionTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, svc, log.Component("http"))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
