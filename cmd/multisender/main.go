package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisender/internal/config"
	"github.com/ligun0805/multisender/internal/gateway"
	"github.com/ligun0805/multisender/internal/logging"
	"github.com/ligun0805/multisender/internal/notify"
	"github.com/ligun0805/multisender/internal/session"
)

// errStage marks a workflow failure whose notice was already printed.
var errStage = errors.New("workflow stopped")

func main() {
	config.LoadDotenv("")
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errStage) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app is what every subcommand works with.
type app struct {
	cfg       config.Client
	log       *logging.Logger
	ctl       *session.Controller
	in        *bufio.Reader
	stdin     io.Reader
	out       io.Writer
	assumeYes bool
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{cfg: config.LoadClient(), stdin: stdin, in: bufio.NewReader(stdin), out: stdout}
	var timeoutSec int

	root := &cobra.Command{
		Use:           "multisender",
		Short:         "Sweep a percentage of many wallets' native balance to one recipient",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("timeout") {
				a.cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second
			}
			return nil
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.BackendURL, "backend", a.cfg.BackendURL, "backend base URL (BACKEND_URL)")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug|info|warn|error (LOG_LEVEL)")
	pf.IntVar(&timeoutSec, "timeout", int(a.cfg.HTTPTimeout/time.Second), "backend call timeout in seconds, 0 = none (HTTP_TIMEOUT_SEC)")
	pf.BoolVarP(&a.assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	pf.StringVar(&a.cfg.ReportDir, "report-dir", a.cfg.ReportDir, "write a YAML report of each send here (REPORT_DIR)")

	root.AddCommand(
		newRunCmd(a),
		newShellCmd(a),
		newNetworksCmd(a),
	)
	return root
}

// start builds the logger, gateway and controller once flags are parsed.
func (a *app) start() error {
	a.log = logging.New(&logging.Config{Level: a.cfg.LogLevel, Output: os.Stderr})
	gw, err := gateway.NewClient(a.cfg.BackendURL, a.cfg.HTTPTimeout)
	if err != nil {
		return err
	}
	board := notify.NewBoard(notify.DefaultTTL, a.printNotice)
	a.ctl = session.New(gw, a.log.Component("session"), board)
	a.log.Debug("session started", "id", a.ctl.ID(), "backend", gw.BaseURL())
	return nil
}

// stop tears the session down so the backend forgets the keys.
func (a *app) stop() {
	if a.ctl == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ctl.Close(ctx); err != nil {
		a.log.Warn("could not clear backend session", "err", err)
	}
}
