package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisender/internal/network"
)

const shellHelp = `commands:
  import <file.txt>                          import private keys (replaces wallets)
  network <id>                               select a predefined network
  network custom <rpc> <chain-id> <symbol> [explorer]
  balances                                   load balances for all wallets
  send <recipient> <25|50|75|max>            send from every wallet (asks first)
  results                                    show the last send results
  status                                     show the session state
  networks                                   list predefined networks
  clear                                      wipe the session (asks first)
  quit`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over the same workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.start(); err != nil {
				return err
			}
			defer a.stop()
			if a.cfg.Network != "" {
				a.ctl.SelectNetwork(a.cfg.Network, a.customFields())
			}
			fmt.Fprintln(a.out, "multisender shell, session", a.ctl.ID())
			fmt.Fprintln(a.out, `type "help" for commands`)
			for {
				line, ok := a.readLine("> ")
				if !ok {
					fmt.Fprintln(a.out)
					return nil
				}
				if quit := a.exec(cmd, line); quit {
					return nil
				}
			}
		},
	}
}

// exec runs one shell line. Workflow errors were already posted as notices,
// so they never end the shell.
func (a *app) exec(cmd *cobra.Command, line string) (quit bool) {
	ctx := cmd.Context()
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(a.out, shellHelp)
	case "import":
		// The rest of the line is the path, so it may contain spaces.
		path := strings.TrimSpace(strings.TrimSpace(line)[len(args[0]):])
		if path == "" {
			fmt.Fprintln(a.out, "usage: import <file.txt>")
			return false
		}
		if ws, err := a.ctl.ImportFile(ctx, path); err == nil {
			for i, w := range ws {
				fmt.Fprintf(a.out, "#%d %s\n", i+1, w.Address)
			}
		}
	case "network":
		a.selectNetwork(args[1:])
	case "balances":
		if snap, err := a.ctl.LoadBalances(ctx); err == nil {
			a.printBalances(snap)
		}
	case "send":
		if len(args) != 3 {
			fmt.Fprintln(a.out, "usage: send <recipient> <25|50|75|max>")
			return false
		}
		pct, err := parsePercent(args[2])
		if err != nil {
			fmt.Fprintln(a.out, err)
			return false
		}
		_, _, _ = a.send(ctx, args[1], pct)
	case "results":
		st := a.ctl.State()
		if st.Results == nil {
			fmt.Fprintln(a.out, "no transactions sent yet")
			return false
		}
		a.printResults(st.Results)
	case "status":
		a.printState(a.ctl.State())
		for _, n := range a.ctl.Notices().Active() {
			fmt.Fprintf(a.out, "  %s: %s\n", n.Level, n.Message)
		}
	case "networks":
		a.printNetworks()
	case "clear":
		_ = a.clear(ctx)
	default:
		fmt.Fprintf(a.out, "unknown command %q, try help\n", args[0])
	}
	return false
}

func (a *app) selectNetwork(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "usage: network <id> | network custom <rpc> <chain-id> <symbol> [explorer]")
		return
	}
	if !strings.EqualFold(args[0], network.Custom) {
		a.ctl.SelectNetwork(args[0], nil)
		if n, ok := network.Predefined(args[0]); ok {
			fmt.Fprintln(a.out, "network:", n.Name)
		} else {
			fmt.Fprintf(a.out, "network %q is not predefined; balances will fail until you pick one of %v\n", args[0], network.Identifiers())
		}
		return
	}
	cf := &network.CustomFields{}
	fields := []*string{&cf.RPCURL, &cf.ChainID, &cf.Symbol, &cf.Explorer}
	for i, v := range args[1:] {
		if i < len(fields) {
			*fields[i] = v
		}
	}
	a.ctl.SelectNetwork(network.Custom, cf)
	fmt.Fprintln(a.out, "network:", network.CustomName, maskSecret(cf.RPCURL))
}
