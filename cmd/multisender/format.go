package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ligun0805/multisender/internal/balance"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/session"
	"github.com/ligun0805/multisender/internal/transfer"
)

// parsePercent accepts 25, 50%, max and friends.
func parsePercent(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "max" || s == "maximum" {
		return transfer.MaxPercentage, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil || !transfer.IsPercentage(n) {
		return 0, fmt.Errorf("percentage must be one of %v or max", transfer.Percentages)
	}
	return n, nil
}

func (a *app) printNetworks() {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCHAIN\tSYMBOL\tEXPLORER")
	for _, id := range network.Identifiers() {
		n, _ := network.Predefined(id)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", id, n.Name, n.ChainID, n.Symbol, n.Explorer)
	}
	fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", network.Custom, network.CustomName)
	tw.Flush()
}

func (a *app) printBalances(snap *balance.Snapshot) {
	if snap == nil {
		return
	}
	fmt.Fprintf(a.out, "=== BALANCES (%s) ===\n", snap.Network.Name)
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, e := range snap.Entries() {
		line := fmt.Sprintf("#%d\t%s\t%s %s", i+1, e.Address, e.BalanceFormatted, snap.Network.Symbol)
		if e.Failed() {
			line += "\t(" + e.Error + ")"
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
	if n := snap.FailedCount(); n > 0 {
		fmt.Fprintf(a.out, "%d of %d balances could not be read.\n", n, snap.Len())
	}
}

func (a *app) printResults(results []transfer.Result) {
	sum := transfer.Summarize(results)
	fmt.Fprintln(a.out, "=== RESULTS ===")
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, r := range results {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%s\n", i+1, r.Wallet, r.Status, r.Amount, r.ShortHash())
		if r.Error != "" {
			fmt.Fprintf(tw, "\t\terror: %s\n", r.Error)
		}
		if r.ExplorerURL != "" {
			fmt.Fprintf(tw, "\t\t%s\n", r.ExplorerURL)
		}
	}
	tw.Flush()
	fmt.Fprintf(a.out, "Total: %d  Success: %d  Failed: %d\n", sum.Total, sum.Success, sum.Failed)
}

func (a *app) printState(st session.State) {
	fmt.Fprintln(a.out, "=== SESSION ===")
	fmt.Fprintln(a.out, "ID       :", st.ID)
	fmt.Fprintln(a.out, "STAGE    :", st.Stage)
	fmt.Fprintln(a.out, "WALLETS  :", len(st.Wallets))
	sel := st.SelectedNetwork
	if sel == "" {
		sel = "-"
	}
	fmt.Fprintln(a.out, "NETWORK  :", sel)
	fmt.Fprintln(a.out, "BALANCES :", len(st.Balances))
	if st.Results != nil {
		fmt.Fprintf(a.out, "RESULTS  : %d (%d ok, %d failed)\n", st.Summary.Total, st.Summary.Success, st.Summary.Failed)
	}
}

func (a *app) printConfig() {
	fmt.Fprintln(a.out, "=== CONFIG (.env) ===")
	fmt.Fprintln(a.out, "BACKEND_URL   :", a.cfg.BackendURL)
	if a.cfg.Network != "" {
		fmt.Fprintln(a.out, "NETWORK       :", a.cfg.Network)
	}
	if a.cfg.CustomRPCURL != "" {
		fmt.Fprintln(a.out, "CUSTOM_RPC_URL:", maskSecret(a.cfg.CustomRPCURL))
	}
	if a.cfg.ReportDir != "" {
		fmt.Fprintln(a.out, "REPORT_DIR    :", a.cfg.ReportDir)
	}
}
