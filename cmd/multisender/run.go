package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisender/internal/transfer"
)

func newRunCmd(a *app) *cobra.Command {
	var pctFlag string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import keys, load balances and send in one go",
		Long: `run performs the whole workflow once: import the key file, resolve the
network, load balances and send the chosen percentage of every wallet to the
recipient. The send is confirmed interactively unless --yes is given.
Flags override the matching environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Unset means max; anything set must parse.
			explicit := cmd.Flags().Changed("percent")
			if explicit {
				a.cfg.Percentage = pctFlag
			}
			pct := transfer.MaxPercentage
			if explicit || strings.TrimSpace(a.cfg.Percentage) != "" {
				p, err := parsePercent(a.cfg.Percentage)
				if err != nil {
					return err
				}
				pct = p
			}
			if err := a.start(); err != nil {
				return err
			}
			defer a.stop()
			a.printConfig()
			ctx := cmd.Context()

			if _, err := a.ctl.ImportFile(ctx, a.cfg.KeysFile); err != nil {
				return errStage
			}
			a.ctl.SelectNetwork(a.cfg.Network, a.customFields())
			snap, err := a.ctl.LoadBalances(ctx)
			if err != nil {
				return errStage
			}
			a.printBalances(snap)
			if _, _, err := a.send(ctx, a.cfg.Recipient, pct); err != nil {
				return errStage
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&a.cfg.KeysFile, "keys", "k", a.cfg.KeysFile, "newline-delimited private key .txt file (KEYS_FILE)")
	f.StringVarP(&a.cfg.Network, "network", "n", a.cfg.Network, "predefined network id or custom (NETWORK)")
	f.StringVar(&a.cfg.CustomRPCURL, "rpc-url", a.cfg.CustomRPCURL, "custom network RPC URL (CUSTOM_RPC_URL)")
	f.StringVar(&a.cfg.CustomChainID, "chain-id", a.cfg.CustomChainID, "custom network chain id (CUSTOM_CHAIN_ID)")
	f.StringVar(&a.cfg.CustomSymbol, "symbol", a.cfg.CustomSymbol, "custom network currency symbol (CUSTOM_SYMBOL)")
	f.StringVar(&a.cfg.CustomExplorer, "explorer", a.cfg.CustomExplorer, "custom network explorer base URL (CUSTOM_EXPLORER)")
	f.StringVarP(&a.cfg.Recipient, "recipient", "r", a.cfg.Recipient, "destination address (RECIPIENT)")
	f.StringVarP(&pctFlag, "percent", "p", "", "25, 50, 75 or max (PERCENTAGE, default max)")
	return cmd
}
