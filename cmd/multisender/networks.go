package main

import "github.com/spf13/cobra"

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the predefined networks",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			a.printNetworks()
		},
	}
}
