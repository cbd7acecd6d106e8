package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
	"github.com/Mohsinsiddi/w3sale/internal/ui"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List known networks and whether the sale accepts them",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Display", Width: 20},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 12},
			{Title: "Sale", Width: 6},
		})
		for _, n := range reg.All() {
			allowed := ""
			if slices.Contains(cfg.AllowedChains, n.ChainID) {
				allowed = ui.StyleSuccess.Render("✓")
			}
			name := n.Name
			if n.Name == cfg.Network {
				name += " *"
			}
			t.AddRow(ui.Row{
				ui.ChainName(name),
				n.DisplayName,
				fmt.Sprintf("%d", n.ChainID),
				n.NativeCurrency,
				allowed,
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta("* configured network   ✓ accepted by the sale"))
		return nil
	},
}

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage the RPC endpoints used to reach the chain",
}

var rpcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured RPC endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(cfg.RPCURLs) == 0 {
			fmt.Fprintln(out, ui.Info("No RPC endpoints configured."))
			return nil
		}
		for i, u := range cfg.RPCURLs {
			fmt.Fprintf(out, "  %s  %s\n", ui.Meta(fmt.Sprintf("%d.", i+1)), ui.Val(u))
		}
		fmt.Fprintln(out, ui.Meta("selection: "+cfg.RPCAlgorithm))
		return nil
	},
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add an RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.AddRPC(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("RPC endpoint added: "+args[0]))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove an RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("RPC endpoint removed: "+args[0]))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcListCmd, rpcAddCmd, rpcRemoveCmd)
}
