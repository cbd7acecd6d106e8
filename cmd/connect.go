package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3sale/internal/ui"
)

var connectForget bool

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet to the sale",
	Long: `Ask the wallet for an account and check that it is on an accepted network.

The grant is remembered, so later commands reconnect without asking.
Use --forget to revoke it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		out := cmd.OutOrStdout()

		if connectForget {
			if err := s.injected.Disconnect(); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success("Connection revoked for "+s.wallet.Name+"."))
			return nil
		}

		addr, err := s.flow.Connect(ctx)
		if err != nil {
			return err
		}
		st := s.flow.Status()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Connected %s on %s", ui.Addr(addr.Hex()), ui.ChainName(s.networkName(st.Chain)))))
		fmt.Fprintln(out, ui.Meta("rpc: "+s.nodeURL))
		return nil
	},
}

func init() {
	connectCmd.Flags().BoolVar(&connectForget, "forget", false, "revoke the saved connection")
}
