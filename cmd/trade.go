package cmd

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3sale/internal/ui"
)

var buyApprove bool

var approveCmd = &cobra.Command{
	Use:   "approve <amount>",
	Short: "Let the sale contract spend tokens from the connected account",
	Long: `Approve the sale contract for <amount> whole tokens. Nothing is sent when
the current allowance already covers the amount.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.ensureConnected(ctx); err != nil {
			return err
		}
		if err := s.flow.Approve(ctx, args[0]); err != nil {
			return err
		}
		reportOutcome(cmd.OutOrStdout(), s)
		return nil
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <amount>",
	Short: "Buy tokens, paying the current price in the native currency",
	Long: `Buy <amount> whole tokens. The cost is amount × tokenPrice, read from the
sale contract just before sending. With --approve the sale contract is first
approved for the same amount.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		out := cmd.OutOrStdout()

		if _, err := s.ensureConnected(ctx); err != nil {
			return err
		}
		if buyApprove {
			if err := s.flow.Approve(ctx, args[0]); err != nil {
				return err
			}
			reportOutcome(out, s)
		}

		// No spinner here: the wallet prompt shares the terminal.
		if err := s.flow.Buy(ctx, args[0]); err != nil {
			return err
		}
		reportOutcome(out, s)

		snap := s.flow.FetchSaleState(ctx)
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("sold %s · available %s",
			ui.Fallback(snap.Sold, snap.SoldFallback), ui.Fallback(snap.Available, snap.AvailableFallback))))
		return nil
	},
}

// reportOutcome prints the flow's last message and the explorer link of its
// last transaction.
func reportOutcome(out io.Writer, s *saleSession) {
	st := s.flow.Status()
	if st.Message != "" {
		fmt.Fprintln(out, ui.Success(st.Message))
	}
	if st.LastTx == (common.Hash{}) {
		return
	}
	if link := s.txURL(st.LastTx.Hex()); link != "" {
		fmt.Fprintln(out, ui.Hint(link))
	} else {
		fmt.Fprintln(out, ui.Meta("tx "+st.LastTx.Hex()))
	}
}

func init() {
	buyCmd.Flags().BoolVar(&buyApprove, "approve", false, "approve the sale contract for the amount first")
}
