package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3sale/internal/ens"
	"github.com/Mohsinsiddi/w3sale/internal/price"
	"github.com/Mohsinsiddi/w3sale/internal/ui"
	"github.com/Mohsinsiddi/w3sale/internal/units"
	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

var statusFiat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sale state and the connected account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		spin := ui.NewSpinner("Reading sale state...").Start()
		addr, connected := s.flow.Restore(ctx)
		snap := s.flow.FetchSaleState(ctx)
		balance := "0"
		if connected {
			balance = s.flow.GetBalance(ctx, addr)
		}
		spin.Stop()

		sc := s.flow.Config()
		st := s.flow.Status()
		account := ui.Meta("not connected (run: w3sale connect)")
		if connected {
			account = ui.Addr(addr.Hex())
		}
		pairs := [][2]string{
			{"State", ui.StateBadge(st.State)},
			{"Wallet", s.wallet.Name},
			{"Account", account},
			{"Sale", ui.Addr(sc.SaleContract.Hex())},
			{"Token", ui.Addr(sc.TokenContract.Hex())},
			{"Price", ui.Fallback(snap.Price, snap.PriceFallback) + " " + s.native()},
			{"Sold", ui.Fallback(snap.Sold, snap.SoldFallback)},
			{"Available", ui.Fallback(snap.Available, snap.AvailableFallback)},
			{"Balance", balance + " " + sc.TokenSymbol},
		}
		if connected {
			pairs = append(pairs, [2]string{"Network", ui.ChainName(s.networkName(st.Chain))})
		}
		if statusFiat != "" {
			pairs = append(pairs, [2]string{"Price (" + strings.ToUpper(statusFiat) + ")", fiatPrice(ctx, snap.Price)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Token sale", pairs))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address|name.eth]",
	Short: "Show a token balance (default: the connected account)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		owner, err := ownerArg(ctx, s, args)
		if err != nil {
			return err
		}
		bal := s.flow.GetBalance(ctx, owner)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s\n", ui.ShortAddr(owner.Hex()), ui.Val(bal), s.flow.Config().TokenSymbol)
		return nil
	},
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance [owner|name.eth]",
	Short: "Show how many tokens the sale contract may spend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		owner, err := ownerArg(ctx, s, args)
		if err != nil {
			return err
		}
		sc := s.flow.Config()
		v := s.flow.GetAllowance(ctx, owner)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s\n", ui.ShortAddr(owner.Hex()),
			ui.Val(units.ToDisplay(v, sc.TokenDecimals)), sc.TokenSymbol)
		return nil
	},
}

func fiatPrice(ctx context.Context, nativeAmount string) string {
	v, err := price.NewFetcher(statusFiat).Convert(ctx, cfg.Network, nativeAmount)
	if err != nil {
		slog.Debug("fiat price unavailable", "network", cfg.Network, "err", err)
		return ui.Meta("unavailable")
	}
	return v.String()
}

// ownerArg returns the address or ENS name argument, or the connected account.
func ownerArg(ctx context.Context, s *saleSession, args []string) (common.Address, error) {
	if len(args) == 1 {
		if ens.IsName(args[0]) {
			return ens.Resolve(ctx, s.node, args[0])
		}
		if !common.IsHexAddress(args[0]) {
			return common.Address{}, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, args[0])
		}
		return common.HexToAddress(args[0]), nil
	}
	return s.ensureConnected(ctx)
}

func init() {
	statusCmd.Flags().StringVar(&statusFiat, "fiat", "", "also quote the token price in this currency (e.g. usd)")
}
