package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3sale/internal/config"
	"github.com/Mohsinsiddi/w3sale/internal/metrics"
	"github.com/Mohsinsiddi/w3sale/internal/sale"
	"github.com/Mohsinsiddi/w3sale/internal/ui"
)

var dashMetricsAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live sale dashboard",
	Long: `Show the sale state, refreshed periodically, and buy from the keyboard.

  b  buy      r  refresh      q  quit

Each purchase is shown as the wallet's transaction request, with its exact
value and fee, and sent only after y.

Account and network changes in the wallet are picked up while it runs.
With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Log lines would tear the TUI.
		if !debug {
			slog.SetDefault(newLogger(io.Discard, cfg.LogLevel, false))
		}

		s, err := openSaleSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.ensureConnected(ctx); err != nil {
			return err
		}
		if dashMetricsAddr != "" {
			srv, err := metrics.Listen(dashMetricsAddr)
			if err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			defer func() {
				stopCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
				defer stop()
				_ = srv.Stop(stopCtx)
			}()
		}

		network := ""
		if s.network != nil {
			network = s.network.DisplayName
		}
		p := ui.NewDashboard(ctx, s.flow, ui.DashboardOptions{
			Refresh:     cfg.Refresh(),
			Network:     network,
			Native:      s.native(),
			TxURL:       s.txURL,
			MetricsAddr: dashMetricsAddr,
		})
		// The wallet asks for signatures inside the dashboard.
		s.prompter.Delegate(ui.Approver(ctx, p.Send))

		unwatch := s.flow.Watch(func(c sale.Change) { p.Send(ui.ChangeMsg(c)) })
		defer unwatch()
		go s.injected.Watch(ctx, config.WalletPollEvery)

		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
}
