package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
	"github.com/Mohsinsiddi/w3sale/internal/config"
	"github.com/Mohsinsiddi/w3sale/internal/monitor"
	"github.com/Mohsinsiddi/w3sale/internal/provider"
	"github.com/Mohsinsiddi/w3sale/internal/rpc"
	"github.com/Mohsinsiddi/w3sale/internal/sale"
	"github.com/Mohsinsiddi/w3sale/internal/ui"
	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

// Seams replaced in tests.
var (
	openKeystore = func(dir string) wallet.KeystoreBackend { return wallet.DefaultKeystore(dir) }
	sessionPath  = wallet.DefaultSessionPath
	dialNode     rpc.Dialer = chain.Dial
	promptIn     io.Reader  = os.Stdin
	promptOut    io.Writer  = os.Stderr
)

// saleSession is everything a sale command needs, wired from the config.
type saleSession struct {
	node     chain.Caller
	nodeURL  string
	wallet   *wallet.Wallet
	injected *wallet.Injected
	flow     *sale.Flow
	network  *chain.Network // nil when the configured network is unknown
	prompter *ui.Prompter
}

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(openKeystore(cfg.KeysDir())),
	)
}

// saleConfig converts the file config into the flow's static configuration.
func saleConfig(c *config.Config) (sale.Config, error) {
	if err := c.Validate(); err != nil {
		return sale.Config{}, err
	}
	chains := make([]provider.ChainID, len(c.AllowedChains))
	for i, id := range c.AllowedChains {
		chains[i] = provider.ChainID(id)
	}
	return sale.Config{
		SaleContract:      common.HexToAddress(c.SaleContract),
		TokenContract:     common.HexToAddress(c.TokenContract),
		TokenDecimals:     c.TokenDecimals,
		TokenSymbol:       c.TokenSymbol,
		FallbackPrice:     c.FallbackPrice,
		FallbackAvailable: c.FallbackAvailable,
		AllowedChains:     chains,
		MinPurchase:       c.MinPurchase,
		MaxPurchase:       c.MaxPurchase,
	}, nil
}

// saleOrigin names the sale in the wallet's grant file.
func saleOrigin(c *config.Config) string {
	return "sale:" + strings.ToLower(common.HexToAddress(c.SaleContract).Hex())
}

func openSaleSession(ctx context.Context) (*saleSession, error) {
	sc, err := saleConfig(cfg)
	if err != nil {
		return nil, err
	}

	name := walletFlag
	if name == "" {
		name = cfg.DefaultWallet
	}
	mgr := newWalletManager()
	w, err := mgr.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w\n  Add one with: w3sale wallet add <name> --key <private-key>", err)
	}

	node, url, err := rpc.Connect(ctx, cfg.RPCURLs, rpc.ParseAlgorithm(cfg.RPCAlgorithm), dialNode)
	if err != nil {
		return nil, err
	}

	s := &saleSession{node: node, nodeURL: url, wallet: w}
	s.prompter = ui.NewPrompter(promptIn, promptOut)
	s.prompter.AutoApprove = assumeYes
	if n, err := chain.NewRegistry().GetByName(cfg.Network); err == nil {
		s.network = n
		s.prompter.Symbol = n.NativeCurrency
	}

	s.injected = wallet.NewInjected(node, w,
		wallet.WithKeys(mgr.Keystore()),
		wallet.WithPrompter(s.prompter),
		wallet.WithSession(wallet.NewSession(sessionPath()), saleOrigin(cfg)),
	)
	gw := provider.New(s.injected)
	mon := monitor.New(gw,
		monitor.WithInterval(cfg.PollInterval()),
		monitor.WithMaxAttempts(cfg.MaxAttempts),
	)
	s.flow = sale.New(gw, mon, sc)
	return s, nil
}

func (s *saleSession) Close() {
	s.flow.Close()
	s.node.Close()
}

// ensureConnected reconnects silently when the wallet already granted the
// sale, and asks for a connection otherwise.
func (s *saleSession) ensureConnected(ctx context.Context) (common.Address, error) {
	if addr, ok := s.flow.Restore(ctx); ok {
		return addr, nil
	}
	return s.flow.Connect(ctx)
}

func (s *saleSession) native() string {
	if s.network != nil {
		return s.network.NativeCurrency
	}
	return "ETH"
}

func (s *saleSession) networkName(id provider.ChainID) string {
	return chain.NewRegistry().DisplayName(uint64(id))
}

func (s *saleSession) txURL(hash string) string {
	if s.network == nil {
		return ""
	}
	return s.network.TxURL(hash)
}

// errorLine renders err for the user; "" for a cancelled command.
func errorLine(err error) string {
	msg := sale.Message(err)
	if msg == "" {
		return ""
	}
	return ui.Err(msg)
}
