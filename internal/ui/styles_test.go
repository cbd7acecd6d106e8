package ui

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/w3sale/internal/sale"
)

func TestFormattersCarryPrefix(t *testing.T) {
	cases := map[string]struct {
		fn     func(string) string
		prefix string
	}{
		"Success": {Success, "✓"},
		"Warn":    {Warn, "⚠"},
		"Err":     {Err, "✗"},
		"Info":    {Info, "ℹ"},
		"Hint":    {Hint, "→"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			out := c.fn("message")
			assert.Contains(t, out, c.prefix)
			assert.Contains(t, out, "message")
		})
	}
}

func TestPlainFormattersKeepText(t *testing.T) {
	for name, fn := range map[string]func(string) string{
		"Addr": Addr, "Val": Val, "Meta": Meta, "ChainName": ChainName,
	} {
		assert.Contains(t, fn("test"), "test", name)
	}
}

func TestShortAddr(t *testing.T) {
	assert.Contains(t, ShortAddr("0x1234567890abcdef1234567890abcdef12345678"), "0x1234...5678")
}

func TestBanner(t *testing.T) {
	out := Banner("v0.1.0")
	assert.Contains(t, out, "w3sale")
	assert.Contains(t, out, "v0.1.0")
}

func TestFallback(t *testing.T) {
	assert.NotContains(t, Fallback("0.001", false), "default")
	assert.Contains(t, Fallback("0.001", true), "0.001")
	assert.Contains(t, Fallback("0.001", true), "(default)")
}

func TestStateBadge(t *testing.T) {
	for _, s := range []sale.State{sale.Disconnected, sale.Connected, sale.Approving, sale.Buying, sale.Settled} {
		assert.Contains(t, StateBadge(s), s.String())
	}
}

func TestStatusLine(t *testing.T) {
	assert.Empty(t, StatusLine(sale.Status{State: sale.Connected}))

	ok := StatusLine(sale.Status{State: sale.Settled, Outcome: sale.OutcomeSuccess, Message: "Purchased 5 TOKEN for 0.005."})
	assert.Contains(t, ok, "✓")
	assert.Contains(t, ok, "Purchased")

	failed := StatusLine(sale.Status{State: sale.Settled, Outcome: sale.OutcomeFailure, Message: "Transaction failed."})
	assert.Contains(t, failed, "✗")

	gone := StatusLine(sale.Status{State: sale.Disconnected, Message: "Wallet disconnected."})
	assert.Contains(t, gone, "⚠")

	info := StatusLine(sale.Status{State: sale.Connected, Account: common.Address{1}, Message: "Allowance already sufficient."})
	assert.Contains(t, info, "ℹ")
}
