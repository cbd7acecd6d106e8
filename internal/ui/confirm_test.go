package ui

import (
	"bufio"
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/w3sale/internal/contract"
	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

func TestConfirmAnswers(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		" y \n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"yep\n": false,
	}
	for in, want := range cases {
		var out bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(in)), &out, "Proceed?")
		assert.Equal(t, want, got, "input %q", in)
		assert.Contains(t, out.String(), "Proceed? [y/N]")
	}
}

func TestPrompterConnection(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y\n"), &out)
	acct := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	assert.True(t, p.ApproveConnection("sale:0xabc", acct))
	assert.Contains(t, out.String(), "sale:0xabc")
	assert.Contains(t, out.String(), acct.Hex())

	// Input exhausted: the next prompt is declined.
	assert.False(t, p.ApproveConnection("sale:0xabc", acct))
}

func TestPrompterTransactionSummary(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("n\n"), &out)
	p.Symbol = "SepoliaETH"
	data, err := contract.BuyTokens(big.NewInt(50))
	if err != nil {
		t.Fatal(err)
	}

	ok := p.ApproveTransaction(wallet.TxSummary{
		ChainID: 11155111,
		To:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:   big.NewInt(50_000_000_000_000_000),
		Data:    data,
		Gas:     90_000,
		MaxFee:  big.NewInt(180_000_000_000_000),
	})
	assert.False(t, ok)
	s := out.String()
	assert.Contains(t, s, "11155111")
	assert.Contains(t, s, "buyTokens(uint256)")
	assert.Contains(t, s, "0.05 SepoliaETH")
	assert.Contains(t, s, "90000")
	assert.Contains(t, s, "0.00018 SepoliaETH")
}

func TestPrompterAutoApprove(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out)
	p.AutoApprove = true

	assert.True(t, p.ApproveTransaction(wallet.TxSummary{}))
	assert.Contains(t, out.String(), "--yes")
	assert.Contains(t, out.String(), "transfer")
}

func TestPrompterDelegate(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y\ny\n"), &out)

	var seen []wallet.TxSummary
	p.Delegate(func(tx wallet.TxSummary) bool {
		seen = append(seen, tx)
		return false
	})

	tx := wallet.TxSummary{ChainID: 31337, Value: big.NewInt(1)}
	assert.False(t, p.ApproveTransaction(tx), "the delegate answers, not the terminal")
	assert.Equal(t, []wallet.TxSummary{tx}, seen)
	assert.False(t, p.ApproveConnection("o", common.Address{}))
	assert.Empty(t, out.String())
}

func TestPrompterDelegateRespectsAutoApprove(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	p.AutoApprove = true
	called := false
	p.Delegate(func(wallet.TxSummary) bool {
		called = true
		return false
	})
	assert.True(t, p.ApproveTransaction(wallet.TxSummary{}))
	assert.True(t, p.ApproveConnection("o", common.Address{}))
	assert.False(t, called)
}
