package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3sale/internal/contract"
	"github.com/Mohsinsiddi/w3sale/internal/units"
	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

// Confirm prompts the user with a yes/no question on stdin. Returns true for yes.
func Confirm(prompt string) bool {
	return confirm(bufio.NewReader(os.Stdin), os.Stdout, StyleWarning.Render(prompt))
}

// ConfirmDanger is like Confirm but styled with the error color (for destructive actions).
func ConfirmDanger(prompt string) bool {
	return confirm(bufio.NewReader(os.Stdin), os.Stdout, StyleError.Render("⚠ "+prompt))
}

func confirm(in *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, _ := in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Prompter asks for wallet approvals on a terminal. With AutoApprove set
// (the --yes flag) it prints the request and approves without reading.
type Prompter struct {
	AutoApprove bool
	Symbol      string // native currency symbol

	mu       sync.Mutex
	in       *bufio.Reader
	out      io.Writer
	delegate func(wallet.TxSummary) bool
}

var _ wallet.Prompter = (*Prompter)(nil)

// NewPrompter returns a prompter reading in and writing to out. nil means
// stdin and stderr.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{Symbol: "ETH", in: bufio.NewReader(in), out: out}
}

// Delegate hands later transaction approvals to fn and stops writing to the
// terminal. The dashboard uses it since the TUI owns the screen. Connection
// requests are declined while delegated unless AutoApprove is set.
func (p *Prompter) Delegate(fn func(wallet.TxSummary) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = fn
	p.out = io.Discard
}

// ApproveConnection implements wallet.Prompter.
func (p *Prompter) ApproveConnection(origin string, account common.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delegate != nil && !p.AutoApprove {
		return false
	}
	fmt.Fprintln(p.out, KeyValueBlock("Connection request", [][2]string{
		{"Origin", origin},
		{"Account", account.Hex()},
	}))
	return p.ask("Connect this account?")
}

// ApproveTransaction implements wallet.Prompter.
func (p *Prompter) ApproveTransaction(tx wallet.TxSummary) bool {
	p.mu.Lock()
	if fn := p.delegate; fn != nil && !p.AutoApprove {
		p.mu.Unlock()
		return fn(tx)
	}
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, TxRequestBlock(tx, p.Symbol))
	return p.ask("Sign and send?")
}

// TxRequestBlock renders a transaction awaiting signature.
func TxRequestBlock(tx wallet.TxSummary, symbol string) string {
	value := "0"
	if tx.Value != nil {
		value = units.FormatNative(tx.Value)
	}
	maxFee := "?"
	if tx.MaxFee != nil {
		maxFee = units.FormatNative(tx.MaxFee)
	}
	return KeyValueBlock("Transaction request", [][2]string{
		{"Chain", fmt.Sprintf("%d", tx.ChainID)},
		{"From", tx.From.Hex()},
		{"To", tx.To.Hex()},
		{"Call", contract.Describe(tx.Data)},
		{"Value", value + " " + symbol},
		{"Gas limit", fmt.Sprintf("%d", tx.Gas)},
		{"Max fee", maxFee + " " + symbol},
	})
}

func (p *Prompter) ask(q string) bool {
	if p.AutoApprove {
		fmt.Fprintln(p.out, Meta(q+" yes (--yes)"))
		return true
	}
	return confirm(p.in, p.out, StyleWarning.Render(q))
}
