package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3sale/internal/sale"
	"github.com/Mohsinsiddi/w3sale/internal/units"
	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

// SaleSource is what the dashboard reads and drives. *sale.Flow satisfies it.
type SaleSource interface {
	Status() sale.Status
	Config() sale.Config
	Restore(ctx context.Context) (common.Address, bool)
	FetchSaleState(ctx context.Context) sale.Snapshot
	GetBalance(ctx context.Context, owner common.Address) string
	Buy(ctx context.Context, amount string) error
	Reset()
}

// DashboardOptions configures the live sale dashboard.
type DashboardOptions struct {
	Refresh     time.Duration       // periodic sale-state refresh
	Network     string              // display name
	Native      string              // native currency symbol
	TxURL       func(string) string // explorer link for a hash; nil for none
	MetricsAddr string              // shown in the footer when serving /metrics
}

// ChangeMsg carries a wallet event into the dashboard; send it with
// tea.Program.Send from a sale.Flow Watch callback.
type ChangeMsg sale.Change

type dashTickMsg time.Time
type dashSpinMsg struct{}

type refreshedMsg struct {
	status  sale.Status
	snap    sale.Snapshot
	balance string
	at      time.Time
}

type buyDoneMsg struct{ err error }

// approvalMsg is a wallet signing request waiting for the user's answer.
type approvalMsg struct {
	tx    wallet.TxSummary
	reply chan<- bool
}

// Approver returns a wallet approval function that shows each transaction in
// the dashboard and waits for y/N. Pass it to Prompter.Delegate with the
// program's Send. It declines once ctx is done.
func Approver(ctx context.Context, send func(tea.Msg)) func(wallet.TxSummary) bool {
	return func(tx wallet.TxSummary) bool {
		reply := make(chan bool, 1)
		send(approvalMsg{tx: tx, reply: reply})
		select {
		case ok := <-reply:
			return ok
		case <-ctx.Done():
			return false
		}
	}
}

type inputMode int

const (
	modeView inputMode = iota
	modeAmount
	modeApprove
)

// dashboardModel is the Bubble Tea model for the live sale dashboard.
type dashboardModel struct {
	ctx  context.Context
	src  SaleSource
	opts DashboardOptions

	status     sale.Status
	snap       sale.Snapshot
	balance    string
	loaded     bool
	lastUpdate time.Time

	mode     inputMode
	amount   string
	pending  *approvalMsg
	buying   bool
	frame    int
	flash    string
	quitting bool
}

// NewDashboard creates a Bubble Tea program for the live sale dashboard.
func NewDashboard(ctx context.Context, src SaleSource, opts DashboardOptions) *tea.Program {
	return tea.NewProgram(newDashboardModel(ctx, src, opts), tea.WithContext(ctx))
}

func newDashboardModel(ctx context.Context, src SaleSource, opts DashboardOptions) dashboardModel {
	if opts.Refresh <= 0 {
		opts.Refresh = 30 * time.Second
	}
	if opts.Native == "" {
		opts.Native = "ETH"
	}
	return dashboardModel{ctx: ctx, src: src, opts: opts, status: src.Status(), balance: "0"}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(true), dashTick(m.opts.Refresh))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case dashTickMsg:
		return m, tea.Batch(m.refreshCmd(false), dashTick(m.opts.Refresh))

	case ChangeMsg:
		// The account or chain moved under us: reconnect silently and reload.
		m.status = msg.Status
		if msg.Status.Message != "" {
			m.flash = msg.Status.Message
		}
		return m, m.refreshCmd(true)

	case refreshedMsg:
		m.status = msg.status
		m.snap = msg.snap
		m.balance = msg.balance
		m.loaded = true
		m.lastUpdate = msg.at

	case approvalMsg:
		if m.quitting {
			msg.reply <- false
			return m, nil
		}
		m.pending = &msg
		m.mode = modeApprove
		return m, nil

	case buyDoneMsg:
		m.buying = false
		m.status = m.src.Status()
		if msg.err != nil {
			m.flash = sale.Message(msg.err)
		} else {
			m.flash = ""
		}
		return m, m.refreshCmd(false)

	case dashSpinMsg:
		if m.buying {
			m.frame++
			return m, dashSpin()
		}
	}
	return m, nil
}

func (m dashboardModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := k.String()
	if key == "ctrl+c" {
		m.answer(false)
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeAmount:
		switch key {
		case "esc":
			m.mode, m.amount = modeView, ""
		case "backspace":
			if m.amount != "" {
				m.amount = m.amount[:len(m.amount)-1]
			}
		case "enter":
			if _, err := units.ParseDecimal(m.amount); err != nil {
				m.flash = sale.Message(err)
				return m, nil
			}
			m.mode = modeView
			m.buying = true
			m.flash = ""
			amount := m.amount
			m.amount = ""
			return m, tea.Batch(m.buyCmd(amount), dashSpin())
		default:
			if len(key) == 1 && strings.ContainsAny(key, "0123456789.") {
				m.amount += key
			}
		}
		return m, nil

	case modeApprove:
		m.answer(key == "y")
		return m, nil
	}

	switch key {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "r":
		return m, m.refreshCmd(false)
	case "b":
		if m.buying {
			return m, nil
		}
		if !m.status.Connected() {
			m.flash = sale.Message(sale.ErrNotConnected)
			return m, nil
		}
		if m.status.State == sale.Settled {
			m.src.Reset()
			m.status = m.src.Status()
		}
		m.mode, m.amount, m.flash = modeAmount, "", ""
	}
	return m, nil
}

// answer replies to the pending wallet request, if any, and leaves approve mode.
func (m *dashboardModel) answer(ok bool) {
	if m.pending == nil {
		return
	}
	m.pending.reply <- ok
	m.pending = nil
	m.mode = modeView
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}
	cfg := m.src.Config()
	sym := cfg.TokenSymbol

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("◆ Token Sale · "+sym) + "\n")

	wallet := [][2]string{{"Status", StateBadge(m.status.State)}}
	if m.status.Connected() {
		wallet = append(wallet,
			[2]string{"Account", ShortAddr(m.status.Account.Hex())},
			[2]string{"Balance", m.balance + " " + sym},
		)
	}
	if m.opts.Network != "" {
		wallet = append(wallet, [2]string{"Network", ChainName(m.opts.Network)})
	}
	sb.WriteString(KeyValueBlock("Wallet", wallet) + "\n")

	if !m.loaded {
		sb.WriteString(Meta("Loading sale state...") + "\n")
	} else {
		sb.WriteString(KeyValueBlock("Sale", [][2]string{
			{"Price", Fallback(m.snap.Price, m.snap.PriceFallback) + " " + m.opts.Native + " / " + sym},
			{"Sold", Fallback(m.snap.Sold, m.snap.SoldFallback) + " " + sym},
			{"Available", Fallback(m.snap.Available, m.snap.AvailableFallback) + " " + sym},
			{"Limits", limitsText(cfg)},
		}) + "\n")
	}

	switch m.mode {
	case modeAmount:
		sb.WriteString(StyleWarning.Render("Amount to buy: ") + Val(m.amount) + Meta("▌  enter to continue · esc to cancel") + "\n")
	case modeApprove:
		if m.pending != nil {
			sb.WriteString(TxRequestBlock(m.pending.tx, m.opts.Native) + "\n")
			sb.WriteString(StyleWarning.Render("Sign and send? ") + Meta("[y/N]") + "\n")
		}
	}

	if m.buying {
		sb.WriteString(StyleChain.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + "  " + buyingText(m.status) + "\n")
	}
	if line := StatusLine(m.status); line != "" && m.flash == "" {
		sb.WriteString(line + "\n")
	}
	if m.flash != "" {
		sb.WriteString(Warn(m.flash) + "\n")
	}
	if m.status.LastTx != (common.Hash{}) && m.opts.TxURL != nil {
		if url := m.opts.TxURL(m.status.LastTx.Hex()); url != "" {
			sb.WriteString(Meta("Last tx: ") + Addr(url) + "\n")
		}
	}

	footer := "b buy · r refresh · q quit"
	if !m.lastUpdate.IsZero() {
		footer = "Updated " + m.lastUpdate.Format("15:04:05") + " · " + footer
	}
	if m.opts.MetricsAddr != "" {
		footer += " · metrics on " + m.opts.MetricsAddr
	}
	sb.WriteString("\n" + Meta(footer) + "\n")
	return sb.String()
}

func buyingText(st sale.Status) string {
	if st.State == sale.Buying && st.LastTx != (common.Hash{}) {
		return "Waiting for confirmation of " + units.ShortenAddress(st.LastTx.Hex()) + "..."
	}
	return "Waiting for wallet approval..."
}

func limitsText(cfg sale.Config) string {
	lo, hi := cfg.MinPurchase, cfg.MaxPurchase
	switch {
	case (lo == "" || lo == "0") && (hi == "" || hi == "0"):
		return "none"
	case hi == "" || hi == "0":
		return "min " + lo
	case lo == "" || lo == "0":
		return "max " + hi
	}
	return lo + " to " + hi
}

// refreshCmd reloads sale state and the connected account's balance. With
// restore set it first re-checks the wallet connection without prompting.
func (m dashboardModel) refreshCmd(restore bool) tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		if restore && !src.Status().State.Writing() {
			src.Restore(ctx)
		}
		snap := src.FetchSaleState(ctx)
		st := src.Status()
		balance := "0"
		if st.Connected() {
			balance = src.GetBalance(ctx, st.Account)
		}
		return refreshedMsg{status: st, snap: snap, balance: balance, at: time.Now()}
	}
}

func (m dashboardModel) buyCmd(amount string) tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		return buyDoneMsg{err: src.Buy(ctx, amount)}
	}
}

func dashTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return dashTickMsg(t) })
}

func dashSpin() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return dashSpinMsg{} })
}
