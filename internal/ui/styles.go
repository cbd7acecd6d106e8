package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mohsinsiddi/w3sale/internal/sale"
	"github.com/Mohsinsiddi/w3sale/internal/units"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green: settled, success
	ColorWarning   = lipgloss.Color("#FFB800") // yellow: pending, fallback values
	ColorError     = lipgloss.Color("#FF4444") // red: error, danger
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan: addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold: amounts
	ColorMeta      = lipgloss.Color("#555555") // dim gray: metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue: UI chrome
	ColorChain     = lipgloss.Color("#9B5DE5") // purple: chain names
	ColorHighlight = lipgloss.Color("#F15BB5") // pink: headers
	ColorInfo      = lipgloss.Color("#4EA8DE")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)
)

// Banner returns the w3sale header line.
func Banner(version string) string {
	return StyleChain.Render("◆ w3sale") + " " + StyleMeta.Render("token sale terminal "+version)
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral status line.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for the next command.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// ShortAddr formats an address shortened to 0x1234...5678.
func ShortAddr(a string) string { return StyleAddress.Render(units.ShortenAddress(a)) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain name.
func ChainName(c string) string { return StyleChain.Render(c) }

// Fallback marks a value that came from configuration instead of the chain.
func Fallback(v string, used bool) string {
	if !used {
		return Val(v)
	}
	return StyleWarning.Render(v) + StyleMeta.Render(" (default)")
}

// StateBadge renders the sale flow state.
func StateBadge(s sale.State) string {
	label := "● " + s.String()
	switch s {
	case sale.Disconnected:
		return StyleMeta.Render(label)
	case sale.Connected:
		return StyleSuccess.Render(label)
	case sale.Approving, sale.Buying:
		return StyleWarning.Render(label)
	default:
		return StyleChain.Render(label)
	}
}

// StatusLine renders the status message for an outcome.
func StatusLine(st sale.Status) string {
	if st.Message == "" {
		return ""
	}
	switch {
	case st.Outcome == sale.OutcomeSuccess:
		return Success(st.Message)
	case st.Outcome == sale.OutcomeFailure:
		return Err(st.Message)
	case st.State == sale.Disconnected:
		return Warn(st.Message)
	default:
		return Info(st.Message)
	}
}
