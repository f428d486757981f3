package style

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"

	"github.com/harborchat/harbor-client/internal/fault"
)

const (
	ColorLightGrey = lipgloss.Color("245")
	ColorCyan      = lipgloss.Color("63")
	ColorBrightRed = lipgloss.Color("196")
	ColorFuscia    = lipgloss.Color("170")
	ColorDarkGrey  = lipgloss.Color("241")
	ColorGrey2     = lipgloss.Color("235")
	ColorGrey3     = lipgloss.Color("236")
	ColorAmber     = lipgloss.Color("214")
	ColorGreen     = lipgloss.Color("2")
)

const Background1 = "☖"

// Styles
var (
	AppStyle = lipgloss.NewStyle().Padding(1, 2)

	// Banner styles
	HotkeyStyle = lipgloss.NewStyle().
			Foreground(ColorAmber).
			Bold(true)

	// Styling for the main chat screen title.
	ChatTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFuscia)

	SubTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 0, 1).
			Foreground(ColorFuscia)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Height(2).
			Padding(0, 1)

	BlockedUserStyle = lipgloss.NewStyle().
				Foreground(ColorDarkGrey).
				Strikethrough(true)

	OfflineUserStyle = lipgloss.NewStyle().
				Faint(true)

	UsernameStyle = lipgloss.NewStyle().Bold(true)

	StarMarkerStyle = lipgloss.NewStyle().
			Foreground(ColorAmber)

	PinMarkerStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	ReportedStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGrey).
			Italic(true)

	SubScreenStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorCyan). // Cyan border
			Background(ColorGrey2).      // Dark gray background
			Padding(1, 1)

	SidebarWidgetStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorCyan).
				Padding(0, 1).
				Width(25)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFuscia)
)

// Severity styling for notifications and ledger entries.
var severityStyles = map[fault.Severity]lipgloss.Style{
	fault.SeverityCritical: lipgloss.NewStyle().Foreground(ColorBrightRed).Bold(true),
	fault.SeverityError:    lipgloss.NewStyle().Foreground(ColorBrightRed),
	fault.SeverityWarning:  lipgloss.NewStyle().Foreground(ColorAmber),
	fault.SeverityInfo:     lipgloss.NewStyle().Foreground(ColorGreen),
}

// NotificationStyle returns the status line style for a given severity.
func NotificationStyle(sev fault.Severity) lipgloss.Style {
	if s, ok := severityStyles[sev]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(ColorLightGrey)
}

// SeverityBadge renders a compact colored marker for a severity.
func SeverityBadge(sev fault.Severity) string {
	badge := map[fault.Severity]string{
		fault.SeverityCritical: "[CRIT]",
		fault.SeverityError:    "[ERR]",
		fault.SeverityWarning:  "[WARN]",
		fault.SeverityInfo:     "[INFO]",
	}[sev]
	if badge == "" {
		badge = "[?]"
	}
	return NotificationStyle(sev).Render(badge)
}

var Subtle = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

var DialogBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#874BFD")).
	Padding(1, 0).
	BorderTop(true).
	BorderLeft(true).
	BorderRight(true).
	BorderBottom(true)

var Blends = gamut.Blends(lipgloss.Color("#F25D94"), lipgloss.Color("#EDFF82"), 50)

func Rainbow(base lipgloss.Style, s string, colors []color.Color) string {
	var str string
	for i, ss := range s {
		c, _ := colorful.MakeColor(colors[i%len(colors)])
		str += base.Foreground(lipgloss.Color(c.Hex())).Render(string(ss))
	}
	return str
}

func RenderSubscreen(w, h int, title, content string) string {
	return lipgloss.Place(
		w,
		h,
		lipgloss.Center,
		lipgloss.Center,
		SubScreenStyle.Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				TitleStyle.Render(title),
				content,
			),
		),
		lipgloss.WithWhitespaceChars(Background1),
		lipgloss.WithWhitespaceForeground(Subtle),
	)

}
