package tui

import (
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"

	"cc_session_mgr/internal/config"
)

// Column widths shared by delegates and headers
const (
	SessionTimeWidth     = 10
	SessionMessagesWidth = 6
	SessionTokensWidth   = 8
	ProjectCountWidth    = 8
	DayDateWidth         = 10
	DayTokensWidth       = 12
	DaySessionsWidth     = 8
	ResultTypeWidth      = 9
	ResultTimeWidth      = 10
)

// flavor is the active catppuccin palette
var flavor catppuccin.Flavor = catppuccin.Mocha

// SetTheme selects the catppuccin flavor by name; unknown names keep mocha.
func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "latte":
		flavor = catppuccin.Latte
	case "frappe":
		flavor = catppuccin.Frappe
	case "macchiato":
		flavor = catppuccin.Macchiato
	default:
		flavor = catppuccin.Mocha
	}
}

// namedColor maps a catppuccin color name to the active flavor's hex value
func namedColor(name string) lipgloss.Color {
	var c catppuccin.Color
	switch strings.ToLower(name) {
	case "rosewater":
		c = flavor.Rosewater()
	case "flamingo":
		c = flavor.Flamingo()
	case "pink":
		c = flavor.Pink()
	case "mauve":
		c = flavor.Mauve()
	case "red":
		c = flavor.Red()
	case "maroon":
		c = flavor.Maroon()
	case "peach":
		c = flavor.Peach()
	case "yellow":
		c = flavor.Yellow()
	case "green":
		c = flavor.Green()
	case "teal":
		c = flavor.Teal()
	case "sky":
		c = flavor.Sky()
	case "sapphire":
		c = flavor.Sapphire()
	case "blue":
		c = flavor.Blue()
	case "lavender":
		c = flavor.Lavender()
	case "subtext0":
		c = flavor.Subtext0()
	case "overlay0":
		c = flavor.Overlay0()
	case "overlay1":
		c = flavor.Overlay1()
	case "overlay2":
		c = flavor.Overlay2()
	default:
		c = flavor.Text()
	}
	return lipgloss.Color(c.Hex)
}

func primaryColor() lipgloss.Color   { return lipgloss.Color(flavor.Mauve().Hex) }
func secondaryColor() lipgloss.Color { return lipgloss.Color(flavor.Green().Hex) }
func warningColor() lipgloss.Color   { return lipgloss.Color(flavor.Peach().Hex) }
func dangerColor() lipgloss.Color    { return lipgloss.Color(flavor.Red().Hex) }
func mutedColor() lipgloss.Color     { return lipgloss.Color(flavor.Overlay1().Hex) }
func fgColor() lipgloss.Color        { return lipgloss.Color(flavor.Text().Hex) }
func selectedBg() lipgloss.Color     { return lipgloss.Color(flavor.Surface1().Hex) }
func surfaceColor() lipgloss.Color   { return lipgloss.Color(flavor.Surface0().Hex) }

// Header styles

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(primaryColor())
}

func StatusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor())
}

func ActiveIndicatorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(secondaryColor()).Bold(true)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(dangerColor()).Bold(true).Padding(1)
}

// Tab styles

func ActiveTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(primaryColor()).
		Foreground(lipgloss.Color(flavor.Base().Hex)).
		Padding(0, 2)
}

func InactiveTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor()).Padding(0, 2)
}

func TabGapStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor())
}

// List styles

func SelectedItemStyle() lipgloss.Style {
	return lipgloss.NewStyle().Background(selectedBg()).Foreground(fgColor()).Bold(true)
}

func NormalItemStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(fgColor())
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor())
}

func TimestampStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor())
}

func CountBadgeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Background(primaryColor()).Foreground(lipgloss.Color(flavor.Base().Hex)).Padding(0, 1)
}

func TokenStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(warningColor())
}

func ColumnHeaderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(mutedColor()).
		Bold(true).
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(surfaceColor())
}

func HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(mutedColor())
}

// Detail panel styles

func DetailHeaderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor()).
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(surfaceColor())
}

func DetailPanelStyle(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(surfaceColor()).
		Padding(0, 1)
}

func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(fgColor())
}

func PathStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(flavor.Sapphire().Hex))
}

func BarStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(primaryColor())
}

// KindStyle styles a record or match kind using the configured highlight groups.
func KindStyle(kind string) lipgloss.Style {
	style := NormalItemStyle()
	if hl := config.Global().GetHighlight(kind); hl != nil {
		style = lipgloss.NewStyle().Foreground(namedColor(hl.Color))
		if hl.Bold {
			style = style.Bold(true)
		}
	}
	return style
}
