package ui

import "github.com/charmbracelet/lipgloss"

// Dashboard color palette
var (
	ColorNeonGreen    = lipgloss.Color("#00FF87")
	ColorGreen        = lipgloss.Color("#00CC66")
	ColorMidGreen     = lipgloss.Color("#008F4A")
	ColorDimGreen     = lipgloss.Color("#004A26")
	ColorBlack        = lipgloss.Color("#000000")
	ColorBarBg        = lipgloss.Color("#002211")
	ColorBorderBright = lipgloss.Color("#00FF87")
	ColorBorderNorm   = lipgloss.Color("#00AA55")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
	ColorInfo         = lipgloss.Color("#33CCFF")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(ColorBarBg).
			Foreground(ColorNeonGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorNeonGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleTabActive = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorNeonGreen).
			Bold(true).
			Padding(0, 1)

	StyleTabInactive = lipgloss.NewStyle().
				Foreground(ColorMidGreen).
				Padding(0, 1)

	StyleStatusBar = lipgloss.NewStyle().
			Background(ColorBarBg).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusRecording = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StyleStatusIdle = lipgloss.NewStyle().
			Foreground(ColorMidGreen).
			Bold(true)

	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorNeonGreen).
			Bold(true).
			Padding(0, 1)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorNeonGreen).
			Bold(true)

	StyleAdapterName = lipgloss.NewStyle().
				Foreground(ColorNeonGreen).
				Bold(true)

	StyleAdapterMAC = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleAdapterOBD = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleCursorLine = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorNeonGreen).
			Bold(true)
)
