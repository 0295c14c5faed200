package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	purple = lipgloss.Color("#764BA2")
	pink   = lipgloss.Color("#FF6B9D")
	amber  = lipgloss.Color("#FFA502")
	green  = lipgloss.Color("#04B575")
	red    = lipgloss.Color("#ED567A")
	gray   = lipgloss.Color("#626262")
	white  = lipgloss.Color("#FAFAFA")

	// Styles
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(white).
			Background(purple).
			Padding(0, 1).
			MarginBottom(1)

	styleSectionTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(purple).
				MarginBottom(1)

	styleUserLabel      = lipgloss.NewStyle().Bold(true).Foreground(pink)
	styleAssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(amber)
	styleTime           = lipgloss.NewStyle().Foreground(gray)
	styleNotice         = lipgloss.NewStyle().Foreground(gray).Italic(true)

	styleSidebar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(gray).
			PaddingLeft(2).
			MarginLeft(1)

	styleInput = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1)

	styleFooter = lipgloss.NewStyle().
			Foreground(gray).
			MarginTop(1)

	styleModeRemote   = lipgloss.NewStyle().Foreground(green)
	styleModeFallback = lipgloss.NewStyle().Foreground(amber)
	styleError        = lipgloss.NewStyle().Foreground(red)
)
