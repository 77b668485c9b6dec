package cli

import "github.com/charmbracelet/lipgloss"

// Output styles for human-readable rendering. JSON output bypasses
// these entirely.
var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleScore   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleMeta    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleSnippet = lipgloss.NewStyle().PaddingLeft(4)
	styleMatch   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)
