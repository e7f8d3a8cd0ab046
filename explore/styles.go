package explore

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#8B5CF6")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorDimmed    = lipgloss.Color("#374151")
	colorBgPanel   = lipgloss.Color("#1E293B")
	colorText      = lipgloss.Color("#F8FAFC")
	colorTextMuted = lipgloss.Color("#94A3B8")
)

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	treePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDimmed).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(colorBgPanel).
			Foreground(colorText).
			Padding(0, 1)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarningStyle = lipgloss.NewStyle().
				Foreground(colorWarning).
				Bold(true)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	formatActiveStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				Underline(true)

	formatInactiveStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)
)

const logo = "accparse explore"

func renderKeyHint(key, description string) string {
	return helpKeyStyle.Render(key) + " " + helpDescStyle.Render(description)
}
