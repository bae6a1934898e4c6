package tui

import "github.com/charmbracelet/lipgloss"

// palette 对话界面的角色色 / role colors of the chat screen
type palette struct {
	brand  lipgloss.Color // 标题、激活标签 / titles and the active tab
	agent  lipgloss.Color // 代理回复署名 / agent reply attribution
	user   lipgloss.Color
	system lipgloss.Color
	fail   lipgloss.Color
	ok     lipgloss.Color
	fg     lipgloss.Color
	dim    lipgloss.Color
	faint  lipgloss.Color
	chrome lipgloss.Color // 状态栏底色 / status bar background
	rule   lipgloss.Color // 分隔线 / borders
}

var darkPalette = palette{
	brand:  "#7C3AED",
	agent:  "#06B6D4",
	user:   "#10B981",
	system: "#F59E0B",
	fail:   "#EF4444",
	ok:     "#10B981",
	fg:     "#E5E7EB",
	dim:    "#9CA3AF",
	faint:  "#6B7280",
	chrome: "#111827",
	rule:   "#374151",
}

// noticeKind 对话流中非条目提示的类别
// noticeKind classifies feed notices that are not conversation entries
type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeError
	noticeSuccess
)

// Theme TUI 样式集合，按对话角色与界面区域命名
// Theme holds the TUI styles, named by conversation role and screen region
type Theme struct {
	// 界面区域 / screen regions
	TitleStyle       lipgloss.Style
	ActiveTabStyle   lipgloss.Style
	InactiveTabStyle lipgloss.Style
	StatusBarStyle   lipgloss.Style
	SidebarStyle     lipgloss.Style
	InputStyle       lipgloss.Style

	// 提示 / notices
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	MutedStyle   lipgloss.Style

	// 对话条目 / conversation entries
	UserStyle   lipgloss.Style
	AgentStyle  lipgloss.Style
	SystemStyle lipgloss.Style
}

// DarkTheme 默认暗色主题 / the default dark theme
func DarkTheme() Theme { return newTheme(darkPalette) }

func newTheme(p palette) Theme {
	fg := lipgloss.NewStyle().Foreground
	ruled := lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(p.rule)
	return Theme{
		TitleStyle:       fg(p.brand).Bold(true),
		ActiveTabStyle:   fg(p.fg).Background(p.brand).Bold(true).Padding(0, 2),
		InactiveTabStyle: fg(p.dim).Padding(0, 2),
		StatusBarStyle:   fg(p.dim).Background(p.chrome),
		SidebarStyle:     ruled.Foreground(p.fg).BorderLeft(true),
		InputStyle:       ruled.Foreground(p.fg).BorderTop(true),

		ErrorStyle:   fg(p.fail).Bold(true),
		SuccessStyle: fg(p.ok),
		MutedStyle:   fg(p.faint),

		UserStyle:   fg(p.user).Bold(true),
		AgentStyle:  fg(p.agent).Bold(true),
		SystemStyle: fg(p.system),
	}
}

// Notice 返回提示类别对应的样式 / returns the style for a notice kind
func (t Theme) Notice(kind noticeKind) lipgloss.Style {
	switch kind {
	case noticeError:
		return t.ErrorStyle
	case noticeSuccess:
		return t.SuccessStyle
	default:
		return t.MutedStyle
	}
}
