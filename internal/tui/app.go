package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentchat/internal/api"
	"agentchat/internal/auth"
	"agentchat/internal/bootstrap"
	"agentchat/internal/chat"
	"agentchat/internal/i18n"
	"agentchat/internal/orchestrator"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PanelID 面板标识
// PanelID identifies a panel
type PanelID int

const (
	PanelChat PanelID = iota
	PanelHistory

	panelCount = 2
)

// --- Tea Messages ---

// EntryMsg 对话日志新增或清空（零值 Entry）
// EntryMsg reports a new conversation entry, or a clear when Entry is zero
type EntryMsg struct{ Entry chat.Entry }

// BusyMsg 忙碌指示器变化 / busy indicator changed
type BusyMsg struct{ Busy bool }

// SessionMsg 当前会话变化 / current session changed
type SessionMsg struct{ ID string }

// HistoryChangedMsg 历史缓存内容变化 / history cache changed
type HistoryChangedMsg struct{}

// SubmitDoneMsg 一次提交结束 / a submission finished
type SubmitDoneMsg struct{ Err error }

// CommandResultMsg 内建命令或登录表单的结果
// CommandResultMsg carries the result of a built-in command or the auth form
type CommandResultMsg struct {
	Text string
	Err  error
	// Success 标记确认类结果（登录/注册）/ marks a confirmation such as a sign-in
	Success bool
}

type feedItem struct {
	entry    *chat.Entry
	notice   string
	kind     noticeKind
	rendered string
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	// 面板 / Panels
	activePanel PanelID
	chatView    viewport.Model
	historyView viewport.Model

	// 输入 / Input
	input textarea.Model
	form  *authForm

	// 对话流：条目与命令输出按到达顺序排列
	// Feed: entries and command output in arrival order
	feed []feedItem
	seen map[string]bool

	// 状态 / State
	busy         bool
	sessionID    string
	lastError    string
	cancelSubmit context.CancelFunc

	res *bootstrap.BuildResult

	// 配置 / Config
	theme    Theme
	keys     KeyMap
	locale   *i18n.I18n
	markdown bool
}

// NewApp 创建 TUI 应用
// NewApp creates a new TUI application
func NewApp(res *bootstrap.BuildResult) App {
	ta := textarea.New()
	ta.Placeholder = i18n.T("input.placeholder")
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	keys := DefaultKeyMap()
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sessionID, _ := res.Sessions.Current()
	a := App{
		activePanel: PanelChat,
		input:       ta,
		seen:        make(map[string]bool),
		sessionID:   sessionID,
		res:         res,
		theme:       DarkTheme(),
		keys:        keys,
		locale:      i18n.Global(),
		markdown:    res.Config.UI.Markdown,
	}
	a.syncFeed()
	return a
}

func (a App) Init() tea.Cmd {
	return textarea.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.form != nil {
			return a.updateForm(msg)
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			if a.cancelSubmit != nil {
				a.cancelSubmit()
			}
			return a, tea.Quit
		case key.Matches(msg, a.keys.SwitchPanel):
			a.activePanel = (a.activePanel + 1) % panelCount
			a.refreshHistory()
			return a, nil
		case key.Matches(msg, a.keys.Cancel):
			if a.busy && a.cancelSubmit != nil {
				a.cancelSubmit()
				a.cancelSubmit = nil
				a.appendNotice(a.locale.T("status.cancelled"), noticeInfo)
			}
			return a, nil
		case key.Matches(msg, a.keys.ClearScreen):
			return a, a.runCommand("clear", "")
		case key.Matches(msg, a.keys.PageUp):
			a.activeView().PageUp()
			return a, nil
		case key.Matches(msg, a.keys.PageDown):
			a.activeView().PageDown()
			return a, nil
		case key.Matches(msg, a.keys.Submit):
			return a.submitInput()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case EntryMsg:
		a.syncFeed()
		return a, nil

	case BusyMsg:
		a.busy = msg.Busy
		return a, nil

	case SessionMsg:
		a.sessionID = msg.ID
		a.refreshHistory()
		return a, nil

	case HistoryChangedMsg:
		a.refreshHistory()
		return a, nil

	case SubmitDoneMsg:
		a.busy = false
		a.cancelSubmit = nil
		a.syncFeed()
		var vErr *api.ValidationError
		switch {
		case errors.As(msg.Err, &vErr):
			a.lastError = vErr.Message
		case errors.Is(msg.Err, auth.ErrNotAuthenticated):
			a.lastError = i18n.T("auth.required")
			a.appendNotice(a.lastError, noticeError)
		}
		return a, nil

	case CommandResultMsg:
		a.syncFeed()
		if errors.Is(msg.Err, orchestrator.ErrQuit) {
			return a, tea.Quit
		}
		if msg.Err != nil {
			a.lastError = api.ErrorText(msg.Err, msg.Err.Error())
			a.appendNotice(a.lastError, noticeError)
			return a, nil
		}
		kind := noticeInfo
		if msg.Success {
			kind = noticeSuccess
		}
		a.appendNotice(msg.Text, kind)
		a.refreshHistory()
		return a, nil
	}

	// 更新输入区 / Update input area
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	// 计算布局尺寸 / Calculate layout dimensions
	sidebarWidth := a.sidebarWidth()
	mainWidth := a.width - sidebarWidth
	if sidebarWidth > 0 {
		mainWidth-- // border
	}

	inputHeight := 5
	statusHeight := 1
	tabHeight := 1
	panelHeight := a.height - inputHeight - statusHeight - tabHeight

	if panelHeight < 3 {
		panelHeight = 3
	}

	// 构建各部分 / Build components
	tabs := a.renderTabs()
	panel := a.renderActivePanel(mainWidth, panelHeight)
	var inputBox string
	if a.form != nil {
		inputBox = a.form.View(a.theme, mainWidth)
	} else {
		inputBox = a.renderInput(mainWidth)
	}
	statusBar := a.renderStatusBar(a.width)

	// 左侧主区域 / Left main area
	main := lipgloss.JoinVertical(lipgloss.Left, tabs, panel, inputBox)

	// 右侧侧边栏 / Right sidebar
	if sidebarWidth > 0 {
		sidebar := a.renderSidebar(sidebarWidth, a.height-statusHeight)
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, sidebar)
	}

	// 底部状态栏 / Bottom status bar
	return lipgloss.JoinVertical(lipgloss.Left, main, statusBar)
}

// --- 内部方法 / Internal methods ---

// submitInput 处理回车：命令走 RunCommand，其余作为消息提交；忙碌时忽略
// submitInput handles Enter: commands go to RunCommand, anything else is submitted; ignored while busy
func (a App) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return a, nil
	}
	if cmd, args, ok := orchestrator.ParseCommand(text); ok {
		a.input.Reset()
		if cmd == "login" || cmd == "signup" {
			a.form = newAuthForm(cmd == "signup", args)
			return a, textinput.Blink
		}
		return a, a.runCommand(cmd, args)
	}
	if a.busy {
		return a, nil
	}
	a.input.Reset()
	a.lastError = ""
	a.busy = true

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelSubmit = cancel
	orch := a.res.Orch
	return a, func() tea.Msg {
		defer cancel()
		return SubmitDoneMsg{Err: orch.Submit(ctx, text)}
	}
}

// runCommand 在后台执行命令；订阅回调会向 Program 发消息，不能在 Update 中同步调用
// runCommand executes a command off the update loop; subscriptions send to the
// Program, so mutating calls must never run synchronously inside Update
func (a App) runCommand(cmd, args string) tea.Cmd {
	orch := a.res.Orch
	return func() tea.Msg {
		text, err := orch.RunCommand(context.Background(), cmd, args)
		return CommandResultMsg{Text: text, Err: err}
	}
}

func (a App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Cancel):
		a.form = nil
		return a, nil
	case key.Matches(msg, a.keys.Submit):
		if !a.form.Next() {
			return a, nil
		}
		creds, signup := a.form.Credentials(), a.form.signup
		a.form = nil
		store := a.res.Auth
		return a, func() tea.Msg {
			text, err := bootstrap.Authenticate(context.Background(), store, creds, signup)
			return CommandResultMsg{Text: text, Err: err, Success: err == nil}
		}
	}
	var cmd tea.Cmd
	*a.form, cmd = a.form.Update(msg)
	return a, cmd
}

func (a *App) relayout() {
	mainWidth := a.width - a.sidebarWidth()
	panelHeight := a.height - 8

	if panelHeight < 3 {
		panelHeight = 3
	}

	a.chatView = viewport.New(mainWidth, panelHeight)
	a.historyView = viewport.New(mainWidth, panelHeight)
	a.input.SetWidth(mainWidth - 4)

	for i := range a.feed {
		a.feed[i].rendered = a.renderFeedItem(a.feed[i])
	}
	a.refreshChat()
	a.refreshHistory()
}

// syncFeed 以对话日志为准追加新条目；日志被清空时同时清空命令输出
// syncFeed appends new log entries to the feed; a cleared log also drops command output
func (a *App) syncFeed() {
	entries := a.res.Log.Entries()
	if len(entries) == 0 && len(a.seen) > 0 {
		a.feed = nil
		a.seen = make(map[string]bool)
	}
	for i := range entries {
		e := entries[i]
		if a.seen[e.ID] {
			continue
		}
		a.seen[e.ID] = true
		item := feedItem{entry: &e}
		item.rendered = a.renderFeedItem(item)
		a.feed = append(a.feed, item)
	}
	a.refreshChat()
}

func (a *App) appendNotice(text string, kind noticeKind) {
	if strings.TrimSpace(text) == "" {
		return
	}
	item := feedItem{notice: text, kind: kind}
	item.rendered = a.renderFeedItem(item)
	a.feed = append(a.feed, item)
	a.refreshChat()
}

func (a *App) refreshChat() {
	parts := make([]string, 0, len(a.feed))
	for _, item := range a.feed {
		parts = append(parts, item.rendered)
	}
	a.chatView.SetContent(strings.Join(parts, "\n\n"))
	a.chatView.GotoBottom()
}

func (a *App) refreshHistory() {
	h := a.res.History
	var content string
	switch {
	case a.sessionID == "":
		content = a.theme.MutedStyle.Render("  " + a.locale.T("session.inactive"))
	case h.Loading():
		content = a.theme.MutedStyle.Render("  " + a.locale.T("history.loading"))
	case h.Err() != "":
		content = a.theme.ErrorStyle.Render("  " + a.locale.T("history.error", h.Err()))
	default:
		content = RenderHistory(h.Messages(), h.Stats(), a.historyView.Width, a.theme)
	}
	a.historyView.SetContent(content)
}

func (a App) renderFeedItem(item feedItem) string {
	if item.entry != nil {
		return RenderEntry(*item.entry, a.chatView.Width, a.theme, a.markdown)
	}
	return a.theme.Notice(item.kind).Render(item.notice)
}

func (a *App) activeView() *viewport.Model {
	if a.activePanel == PanelHistory {
		return &a.historyView
	}
	return &a.chatView
}

func (a App) sidebarWidth() int {
	if a.width < 80 {
		return 0
	}
	w := a.width * 25 / 100
	if w < 20 {
		w = 20
	}
	if w > 40 {
		w = 40
	}
	return w
}

// --- 渲染方法 / Render methods ---

func (a App) renderTabs() string {
	tabs := []struct {
		id   PanelID
		name string
	}{
		{PanelChat, a.locale.T("panel.chat")},
		{PanelHistory, a.locale.T("panel.history")},
	}

	var parts []string
	for _, tab := range tabs {
		style := a.theme.InactiveTabStyle
		if tab.id == a.activePanel {
			style = a.theme.ActiveTabStyle
		}
		parts = append(parts, style.Render(tab.name))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) renderActivePanel(width, height int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height)

	var content string
	switch a.activePanel {
	case PanelChat:
		content = a.chatView.View()
	case PanelHistory:
		content = a.historyView.View()
	}

	return style.Render(content)
}

func (a App) renderInput(width int) string {
	style := a.theme.InputStyle.Width(width)
	return style.Render(a.input.View())
}

func (a App) renderSidebar(width, height int) string {
	var parts []string

	// 标题 / Title
	parts = append(parts, a.theme.TitleStyle.Render(" agentchat"))
	parts = append(parts, "")

	// 账户 / Account
	parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("sidebar.account")))
	account := a.locale.T("status.guest")
	if a.res.Auth.IsAuthenticated() {
		account = a.locale.T("status.signed_in")
		if p := a.res.Auth.Profile(); p != nil && p.Email != "" {
			account = p.Email
		}
	}
	parts = append(parts, "  "+account)
	parts = append(parts, "")

	// 会话 / Session
	parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("sidebar.session")))
	session := a.locale.T("session.inactive")
	if a.sessionID != "" {
		session = a.sessionID
	}
	parts = append(parts, "  "+session)
	parts = append(parts, "")

	// 历史 / History
	if a.sessionID != "" {
		stats := a.res.History.Stats()
		parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("sidebar.history")))
		parts = append(parts, "  "+a.locale.T("context.messages", stats.Messages))
		parts = append(parts, fmt.Sprintf("  ~%d tokens", stats.Tokens))
		parts = append(parts, "")
	}

	// 代理 / Agents
	if agents := a.res.Agents.Agents(); len(agents) > 0 {
		parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("sidebar.agents")))
		for _, ag := range agents {
			parts = append(parts, "  "+ag.Name)
		}
		parts = append(parts, "")
	}

	content := strings.Join(parts, "\n")

	style := a.theme.SidebarStyle.
		Width(width).
		Height(height)

	return style.Render(content)
}

func (a App) renderStatusBar(width int) string {
	status := a.locale.T("status.ready")
	switch {
	case a.busy:
		status = a.locale.T("status.busy")
	case a.sessionID != "" && a.res.History.Loading():
		status = a.locale.T("status.loading")
	case a.lastError != "":
		status = a.theme.ErrorStyle.Render(a.lastError)
	}

	left := fmt.Sprintf(" %s · %s", a.res.Client.BaseURL(), status)
	right := fmt.Sprintf("%s · %s · %s  ", a.locale.T("keys.tab"), a.locale.T("keys.esc"), a.locale.T("keys.ctrl_l"))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

// Run 启动 Bubble Tea TUI，并把存储层的通知转为 Tea 消息
// Run starts the Bubble Tea TUI and forwards store notifications as Tea messages
func Run(res *bootstrap.BuildResult) error {
	app := NewApp(res)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	res.Log.Subscribe(func(e chat.Entry) { p.Send(EntryMsg{Entry: e}) })
	res.Busy.Subscribe(func(b bool) { p.Send(BusyMsg{Busy: b}) })
	res.Sessions.Subscribe(func(id string) { p.Send(SessionMsg{ID: id}) })
	res.History.Subscribe(func() { p.Send(HistoryChangedMsg{}) })

	_, err := p.Run()
	return err
}
