package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"agentchat/internal/api"
	"agentchat/internal/i18n"

	"github.com/mattn/go-runewidth"
)

var (
	// ErrQuit 用户请求退出 / the user asked to exit
	ErrQuit = errors.New("quit")
	// ErrInteractive 命令需要前端交互（登录/注册）
	// ErrInteractive marks commands the front end must handle itself (login/signup)
	ErrInteractive = errors.New("interactive command")
)

const (
	listColumnWidth    = 36
	historyPreviewCols = 72
	defaultHistoryShow = 20
)

type commandHelp struct {
	usage string
	key   string
}

var commandTable = []commandHelp{
	{"/help", "cmd.help"},
	{"/login", "cmd.login"},
	{"/signup", "cmd.signup"},
	{"/logout", "cmd.logout"},
	{"/whoami", "cmd.whoami"},
	{"/agents", "cmd.agents"},
	{"/sessions", "cmd.sessions"},
	{"/new [name]", "cmd.new"},
	{"/use <id>", "cmd.use"},
	{"/delete <id>", "cmd.delete"},
	{"/history [n]", "cmd.history"},
	{"/clear", "cmd.clear"},
	{"/quit", "cmd.exit"},
}

// ParseCommand 解析 "/cmd args"；非命令输入 ok=false
// ParseCommand splits "/cmd args"; ok is false when input is not a command
func ParseCommand(input string) (command string, args string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "/"))
	if rest == "" {
		return "", "", true
	}
	parts := strings.SplitN(rest, " ", 2)
	command = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args, true
}

// HelpText 返回命令列表 / returns the command listing
func HelpText() string {
	lines := []string{i18n.T("cmd.header")}
	for _, c := range commandTable {
		lines = append(lines, fmt.Sprintf("  %-14s %s", c.usage, i18n.T(c.key)))
	}
	return strings.Join(lines, "\n")
}

// RunCommand 处理非交互的内建命令，返回要展示的文本。
// /login 与 /signup 返回 ErrInteractive，/quit 返回 ErrQuit
// RunCommand handles the non-interactive built-in commands and returns text to display.
// /login and /signup return ErrInteractive; /quit returns ErrQuit.
func (o *Orchestrator) RunCommand(ctx context.Context, command, args string) (string, error) {
	switch command {
	case "", "help", "?":
		return HelpText(), nil
	case "quit", "exit", "q":
		return "", ErrQuit
	case "login", "signup":
		return "", ErrInteractive
	case "logout":
		if o.account != nil {
			o.account.Logout(ctx)
		}
		o.log.Clear()
		return i18n.T("auth.signed_out"), nil
	case "whoami":
		return o.whoami(ctx), nil
	case "agents":
		return o.listAgents(ctx), nil
	case "sessions":
		return o.listSessions(ctx), nil
	case "new":
		sess, err := o.sessions.Create(ctx, args)
		if err != nil {
			return i18n.T("error.session", api.ErrorText(err, "")), nil
		}
		o.log.Clear()
		return i18n.T("session.new", sess.ID), nil
	case "use":
		if args == "" {
			return i18n.T("cmd.usage", "/use <id>"), nil
		}
		o.log.Clear()
		o.sessions.Switch(args)
		return i18n.T("session.switched", args), nil
	case "delete":
		if args == "" {
			return i18n.T("cmd.usage", "/delete <id>"), nil
		}
		if err := o.sessions.Delete(ctx, args); err != nil {
			return i18n.T("error.session", api.ErrorText(err, "")), nil
		}
		return i18n.T("session.deleted", args), nil
	case "history":
		return o.showHistory(args), nil
	case "clear":
		o.ClearConversation()
		return i18n.T("session.cleared"), nil
	default:
		return i18n.T("cmd.unknown", command), nil
	}
}

func (o *Orchestrator) whoami(ctx context.Context) string {
	if o.account == nil || !o.account.IsAuthenticated() {
		return i18n.T("auth.required")
	}
	if o.account.Profile() == nil {
		if err := o.account.FetchProfile(ctx); err != nil {
			return i18n.T("error.request", api.ErrorText(err, ""))
		}
	}
	p := o.account.Profile()
	if p == nil {
		return i18n.T("auth.profile_none")
	}
	return i18n.T("auth.profile", orDefault(p.DisplayName, "-"), orDefault(p.Email, "-"), p.ID)
}

func (o *Orchestrator) listAgents(ctx context.Context) string {
	if o.agents == nil {
		return i18n.T("agent.none")
	}
	agents, err := o.agents.Refresh(ctx)
	if err != nil {
		return i18n.T("error.request", api.ErrorText(err, o.agents.LastError()))
	}
	if len(agents) == 0 {
		return i18n.T("agent.none")
	}
	lines := make([]string, 0, len(agents))
	for _, a := range agents {
		name := runewidth.FillRight(runewidth.Truncate(orDefault(a.Name, a.ID), listColumnWidth, "…"), listColumnWidth)
		lines = append(lines, i18n.T("agent.line", name, a.Description))
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) listSessions(ctx context.Context) string {
	sessions, err := o.sessions.List(ctx)
	if err != nil {
		return i18n.T("error.session", api.ErrorText(err, ""))
	}
	if len(sessions) == 0 {
		return i18n.T("session.none")
	}
	current, _ := o.sessions.Current()
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		name := runewidth.FillRight(runewidth.Truncate(orDefault(s.Name, "-"), listColumnWidth, "…"), listColumnWidth)
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s", marker, s.ID, name, s.UpdatedAt))
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) showHistory(args string) string {
	current, ok := o.sessions.Current()
	if !ok {
		return i18n.T("session.inactive")
	}
	if o.history == nil {
		return i18n.T("history.empty")
	}
	if o.history.Loading() {
		return i18n.T("history.loading")
	}
	if msg := o.history.Err(); msg != "" {
		return i18n.T("history.error", msg)
	}

	n := defaultHistoryShow
	if v, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && v > 0 {
		n = v
	}
	msgs := o.history.Messages()
	stats := o.history.Stats()
	precision := i18n.T("context.estimated")
	if stats.Precise {
		precision = i18n.T("context.precise")
	}

	lines := []string{
		i18n.T("session.current", current),
		i18n.T("context.messages", stats.Messages) + "  " + i18n.T("context.tokens", stats.Tokens, precision),
	}
	if len(msgs) == 0 {
		return strings.Join(append(lines, i18n.T("history.empty")), "\n")
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	for _, m := range msgs {
		content := strings.Join(strings.Fields(m.Content), " ")
		lines = append(lines, fmt.Sprintf("%4d %-6s %s", m.Order, m.Role, runewidth.Truncate(content, historyPreviewCols, "…")))
	}
	return strings.Join(lines, "\n")
}
