package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"agentchat/internal/api"
	"agentchat/internal/chat"
	"agentchat/internal/history"
	"agentchat/internal/i18n"
)

const agentNameColumn = 24

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderEntry 渲染一条对话条目；markdown 仅作用于代理回复
// RenderEntry renders one conversation entry; markdown applies to agent replies only
func RenderEntry(e chat.Entry, width int, theme Theme, markdown bool) string {
	stamp := theme.MutedStyle.Render(e.Timestamp.Format("15:04"))
	switch {
	case e.DisplayType == chat.DisplayAgentList:
		lines := []string{stamp + " " + theme.SystemStyle.Render(e.AgentName+" · "+i18n.T("sidebar.agents"))}
		for _, a := range e.Agents {
			lines = append(lines, "  "+RenderAgentLine(a, theme))
		}
		return strings.Join(lines, "\n")
	case e.Sender == chat.SenderUser:
		return stamp + " " + theme.UserStyle.Render("›") + " " + e.Text
	case e.Sender == chat.SenderAgent:
		body := e.Text
		if markdown {
			body = RenderMarkdown(e.Text, width-2)
		}
		return stamp + " " + theme.AgentStyle.Render(e.AgentName) + "\n" + body
	default:
		return stamp + " " + theme.SystemStyle.Render("["+e.AgentName+"] "+e.Text)
	}
}

// RenderAgentLine 名称按显示宽度对齐 / pads the name by display width
func RenderAgentLine(a api.AgentInfo, theme Theme) string {
	name := a.Name
	if strings.TrimSpace(name) == "" {
		name = a.ID
	}
	name = runewidth.FillRight(runewidth.Truncate(name, agentNameColumn, "…"), agentNameColumn)
	return theme.TitleStyle.Render(name) + " " + a.Description
}

// RenderHistory 渲染服务端历史窗口 / renders the server history window
func RenderHistory(msgs []api.Message, stats history.Stats, width int, theme Theme) string {
	precision := i18n.T("context.estimated")
	if stats.Precise {
		precision = i18n.T("context.precise")
	}
	header := theme.MutedStyle.Render(i18n.T("context.messages", stats.Messages) + "  " + i18n.T("context.tokens", stats.Tokens, precision))
	if len(msgs) == 0 {
		return header + "\n" + theme.MutedStyle.Render("  "+i18n.T("history.empty"))
	}
	if width <= 0 {
		width = 80
	}
	lines := []string{header}
	for _, m := range msgs {
		content := strings.Join(strings.Fields(m.Content), " ")
		prefix := fmt.Sprintf("%4d %-6s ", m.Order, m.Role)
		avail := width - runewidth.StringWidth(prefix)
		if avail < 10 {
			avail = 10
		}
		lines = append(lines, theme.MutedStyle.Render(prefix)+runewidth.Truncate(content, avail, "…"))
	}
	return strings.Join(lines, "\n")
}
