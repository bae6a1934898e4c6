package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"agentchat/internal/chat"
	"agentchat/internal/i18n"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"

	agentNameColumn = 24
	markdownWidth   = 100
)

// renderer 将对话条目写到终端 / writes conversation entries to the terminal
type renderer struct {
	out   io.Writer
	color bool
	md    *glamour.TermRenderer
}

func newRenderer(out io.Writer, color, markdown bool) *renderer {
	r := &renderer{out: out, color: color}
	if markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(markdownWidth),
		)
		if err == nil {
			r.md = md
		}
	}
	return r
}

// NewPrinter 返回无颜色的条目打印函数，供非交互子命令使用
// NewPrinter returns an uncolored entry printer for non-interactive subcommands
func NewPrinter(out io.Writer, markdown bool) func(chat.Entry) {
	return newRenderer(out, false, markdown).Entry
}

// Entry 渲染一条条目；用户条目已由输入回显，不再重复
// Entry renders one entry; user entries were already echoed by the input line
func (r *renderer) Entry(e chat.Entry) {
	if e.ID == "" || e.Sender == chat.SenderUser {
		return
	}
	switch {
	case e.DisplayType == chat.DisplayAgentList:
		r.agentList(e)
	case e.Sender == chat.SenderAgent:
		r.paint(ansiCyan+ansiBold, e.AgentName+":")
		_, _ = fmt.Fprintln(r.out, r.markdown(e.Text))
	default:
		r.paint(ansiYellow, "["+e.AgentName+"] "+e.Text)
	}
}

func (r *renderer) agentList(e chat.Entry) {
	r.paint(ansiYellow, "["+e.AgentName+"] "+i18n.T("sidebar.agents")+":")
	for _, a := range e.Agents {
		name := a.Name
		if strings.TrimSpace(name) == "" {
			name = a.ID
		}
		name = runewidth.FillRight(runewidth.Truncate(name, agentNameColumn, "…"), agentNameColumn)
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.wrap(ansiBold, name), a.Description)
	}
}

// Info 命令输出 / command output
func (r *renderer) Info(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	_, _ = fmt.Fprintln(r.out, text)
}

func (r *renderer) Dim(text string)   { r.paint(ansiDim, text) }
func (r *renderer) Error(text string) { r.paint(ansiRed, "error: "+text) }

func (r *renderer) markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (r *renderer) paint(code, text string) {
	_, _ = fmt.Fprintln(r.out, r.wrap(code, text))
}

func (r *renderer) wrap(code, text string) string {
	if !r.color {
		return text
	}
	return code + text + ansiReset
}

func useColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("AGENTCHAT_NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
