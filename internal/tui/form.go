package tui

import (
	"strings"

	"agentchat/internal/bootstrap"
	"agentchat/internal/i18n"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// authForm 登录/注册表单：邮箱、密码，注册时附加显示名称
// authForm collects email and password, plus a display name on signup
type authForm struct {
	signup bool
	fields []textinput.Model
	labels []string
	focus  int
}

func newAuthForm(signup bool, email string) *authForm {
	f := &authForm{signup: signup}

	emailIn := textinput.New()
	emailIn.SetValue(strings.TrimSpace(email))
	f.add(emailIn, "prompt.email")

	pw := textinput.New()
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '*'
	f.add(pw, "prompt.password")

	if signup {
		f.add(textinput.New(), "prompt.display_name")
	}

	// 邮箱已预填时直接聚焦密码
	if emailIn.Value() != "" {
		f.focus = 1
	}
	f.fields[f.focus].Focus()
	return f
}

func (f *authForm) add(in textinput.Model, label string) {
	in.Prompt = ""
	in.CharLimit = 256
	f.fields = append(f.fields, in)
	f.labels = append(f.labels, label)
}

// Next 移动到下一项；已是最后一项时返回 true 表示提交
// Next advances focus and reports true when the last field was confirmed
func (f *authForm) Next() bool {
	if f.focus == len(f.fields)-1 {
		return true
	}
	f.fields[f.focus].Blur()
	f.focus++
	f.fields[f.focus].Focus()
	return false
}

func (f *authForm) Credentials() bootstrap.Credentials {
	c := bootstrap.Credentials{
		Email:    strings.TrimSpace(f.fields[0].Value()),
		Password: f.fields[1].Value(),
	}
	if f.signup {
		c.DisplayName = strings.TrimSpace(f.fields[2].Value())
	}
	return c
}

func (f authForm) Update(msg tea.Msg) (authForm, tea.Cmd) {
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return f, cmd
}

func (f authForm) View(theme Theme, width int) string {
	title := i18n.T("cmd.login")
	if f.signup {
		title = i18n.T("cmd.signup")
	}
	lines := []string{theme.TitleStyle.Render(title)}
	for i, in := range f.fields {
		label := i18n.T(f.labels[i])
		if i == f.focus {
			label = theme.ActiveTabStyle.Render(label)
		} else {
			label = theme.MutedStyle.Render(label)
		}
		lines = append(lines, label+in.View())
	}
	lines = append(lines, theme.MutedStyle.Render(i18n.T("prompt.form_hint")))
	return theme.InputStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
