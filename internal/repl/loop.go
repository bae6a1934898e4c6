package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"agentchat/internal/api"
	"agentchat/internal/auth"
	"agentchat/internal/bootstrap"
	"agentchat/internal/i18n"
	"agentchat/internal/orchestrator"
)

const sessionPromptChars = 8

// Loop REPL 状态：构建结果、输入与渲染器
// Loop holds REPL state: the build result, line input and renderer.
type Loop struct {
	res    *bootstrap.BuildResult
	in     lineInput
	out    io.Writer
	render *renderer
}

// NewLoop 使用 readline（不可用时回退基础输入）构建 REPL
// NewLoop builds a REPL on readline, falling back to basic input when unavailable.
func NewLoop(res *bootstrap.BuildResult) *Loop {
	historyPath := filepath.Join(res.Config.Storage.BaseDir, "repl.history")
	in, err := newLineInput(historyPath)
	loop := newLoop(res, in, os.Stdout, useColor(), res.Config.UI.Markdown)
	if err != nil {
		loop.render.Dim(fmt.Sprintf("line editor unavailable, fallback to basic input: %v", err))
	}
	return loop
}

func newLoop(res *bootstrap.BuildResult, in lineInput, out io.Writer, color, markdown bool) *Loop {
	loop := &Loop{
		res:    res,
		in:     in,
		out:    out,
		render: newRenderer(out, color, markdown),
	}
	res.Log.Subscribe(loop.render.Entry)
	res.Sessions.Subscribe(func(id string) {
		if id != "" {
			loop.render.Dim(i18n.T("startup.session", id))
		}
	})
	return loop
}

// Close 释放输入 / releases the line input
func (l *Loop) Close() error {
	return l.in.Close()
}

// Run 读取输入直到 EOF 或 /quit
// Run reads input until EOF or /quit
func (l *Loop) Run(ctx context.Context) error {
	l.banner()
	for {
		line, err := l.in.ReadLine(l.prompt())
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				_, _ = fmt.Fprintln(l.out)
				continue
			case errors.Is(err, io.EOF):
				return nil
			default:
				return fmt.Errorf("read input failed: %w", err)
			}
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if l.handle(ctx, input) {
			return nil
		}
	}
}

// handle 处理一行输入，返回是否退出 / processes one line and reports whether to exit
func (l *Loop) handle(ctx context.Context, input string) bool {
	if cmd, args, ok := orchestrator.ParseCommand(input); ok {
		reply, err := l.res.Orch.RunCommand(ctx, cmd, args)
		switch {
		case errors.Is(err, orchestrator.ErrQuit):
			return true
		case errors.Is(err, orchestrator.ErrInteractive):
			l.authenticate(ctx, cmd == "signup", args)
		case err != nil:
			l.render.Error(err.Error())
		default:
			l.render.Info(reply)
		}
		return false
	}
	l.submit(ctx, input)
	return false
}

// submit 发送一条消息；Ctrl+C 取消进行中的请求
// submit sends one message; Ctrl+C cancels the in-flight request
func (l *Loop) submit(ctx context.Context, text string) {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	// 远端失败已作为系统条目渲染 / remote failures are already rendered as system entries
	if err := l.res.Orch.Submit(runCtx, text); errors.Is(err, auth.ErrNotAuthenticated) {
		l.render.Error(i18n.T("auth.required"))
	}
}

// PromptCredentials 通过当前输入读取凭据 / reads credentials through the line input
func (l *Loop) PromptCredentials(ctx context.Context, req bootstrap.CredentialRequest) (bootstrap.Credentials, error) {
	creds := bootstrap.Credentials{Email: strings.TrimSpace(req.Email)}
	var err error
	if creds.Email == "" {
		if creds.Email, err = l.in.ReadLine(i18n.T("prompt.email")); err != nil {
			return bootstrap.Credentials{}, err
		}
		creds.Email = strings.TrimSpace(creds.Email)
	}
	if creds.Password, err = l.in.ReadPassword(i18n.T("prompt.password")); err != nil {
		return bootstrap.Credentials{}, err
	}
	if req.Signup {
		if creds.DisplayName, err = l.in.ReadLine(i18n.T("prompt.display_name")); err != nil {
			return bootstrap.Credentials{}, err
		}
		creds.DisplayName = strings.TrimSpace(creds.DisplayName)
	}
	return creds, ctx.Err()
}

func (l *Loop) authenticate(ctx context.Context, signup bool, email string) {
	creds, err := l.PromptCredentials(ctx, bootstrap.CredentialRequest{Signup: signup, Email: email})
	if err != nil {
		if !errors.Is(err, readline.ErrInterrupt) {
			l.render.Error(err.Error())
		}
		return
	}
	msg, err := bootstrap.Authenticate(ctx, l.res.Auth, creds, signup)
	if err != nil {
		l.render.Error(api.ErrorText(err, i18n.T("error.request", "login")))
		return
	}
	l.render.Info(msg)
}

func (l *Loop) banner() {
	l.render.Dim(i18n.T("startup.welcome", l.res.Client.BaseURL()))
	status := i18n.T("status.guest")
	if l.res.Auth.IsAuthenticated() {
		status = i18n.T("status.signed_in")
		if p := l.res.Auth.Profile(); p != nil && p.Email != "" {
			status = i18n.T("auth.signed_in", p.Email)
		}
	}
	l.render.Dim(status + " · /help")
}

// prompt 显示当前会话前缀 / shows the current session prefix
func (l *Loop) prompt() string {
	label := ""
	if id, ok := l.res.Sessions.Current(); ok {
		if len(id) > sessionPromptChars {
			id = id[:sessionPromptChars]
		}
		label = "[" + id + "] "
	}
	return l.render.wrap(ansiGreen, label+"> ")
}

var _ bootstrap.CredentialPrompter = (*Loop)(nil)
