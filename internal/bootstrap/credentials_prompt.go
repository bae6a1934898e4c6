package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"agentchat/internal/i18n"
)

// ErrNoTerminal 非交互环境无法提示输入凭据
// ErrNoTerminal is returned when credentials cannot be prompted for interactively
var ErrNoTerminal = errors.New("credentials prompt requires a terminal")

// CredentialRequest 描述要收集的字段 / describes which fields to collect
type CredentialRequest struct {
	Signup bool
	Email  string
}

type Credentials struct {
	Email       string
	Password    string
	DisplayName string
}

// CredentialPrompter 由前端实现的凭据输入
// CredentialPrompter collects credentials in a front-end specific way
type CredentialPrompter interface {
	PromptCredentials(ctx context.Context, req CredentialRequest) (Credentials, error)
}

// TerminalPrompter 在终端上逐行提示；密码不回显
// TerminalPrompter prompts line by line on a terminal; the password is not echoed
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p *TerminalPrompter) PromptCredentials(ctx context.Context, req CredentialRequest) (Credentials, error) {
	isTTY := term.IsTerminal(int(p.In.Fd()))
	// 非交互环境：拒绝提示，避免把密码回显到日志或管道
	if !isTTY {
		return Credentials{}, ErrNoTerminal
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}

	creds := Credentials{Email: strings.TrimSpace(req.Email)}
	if creds.Email == "" {
		line, err := p.readLine(i18n.T("prompt.email"))
		if err != nil {
			return Credentials{}, err
		}
		creds.Email = line
	}

	_, _ = fmt.Fprint(p.Out, i18n.T("prompt.password"))
	pw, err := term.ReadPassword(int(p.In.Fd()))
	_, _ = fmt.Fprintln(p.Out)
	if err != nil {
		return Credentials{}, fmt.Errorf("read password: %w", err)
	}
	creds.Password = string(pw)

	if req.Signup {
		line, err := p.readLine(i18n.T("prompt.display_name"))
		if err != nil {
			return Credentials{}, err
		}
		creds.DisplayName = line
	}
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (p *TerminalPrompter) readLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.Out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
