package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

type lineInput interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Close() error
}

type basicLineInput struct {
	reader *bufio.Reader
	in     io.Reader
	out    io.Writer
}

func newBasicLineInput(in io.Reader, out io.Writer) *basicLineInput {
	return &basicLineInput{
		reader: bufio.NewReader(in),
		in:     in,
		out:    out,
	}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword 终端上不回显；管道输入按普通行读取
// ReadPassword does not echo on a terminal; piped input is read as a plain line
func (b *basicLineInput) ReadPassword(prompt string) (string, error) {
	f, ok := b.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return b.ReadLine(prompt)
	}
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	pw, err := term.ReadPassword(int(f.Fd()))
	if b.out != nil {
		fmt.Fprintln(b.out)
	}
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		AutoComplete:      newCommandCompleter(),
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	return r.instance.Readline()
}

func (r *readlineInput) ReadPassword(prompt string) (string, error) {
	pw, err := r.instance.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// newLineInput 终端上使用 readline；失败或非终端时回退到基础输入
// newLineInput uses readline on a terminal and falls back to basic input otherwise
func newLineInput(historyPath string) (lineInput, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return newBasicLineInput(os.Stdin, io.Discard), nil
	}
	readlineReader, err := newReadlineInput(historyPath)
	if err == nil {
		return readlineReader, nil
	}
	return newBasicLineInput(os.Stdin, os.Stdout), err
}

// newCommandCompleter 补全内建 "/" 命令 / completes the built-in "/" commands
func newCommandCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(completionCommands))
	for _, c := range completionCommands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}

var completionCommands = []string{
	"/help", "/login", "/signup", "/logout", "/whoami", "/agents",
	"/sessions", "/new", "/use", "/delete", "/history", "/clear", "/quit",
}
