package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agentchat/internal/auth"
	"agentchat/internal/bootstrap"
	"agentchat/internal/config"
	"agentchat/internal/i18n"
	"agentchat/internal/observability"
	"agentchat/internal/repl"
	"agentchat/internal/tui"
)

var version = "dev"

// cliOptions 全局 flag / global flags shared by every subcommand
type cliOptions struct {
	configPath string
	ephemeral  bool
	useTUI     bool
	useREPL    bool
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "agentchat",
		Short: "Chat client for a remote orchestrator agent service",
		Long:  "agentchat signs in to an orchestrator service, keeps the current conversation session and submits messages as orchestrator tasks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runChat(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (JSON/JSONC or YAML)")
	root.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep credentials and session in memory only")
	root.Flags().BoolVar(&opts.useTUI, "tui", false, "force the full-screen TUI")
	root.Flags().BoolVar(&opts.useREPL, "repl", false, "force the line-based REPL")
	root.MarkFlagsMutuallyExclusive("tui", "repl")

	root.AddCommand(
		newSendCmd(opts),
		newLoginCmd(opts, false),
		newLoginCmd(opts, true),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newAgentsCmd(opts),
		newSessionsCmd(opts),
		newHistoryCmd(opts),
		newInitCmd(),
	)
	return root
}

// open 加载配置、初始化日志与语言，再构建运行时
// open loads config, sets up logging and locale, then builds the runtime
func (o *cliOptions) open(ctx context.Context) (*bootstrap.BuildResult, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	i18n.Init(cfg.UI.Locale)
	if err := observability.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	res, err := bootstrap.Build(ctx, cfg, bootstrap.Options{Ephemeral: o.ephemeral})
	if err != nil {
		_ = observability.Close()
		return nil, err
	}
	return res, nil
}

// with 打开运行时并在 fn 返回后释放
// with opens the runtime and releases it after fn returns
func (o *cliOptions) with(ctx context.Context, fn func(*bootstrap.BuildResult) error) error {
	res, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer observability.Close()
	defer res.Close()
	return fn(res)
}

func (o *cliOptions) runChat(ctx context.Context) error {
	return o.with(ctx, func(res *bootstrap.BuildResult) error {
		if o.chooseTUI(res.Config.UI.Mode, isTerminal()) {
			return tui.Run(res)
		}
		loop := repl.NewLoop(res)
		defer loop.Close()
		return loop.Run(ctx)
	})
}

// chooseTUI flag 优先；auto 模式下仅在交互终端启用 TUI
// chooseTUI lets flags win; in auto mode the TUI needs an interactive terminal
func (o *cliOptions) chooseTUI(mode string, interactive bool) bool {
	switch {
	case o.useTUI:
		return true
	case o.useREPL:
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.UIModeTUI:
		return true
	case config.UIModeREPL:
		return false
	default:
		return interactive
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// requireAuth 需要登录的子命令在未登录时直接失败
// requireAuth fails subcommands that need a login
func requireAuth(res *bootstrap.BuildResult) error {
	if res.Auth.IsAuthenticated() {
		return nil
	}
	return fmt.Errorf("%w: run `agentchat login` first", auth.ErrNotAuthenticated)
}
