package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"agentchat/internal/api"
	"agentchat/internal/bootstrap"
	"agentchat/internal/config"
	"agentchat/internal/repl"
)

func newSendCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message...>",
		Short: "Submit one message and print the reply",
		Long:  "Submits a single message in the current session (or starts one) and prints the resulting conversation entries.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return opts.with(cmd.Context(), func(res *bootstrap.BuildResult) error {
				return sendMessage(cmd.Context(), res, text, cmd.OutOrStdout())
			})
		},
	}
}

// sendMessage 提交一条消息并打印本次新增的条目；失败已作为系统条目打印，再以错误返回
// sendMessage submits one message and prints the entries it produced; a failure is
// printed as a system entry and also returned for the exit status
func sendMessage(ctx context.Context, res *bootstrap.BuildResult, text string, out io.Writer) error {
	if err := requireAuth(res); err != nil {
		return err
	}
	res.Log.Subscribe(repl.NewPrinter(out, false))
	err := res.Orch.Submit(ctx, text)
	var vErr *api.ValidationError
	if errors.As(err, &vErr) {
		return errors.New(vErr.Message)
	}
	if err != nil {
		return errors.New(api.ErrorText(err, err.Error()))
	}
	if id, ok := res.Sessions.Current(); ok {
		fmt.Fprintln(out, "session:", id)
	}
	return nil
}

func newLoginCmd(opts *cliOptions, signup bool) *cobra.Command {
	var email string
	use, short := "login", "Sign in to the orchestrator service"
	if signup {
		use, short = "signup", "Create an account on the orchestrator service"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(cmd.Context(), func(res *bootstrap.BuildResult) error {
				return login(cmd.Context(), res, bootstrap.NewTerminalPrompter(), bootstrap.CredentialRequest{Signup: signup, Email: email}, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func login(ctx context.Context, res *bootstrap.BuildResult, prompter bootstrap.CredentialPrompter, req bootstrap.CredentialRequest, out io.Writer) error {
	creds, err := prompter.PromptCredentials(ctx, req)
	if err != nil {
		return err
	}
	text, err := bootstrap.Authenticate(ctx, res.Auth, creds, req.Signup)
	if err != nil {
		return errors.New(api.ErrorText(err, err.Error()))
	}
	fmt.Fprintln(out, text)
	return nil
}

func newLogoutCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runCommand(cmd, "logout", "", false)
		},
	}
}

func newWhoamiCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runCommand(cmd, "whoami", "", true)
		},
	}
}

func newAgentsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents the orchestrator can delegate to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runCommand(cmd, "agents", "", false)
		},
	}
}

func newSessionsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and manage conversation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runCommand(cmd, "sessions", "", true)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "new [name]",
			Short: "Create a session and make it current",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runCommand(cmd, "new", strings.Join(args, " "), true)
			},
		},
		&cobra.Command{
			Use:   "use <id>",
			Short: "Make a session current",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runCommand(cmd, "use", args[0], true)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runCommand(cmd, "delete", args[0], true)
			},
		},
	)
	return cmd
}

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history [n]",
		Short: "Show recent messages of the current session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.with(cmd.Context(), func(res *bootstrap.BuildResult) error {
				if err := requireAuth(res); err != nil {
					return err
				}
				// 启动时的异步加载可能尚未完成，这里同步拉取
				if id, ok := res.Sessions.Current(); ok {
					_ = res.History.LoadForSession(cmd.Context(), id, 0, 0)
				}
				text, err := res.Orch.RunCommand(cmd.Context(), "history", strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

// runCommand 复用对话中的 /命令实现 / reuses the in-chat slash command implementation
func (o *cliOptions) runCommand(cmd *cobra.Command, name, args string, needAuth bool) error {
	return o.with(cmd.Context(), func(res *bootstrap.BuildResult) error {
		if needAuth {
			if err := requireAuth(res); err != nil {
				return err
			}
		}
		text, err := res.Orch.RunCommand(cmd.Context(), name, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	})
}

func newInitCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a project config scaffold to ./.agentchat/config.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve cwd: %w", err)
			}
			return initProject(dir, baseURL, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "orchestrator service base URL")
	return cmd
}

func initProject(dir, baseURL string, out io.Writer) error {
	path, err := config.InitProjectConfigScaffold(dir)
	if err != nil {
		return err
	}
	if strings.TrimSpace(baseURL) != "" {
		if err := config.WriteAPIBaseURL(dir, baseURL); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "config:", path)
	return nil
}
