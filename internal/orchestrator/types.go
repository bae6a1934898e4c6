package orchestrator

import (
	"context"

	"agentchat/internal/api"
	"agentchat/internal/chat"
	"agentchat/internal/history"
)

// TaskPoster 提交任务到远端编排代理
// TaskPoster submits a task to the remote orchestrator agent
type TaskPoster interface {
	PostTask(ctx context.Context, req api.TaskRequest) (*api.Task, error)
}

// AgentRefresher 代理目录 / the agent directory
type AgentRefresher interface {
	Refresh(ctx context.Context) ([]api.AgentInfo, error)
	LastError() string
}

// Sessions 会话身份管理器 / the session identity manager
type Sessions interface {
	Current() (string, bool)
	Adopt(id string) bool
	Switch(id string)
	Clear()
	List(ctx context.Context) ([]api.Session, error)
	Create(ctx context.Context, name string) (*api.Session, error)
	Delete(ctx context.Context, id string) error
}

// HistoryView 只读访问消息历史缓存 / read-only view of the history cache
type HistoryView interface {
	Messages() []api.Message
	Stats() history.Stats
	Err() string
	Loading() bool
}

// Account 凭据存储中命令需要的部分 / the credential store surface commands need
type Account interface {
	IsAuthenticated() bool
	Profile() *api.UserProfile
	FetchProfile(ctx context.Context) error
	Logout(ctx context.Context)
}

// Options 编排器依赖；Log 与 Busy 为空时自动创建
// Options wires the orchestrator; Log and Busy are created when nil
type Options struct {
	Tasks    TaskPoster
	Agents   AgentRefresher
	Sessions Sessions
	History  HistoryView
	Account  Account
	Log      *chat.Log
	Busy     *chat.Busy
}
