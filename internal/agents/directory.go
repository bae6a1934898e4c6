package agents

import (
	"context"
	"sync"

	"agentchat/internal/api"
	"agentchat/internal/observability"
)

// Lister 拉取可用 agent 列表 / fetches the available agents
type Lister interface {
	ListAgents(ctx context.Context) ([]api.AgentInfo, error)
}

// Directory agent 目录缓存；每次刷新整体替换，不做并发去重
// Directory caches the agent list; every refresh replaces it wholesale and concurrent refreshes are not deduplicated
type Directory struct {
	lister Lister

	mu      sync.Mutex
	agents  []api.AgentInfo
	lastErr string
	loading bool
}

func New(lister Lister) *Directory {
	return &Directory{lister: lister}
}

// Refresh 拉取并替换列表；失败时清空列表并记录错误
// Refresh fetches and replaces the list; on failure the list is emptied and the error recorded
func (d *Directory) Refresh(ctx context.Context) ([]api.AgentInfo, error) {
	d.mu.Lock()
	d.loading = true
	d.lastErr = ""
	d.mu.Unlock()

	agents, err := d.lister.ListAgents(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		d.agents = nil
		d.lastErr = api.ErrorText(err, "Failed to fetch agents")
		observability.LoggerFromContext(ctx).Warn("agent refresh failed", "err", err)
		return nil, err
	}
	d.agents = append([]api.AgentInfo(nil), agents...)
	observability.LoggerFromContext(ctx).Debug("agents refreshed", "count", len(d.agents))
	return append([]api.AgentInfo(nil), d.agents...), nil
}

func (d *Directory) Agents() []api.AgentInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]api.AgentInfo(nil), d.agents...)
}

func (d *Directory) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Directory) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}
