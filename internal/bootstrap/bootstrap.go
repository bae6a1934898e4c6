package bootstrap

import (
	"context"
	"fmt"

	"agentchat/internal/agents"
	"agentchat/internal/api"
	"agentchat/internal/auth"
	"agentchat/internal/chat"
	"agentchat/internal/config"
	"agentchat/internal/history"
	"agentchat/internal/observability"
	"agentchat/internal/orchestrator"
	"agentchat/internal/session"
	"agentchat/internal/storage"
)

// Options 构建选项 / build options
type Options struct {
	// Ephemeral 使用内存存储，不读写磁盘上的凭据
	// Ephemeral keeps credentials in memory and never touches the disk store
	Ephemeral bool
	// SkipRestore 不恢复持久化的令牌与会话
	// SkipRestore leaves persisted tokens and session ids untouched at startup
	SkipRestore bool
}

// BuildResult 与 UI 无关的构建结果，供 main 构造 REPL/TUI
// BuildResult is UI-agnostic; main uses it to construct the REPL or TUI
type BuildResult struct {
	Config   config.Config
	Store    storage.Store
	Client   *api.Client
	Auth     *auth.Store
	Sessions *session.Manager
	History  *history.Cache
	Agents   *agents.Directory
	Log      *chat.Log
	Busy     *chat.Busy
	Orch     *orchestrator.Orchestrator
}

// Build 按依赖顺序初始化并返回 BuildResult；调用方负责 defer result.Close()
// Build initializes in dependency order and returns BuildResult; caller must defer result.Close()
func Build(ctx context.Context, cfg config.Config, opts Options) (*BuildResult, error) {
	store, err := openStore(cfg, opts.Ephemeral)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if !opts.Ephemeral {
		if migrated, migErr := storage.MigrateLegacyFiles(cfg.Storage.BaseDir, store); migErr != nil {
			observability.Logger().Warn("legacy credential migration failed", "err", migErr)
		} else if migrated > 0 {
			observability.Logger().Info("migrated legacy credential files", "count", migrated)
		}
	}

	client := api.NewClient(cfg.API)
	authStore := auth.New(store, client)
	client.SetUnauthorizedHandler(authStore.HandleUnauthorized)

	cache := history.New(client, cfg.History.PageLimit)
	sessions := session.New(store, client, cache)
	authStore.Subscribe(sessions.OnAuthChange)

	directory := agents.New(client)
	log := chat.NewLog()
	busy := &chat.Busy{}

	orch := orchestrator.New(orchestrator.Options{
		Tasks:    client,
		Agents:   directory,
		Sessions: sessions,
		History:  cache,
		Account:  authStore,
		Log:      log,
		Busy:     busy,
	})

	res := &BuildResult{
		Config:   cfg,
		Store:    store,
		Client:   client,
		Auth:     authStore,
		Sessions: sessions,
		History:  cache,
		Agents:   directory,
		Log:      log,
		Busy:     busy,
		Orch:     orch,
	}
	if !opts.SkipRestore {
		res.restore(ctx)
	}
	return res, nil
}

// Close 释放存储 / releases the store
func (r *BuildResult) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// restore 恢复令牌，再在已认证时恢复会话；失败只记录日志
// restore re-applies the token, then the session when authenticated; failures are only logged
func (r *BuildResult) restore(ctx context.Context) {
	if err := r.Auth.Restore(ctx); err != nil {
		observability.Logger().Warn("restore credentials", "err", err)
	}
	r.Sessions.Restore(r.Auth.IsAuthenticated())
}
