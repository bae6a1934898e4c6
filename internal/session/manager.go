package session

import (
	"context"
	"strings"
	"sync"

	"agentchat/internal/api"
	"agentchat/internal/observability"
	"agentchat/internal/storage"
)

// Remote 远端会话管理接口 / remote session management
type Remote interface {
	ListSessions(ctx context.Context) (*api.SessionList, error)
	CreateSession(ctx context.Context, req api.SessionCreateRequest) (*api.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// History 会话切换时驱动的历史缓存 / the history cache driven by session transitions
type History interface {
	LoadForSession(ctx context.Context, id string, skip, limit int) error
	Clear()
}

// Dispatcher 调度异步历史加载；默认新起 goroutine，测试中可同步执行
// Dispatcher schedules the async history load; a goroutine by default, synchronous in tests
type Dispatcher func(fn func())

// Manager 会话身份状态机：no-session / active(id)
// Manager is the session identity state machine: no-session or active(id)
type Manager struct {
	kv      storage.Store
	remote  Remote
	history History

	mu        sync.Mutex
	current   string
	dispatch  Dispatcher
	listeners []func(id string)
}

func New(kv storage.Store, remote Remote, history History) *Manager {
	return &Manager{
		kv:       kv,
		remote:   remote,
		history:  history,
		dispatch: func(fn func()) { go fn() },
	}
}

func (m *Manager) SetDispatcher(d Dispatcher) {
	if d == nil {
		return
	}
	m.mu.Lock()
	m.dispatch = d
	m.mu.Unlock()
}

// Subscribe 注册会话变化回调；id 为空表示 no-session
// Subscribe registers a session change callback; an empty id means no-session
func (m *Manager) Subscribe(fn func(id string)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != ""
}

// Restore 启动时，若已认证则采用持久化的会话 id
// Restore adopts the persisted session id at startup when authenticated
func (m *Manager) Restore(authenticated bool) {
	if !authenticated {
		return
	}
	id, ok, err := m.kv.Get(storage.KeyCurrentSessionID)
	if err != nil {
		observability.Logger().Warn("read persisted session id failed", "err", err)
		return
	}
	if !ok || strings.TrimSpace(id) == "" {
		return
	}
	m.activate(strings.TrimSpace(id))
}

// Adopt 仅在没有活动会话时采用后端返回的 id；返回是否采用
// Adopt takes a backend-supplied id only when no session is active and reports whether it did
func (m *Manager) Adopt(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	// 检查与赋值在同一临界区，并发的采用只有一个成功
	// check and set share one critical section so only one concurrent adoption wins
	m.mu.Lock()
	if m.current != "" {
		m.mu.Unlock()
		return false
	}
	m.current = id
	dispatch := m.dispatch
	m.mu.Unlock()
	m.activated(id, dispatch)
	return true
}

// Switch 显式切换会话（总会重新加载历史）；空 id 等同 Clear
// Switch explicitly changes session and always reloads history; an empty id clears
func (m *Manager) Switch(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		m.Clear()
		return
	}
	m.activate(id)
}

// Clear 回到 no-session，删除持久化 id，并同步清空历史缓存
// Clear returns to no-session, removes the persisted id and synchronously empties the history cache
func (m *Manager) Clear() {
	m.mu.Lock()
	was := m.current
	m.current = ""
	m.mu.Unlock()

	if err := m.kv.Delete(storage.KeyCurrentSessionID); err != nil {
		observability.Logger().Warn("delete persisted session id failed", "err", err)
	}
	m.history.Clear()
	if was != "" {
		observability.Logger().Info("session cleared", "session_id", was)
		m.notify("")
	}
}

// OnAuthChange 订阅凭据存储的认证信号；登出时清除会话
// OnAuthChange follows the credential store's signal; losing authentication clears the session
func (m *Manager) OnAuthChange(authenticated bool) {
	if !authenticated {
		m.Clear()
	}
}

func (m *Manager) List(ctx context.Context) ([]api.Session, error) {
	list, err := m.remote.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, nil
	}
	return list.Sessions, nil
}

// Create 创建远端会话并切换过去 / creates a remote session and switches to it
func (m *Manager) Create(ctx context.Context, name string) (*api.Session, error) {
	sess, err := m.remote.CreateSession(ctx, api.SessionCreateRequest{Name: strings.TrimSpace(name)})
	if err != nil {
		return nil, err
	}
	m.Switch(sess.ID)
	return sess, nil
}

// Delete 删除远端会话；若为当前会话则清除
// Delete removes a remote session and clears it when it was current
func (m *Manager) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &api.ValidationError{Field: "id", Message: "Session id is required."}
	}
	if err := m.remote.DeleteSession(ctx, id); err != nil {
		return err
	}
	if cur, ok := m.Current(); ok && cur == id {
		m.Clear()
	}
	return nil
}

func (m *Manager) activate(id string) {
	m.mu.Lock()
	m.current = id
	dispatch := m.dispatch
	m.mu.Unlock()
	m.activated(id, dispatch)
}

// activated 在锁外完成持久化、通知与历史加载调度
// activated persists, notifies and schedules the history load outside the lock
func (m *Manager) activated(id string, dispatch Dispatcher) {
	if err := m.kv.Set(storage.KeyCurrentSessionID, id); err != nil {
		observability.Logger().Warn("persist session id failed", "err", err)
	}
	observability.Logger().Info("session active", "session_id", id)
	m.notify(id)

	dispatch(func() {
		// 排队期间会话可能已被清除或切换，此时不再加载
		// the session may have been cleared or switched while queued; skip the load then
		if cur, _ := m.Current(); cur != id {
			observability.Logger().Debug("skip stale history load", "session_id", id, "current", cur)
			return
		}
		// 错误已记录在历史缓存中 / the error is recorded on the cache itself
		_ = m.history.LoadForSession(context.Background(), id, 0, 0)
	})
}

func (m *Manager) notify(id string) {
	m.mu.Lock()
	listeners := append([]func(string){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
}
