package history

import (
	"context"
	"sort"
	"strings"
	"sync"

	"agentchat/internal/api"
	"agentchat/internal/observability"
)

// DefaultPageLimit 默认拉取最近 200 条
// DefaultPageLimit fetches the most recent 200 messages
const DefaultPageLimit = 200

// Fetcher 拉取会话消息窗口
// Fetcher loads a window of session messages
type Fetcher interface {
	SessionMessages(ctx context.Context, id string, skip, limit int) (*api.MessageList, error)
}

// Stats 历史缓存统计 / history cache statistics
type Stats struct {
	Messages int
	Tokens   int
	Precise  bool
}

// Cache 当前会话的消息历史：按 id 去重，按 order 升序
// Cache holds the current session's history, unique by id and sorted ascending by order
type Cache struct {
	fetcher   Fetcher
	pageLimit int

	mu        sync.Mutex
	sessionID string
	messages  []api.Message
	loading   bool
	err       string
	gen       uint64
	counter   TokenCounter
	listeners []func()
}

func New(fetcher Fetcher, pageLimit int) *Cache {
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	return &Cache{fetcher: fetcher, pageLimit: pageLimit}
}

// SetTokenCounter 替换 Stats 使用的计数器 / replaces the counter used by Stats
func (c *Cache) SetTokenCounter(counter TokenCounter) {
	c.mu.Lock()
	c.counter = counter
	c.mu.Unlock()
}

// Subscribe 注册内容变化回调 / registers a change callback
func (c *Cache) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Cache) PageLimit() int { return c.pageLimit }

// LoadForSession 拉取会话消息并整体替换缓存；失败时清空并记录错误。
// 返回时若会话已切换或被清除，结果被丢弃。
// LoadForSession fetches the session window and replaces the cache wholesale; on failure the
// cache is emptied and the error recorded. A result for a session that is no longer current is discarded.
func (c *Cache) LoadForSession(ctx context.Context, id string, skip, limit int) error {
	id = strings.TrimSpace(id)
	if id == "" {
		c.Clear()
		return nil
	}
	// 未指定窗口时取最近的一页 / no explicit window means the most recent page
	latest := skip <= 0 && limit <= 0
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = c.pageLimit
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.sessionID = id
	c.loading = true
	c.err = ""
	c.mu.Unlock()
	c.notify()

	log := observability.LoggerFromContext(ctx).With("session_id", id)
	list, err := c.fetcher.SessionMessages(ctx, id, skip, limit)
	// 后端按 order 升序分页，count 为总数；超出窗口时改取末尾一页
	// the backend pages oldest first and count is the total; refetch the tail when it overflows
	if err == nil && latest && list != nil && list.Count > limit && !c.stale(gen) {
		log.Debug("fetching latest history window", "count", list.Count, "skip", list.Count-limit)
		list, err = c.fetcher.SessionMessages(ctx, id, list.Count-limit, limit)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Debug("discarding stale history load")
		return nil
	}
	c.loading = false
	if err != nil {
		c.messages = nil
		c.err = api.ErrorText(err, "Failed to get session messages")
		c.mu.Unlock()
		log.Warn("history load failed", "err", err)
		c.notify()
		return err
	}
	var msgs []api.Message
	if list != nil {
		msgs = list.Messages
	}
	c.messages = normalize(msgs)
	n := len(c.messages)
	c.mu.Unlock()

	log.Debug("history loaded", "count", n)
	c.notify()
	return nil
}

func (c *Cache) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

// Merge 按 id 插入或忽略；返回是否插入。属于其他会话的消息被忽略。
// Merge inserts by id or ignores a duplicate and reports whether it inserted.
// Messages belonging to another session are ignored.
func (c *Cache) Merge(msg api.Message) bool {
	c.mu.Lock()
	if msg.ID == "" {
		c.mu.Unlock()
		return false
	}
	if c.sessionID != "" && msg.SessionID != "" && msg.SessionID != c.sessionID {
		c.mu.Unlock()
		return false
	}
	for _, m := range c.messages {
		if m.ID == msg.ID {
			c.mu.Unlock()
			return false
		}
	}
	idx := sort.Search(len(c.messages), func(i int) bool { return c.messages[i].Order > msg.Order })
	c.messages = append(c.messages, api.Message{})
	copy(c.messages[idx+1:], c.messages[idx:])
	c.messages[idx] = msg
	c.mu.Unlock()

	c.notify()
	return true
}

// Clear 清空缓存并使进行中的加载失效
// Clear empties the cache and invalidates any in-flight load
func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.sessionID = ""
	c.messages = nil
	c.loading = false
	c.err = ""
	c.mu.Unlock()
	c.notify()
}

// Messages 返回副本 / returns a copy
func (c *Cache) Messages() []api.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Message(nil), c.messages...)
}

func (c *Cache) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Cache) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	if c.counter == nil {
		c.counter = DefaultTokenizer()
	}
	counter := c.counter
	msgs := append([]api.Message(nil), c.messages...)
	c.mu.Unlock()

	return Stats{
		Messages: len(msgs),
		Tokens:   CountMessages(counter, msgs),
		Precise:  counter.IsPrecise(),
	}
}

func (c *Cache) notify() {
	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// normalize 按 id 去重（保留首个）并按 order 稳定排序
// normalize dedups by id (first wins) and stable-sorts by order
func normalize(msgs []api.Message) []api.Message {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
