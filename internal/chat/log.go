package chat

import (
	"sync"
	"time"

	"agentchat/internal/api"

	"github.com/google/uuid"
)

// Log 仅追加的对话条目列表 / append-only list of conversation entries
type Log struct {
	mu        sync.Mutex
	entries   []Entry
	listeners []func(Entry)
	now       func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

// Subscribe 注册新条目回调；Clear 时以零值 Entry 通知
// Subscribe registers a callback for new entries; Clear notifies with a zero Entry
func (l *Log) Subscribe(fn func(Entry)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Log) AddUser(text string) Entry {
	return l.add(Entry{Text: text, Sender: SenderUser, DisplayType: DisplayText})
}

func (l *Log) AddAgent(text, agentName string) Entry {
	return l.add(Entry{Text: text, Sender: SenderAgent, AgentName: agentName, DisplayType: DisplayText})
}

func (l *Log) AddSystem(text string) Entry {
	return l.add(Entry{Text: text, Sender: SenderSystem, AgentName: SystemName, DisplayType: DisplayText})
}

func (l *Log) AddAgentList(agents []api.AgentInfo) Entry {
	return l.add(Entry{
		Sender:      SenderSystem,
		AgentName:   SystemName,
		DisplayType: DisplayAgentList,
		Agents:      append([]api.AgentInfo(nil), agents...),
	})
}

// Entries 返回副本 / returns a copy
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	listeners := append([]func(Entry){}, l.listeners...)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(Entry{})
	}
}

func (l *Log) add(e Entry) Entry {
	e.ID = uuid.NewString()
	l.mu.Lock()
	e.Timestamp = l.now()
	l.entries = append(l.entries, e)
	listeners := append([]func(Entry){}, l.listeners...)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
	return e
}
