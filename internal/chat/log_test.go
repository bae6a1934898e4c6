package chat

import (
	"testing"

	"agentchat/internal/api"
)

func TestLogEntries(t *testing.T) {
	l := NewLog()
	var seen []Sender
	l.Subscribe(func(e Entry) { seen = append(seen, e.Sender) })

	u := l.AddUser("hi")
	a := l.AddAgent("hello", "Helper")
	s := l.AddSystem("note")
	list := l.AddAgentList([]api.AgentInfo{{ID: "1", Name: "A"}})

	if u.ID == "" || u.ID == a.ID {
		t.Fatalf("ids must be unique and non-empty: %q %q", u.ID, a.ID)
	}
	if a.AgentName != "Helper" || a.Sender != SenderAgent {
		t.Fatalf("agent entry=%+v", a)
	}
	if s.AgentName != SystemName || s.Sender != SenderSystem || s.DisplayType != DisplayText {
		t.Fatalf("system entry=%+v", s)
	}
	if list.DisplayType != DisplayAgentList || len(list.Agents) != 1 || list.Text != "" {
		t.Fatalf("agent list entry=%+v", list)
	}
	if l.Len() != 4 || len(seen) != 4 {
		t.Fatalf("len=%d seen=%v", l.Len(), seen)
	}

	l.Clear()
	if l.Len() != 0 {
		t.Fatal("Clear should empty the log")
	}
	if len(seen) != 5 || seen[4] != "" {
		t.Fatalf("Clear should notify with a zero entry, seen=%v", seen)
	}
}

func TestBusy(t *testing.T) {
	var b Busy
	var changes []bool
	b.Subscribe(func(v bool) { changes = append(changes, v) })
	b.Set(true)
	b.Set(true)
	b.Set(false)
	if b.Value() {
		t.Fatal("Value should be false")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Fatalf("changes=%v, want [true false]", changes)
	}
}
