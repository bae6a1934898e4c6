package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agentchat/internal/api"
	"agentchat/internal/history"
	"agentchat/internal/i18n"
)

type fakeAccount struct {
	authed     bool
	profile    *api.UserProfile
	fetched    *api.UserProfile
	loggedOut  int
	fetchCalls int
}

func (f *fakeAccount) IsAuthenticated() bool     { return f.authed }
func (f *fakeAccount) Profile() *api.UserProfile { return f.profile }

func (f *fakeAccount) Logout(context.Context) {
	f.loggedOut++
	f.authed = false
}

func (f *fakeAccount) FetchProfile(context.Context) error {
	f.fetchCalls++
	f.profile = f.fetched
	return nil
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		cmd  string
		args string
		ok   bool
	}{
		{"/help", "help", "", true},
		{"  /USE  s-1 ", "use", "s-1", true},
		{"/new my project", "new", "my project", true},
		{"/", "", "", true},
		{"hello /help", "", "", false},
	}
	for _, tt := range tests {
		cmd, args, ok := ParseCommand(tt.in)
		if cmd != tt.cmd || args != tt.args || ok != tt.ok {
			t.Errorf("ParseCommand(%q)=(%q,%q,%v), want (%q,%q,%v)", tt.in, cmd, args, ok, tt.cmd, tt.args, tt.ok)
		}
	}
}

func TestRunCommand_Sentinels(t *testing.T) {
	o := newTestOrchestrator(&fakePoster{}, &fakeAgents{}, &fakeSessions{})
	if _, err := o.RunCommand(context.Background(), "quit", ""); !errors.Is(err, ErrQuit) {
		t.Fatalf("quit err=%v, want ErrQuit", err)
	}
	if _, err := o.RunCommand(context.Background(), "login", ""); !errors.Is(err, ErrInteractive) {
		t.Fatalf("login err=%v, want ErrInteractive", err)
	}
}

func TestRunCommand_HelpAndUnknown(t *testing.T) {
	i18n.Init("en")
	o := newTestOrchestrator(&fakePoster{}, &fakeAgents{}, &fakeSessions{})
	help, err := o.RunCommand(context.Background(), "help", "")
	if err != nil || !strings.Contains(help, "/sessions") || !strings.HasPrefix(help, "Commands:") {
		t.Fatalf("help=%q err=%v", help, err)
	}
	got, _ := o.RunCommand(context.Background(), "bogus", "")
	if got != "Unknown command: /bogus (try /help)" {
		t.Fatalf("unknown=%q", got)
	}
}

func TestRunCommand_Sessions(t *testing.T) {
	i18n.Init("en")
	sessions := &fakeSessions{
		current: "s-2",
		list: []api.Session{
			{ID: "s-1", Name: "first"},
			{ID: "s-2", Name: "second"},
		},
		created: &api.Session{ID: "s-3"},
	}
	o := newTestOrchestrator(&fakePoster{}, &fakeAgents{}, sessions)
	ctx := context.Background()

	out, _ := o.RunCommand(ctx, "sessions", "")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "  s-1") || !strings.HasPrefix(lines[1], "* s-2") {
		t.Fatalf("sessions=%q", out)
	}

	if out, _ := o.RunCommand(ctx, "new", "third"); out != "New session: s-3" {
		t.Fatalf("new=%q", out)
	}
	if out, _ := o.RunCommand(ctx, "use", "s-1"); out != "Switched to session: s-1" || sessions.current != "s-1" {
		t.Fatalf("use=%q current=%q", out, sessions.current)
	}
	if out, _ := o.RunCommand(ctx, "use", ""); out != "Usage: /use <id>" {
		t.Fatalf("use without id=%q", out)
	}
	if out, _ := o.RunCommand(ctx, "delete", "s-1"); out != "Deleted session: s-1" || sessions.current != "" {
		t.Fatalf("delete=%q current=%q", out, sessions.current)
	}

	sessions.err = &api.BackendError{Op: api.OpListSessions, Status: 500, Detail: "db down"}
	if out, _ := o.RunCommand(ctx, "sessions", ""); out != "Session error: db down" {
		t.Fatalf("sessions error=%q", out)
	}
}

func TestRunCommand_History(t *testing.T) {
	i18n.Init("en")
	sessions := &fakeSessions{}
	hist := &fakeHistory{
		msgs: []api.Message{
			{ID: "m1", Role: "user", Content: "hello", Order: 1},
			{ID: "m2", Role: "agent", Content: "hi\nthere", Order: 2},
		},
		stats: history.Stats{Messages: 2, Tokens: 17},
	}
	o := New(Options{Tasks: &fakePoster{}, Sessions: sessions, History: hist})
	ctx := context.Background()

	if out, _ := o.RunCommand(ctx, "history", ""); out != "No active session" {
		t.Fatalf("history without session=%q", out)
	}

	sessions.current = "s-1"
	out, _ := o.RunCommand(ctx, "history", "1")
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("history lines=%q", lines)
	}
	if lines[1] != "Messages: 2  Tokens: 17 (estimated)" {
		t.Fatalf("stats line=%q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "hi there") {
		t.Fatalf("last line=%q, want flattened newest message", lines[2])
	}

	hist.err = "boom"
	if out, _ := o.RunCommand(ctx, "history", ""); out != "History failed to load: boom" {
		t.Fatalf("history error=%q", out)
	}
}

func TestRunCommand_WhoamiAndLogout(t *testing.T) {
	i18n.Init("en")
	account := &fakeAccount{authed: true, fetched: &api.UserProfile{ID: "u1", Email: "a@b.c", DisplayName: "Ann"}}
	o := New(Options{Tasks: &fakePoster{}, Sessions: &fakeSessions{}, Account: account})
	ctx := context.Background()

	if out, _ := o.RunCommand(ctx, "whoami", ""); out != "Ann <a@b.c> id=u1" {
		t.Fatalf("whoami=%q", out)
	}
	if account.fetchCalls != 1 {
		t.Fatalf("fetchCalls=%d, want 1", account.fetchCalls)
	}

	o.Log().AddUser("hi")
	if out, _ := o.RunCommand(ctx, "logout", ""); out != "Signed out" {
		t.Fatalf("logout=%q", out)
	}
	if account.loggedOut != 1 || o.Log().Len() != 0 {
		t.Fatalf("loggedOut=%d entries=%d", account.loggedOut, o.Log().Len())
	}
	if out, _ := o.RunCommand(ctx, "whoami", ""); out != "Not signed in. Use /login first." {
		t.Fatalf("whoami after logout=%q", out)
	}
}

func TestRunCommand_Agents(t *testing.T) {
	i18n.Init("en")
	agents := &fakeAgents{agents: []api.AgentInfo{{ID: "a1", Name: "Researcher", Description: "finds things"}}}
	o := newTestOrchestrator(&fakePoster{}, agents, &fakeSessions{})
	out, _ := o.RunCommand(context.Background(), "agents", "")
	if !strings.HasPrefix(out, "Researcher") || !strings.HasSuffix(out, "finds things") {
		t.Fatalf("agents=%q", out)
	}
	if o.Log().Len() != 0 {
		t.Fatalf("/agents should not touch the conversation, entries=%d", o.Log().Len())
	}
}
