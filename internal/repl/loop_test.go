package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"agentchat/internal/bootstrap"
	"agentchat/internal/config"
	"agentchat/internal/i18n"
)

type scriptedInput struct {
	lines   []string
	prompts []string
}

func (s *scriptedInput) next(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) ReadLine(prompt string) (string, error)     { return s.next(prompt) }
func (s *scriptedInput) ReadPassword(prompt string) (string, error) { return s.next(prompt) }
func (s *scriptedInput) Close() error                               { return nil }

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.c","display_name":"Ann"}`))
	})
	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"agents":[{"id":"a1","name":"Researcher","description":"finds things"}]}`))
	})
	mux.HandleFunc("/agents/orchestrator/tasks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id":"t1",
			"status":{"state":"completed"},
			"session_id":"sess-1234567890",
			"response_message":{"role":"agent","parts":[{"type":"text","text":"Hi there"}],"metadata":{"agent_name":"Helper"}}
		}`))
	})
	mux.HandleFunc("/sessions/sess-1234567890/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[],"session_id":"sess-1234567890"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestLoop(t *testing.T, lines ...string) (*Loop, *scriptedInput, *bytes.Buffer) {
	t.Helper()
	i18n.Init("en")
	srv := newBackend(t)
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.BaseDir = filepath.Join(t.TempDir(), "data")

	res, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{Ephemeral: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = res.Close() })

	in := &scriptedInput{lines: lines}
	var out bytes.Buffer
	return newLoop(res, in, &out, false, false), in, &out
}

func TestRun_LoginDiscoveryAndTask(t *testing.T) {
	loop, in, out := newTestLoop(t,
		"/login a@b.c",
		"pw",
		"list agents",
		"Hello",
		"/quit",
		"never read",
	)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Signed in as Ann",
		"[System] Agents:",
		"Researcher",
		"finds things",
		"Helper:\nHi there",
		"Session: sess-1234567890",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if len(in.lines) != 1 {
		t.Fatalf("remaining lines=%v, want /quit to stop reading", in.lines)
	}
	last := in.prompts[len(in.prompts)-1]
	if last != "[sess-123] > " {
		t.Fatalf("prompt after adoption=%q, want session prefix", last)
	}
}

func TestRun_LoginFailureShowsError(t *testing.T) {
	loop, _, out := newTestLoop(t, "/login a@b.c", "wrong")
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "error: Invalid login credentials") {
		t.Fatalf("output=%q, want login error", out.String())
	}
	if loop.res.Auth.IsAuthenticated() {
		t.Fatal("failed login should not authenticate")
	}
}

func TestRun_CommandsAndEOF(t *testing.T) {
	loop, _, out := newTestLoop(t, "/help", "/bogus", "   ", "/history")
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Commands:", "Unknown command: /bogus", "No active session"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_MessageBeforeLoginIsRefused(t *testing.T) {
	loop, _, out := newTestLoop(t, "Hello", "list agents")
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	if n := strings.Count(got, "error: Not signed in. Use /login first."); n != 2 {
		t.Fatalf("auth notices=%d, want 2:\n%s", n, got)
	}
	if strings.Contains(got, "Hi there") || strings.Contains(got, "Researcher") {
		t.Fatalf("signed-out input reached the backend:\n%s", got)
	}
	if n := loop.res.Log.Len(); n != 0 {
		t.Fatalf("entries=%d, want none", n)
	}
}
