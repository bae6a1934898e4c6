package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"agentchat/internal/auth"
	"agentchat/internal/bootstrap"
	"agentchat/internal/config"
	"agentchat/internal/i18n"
)

func orchestratorServer(t *testing.T) *httptest.Server {
	srv, _ := countingServer(t)
	return srv
}

// countingServer 同 orchestratorServer，另外返回任务请求计数
// countingServer is orchestratorServer plus a count of task requests
func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tasks atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/orchestrator/tasks", func(w http.ResponseWriter, r *http.Request) {
		tasks.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "t1",
			"status":     map[string]any{"state": "completed"},
			"session_id": "s1",
			"response_message": map[string]any{
				"role":     "agent",
				"parts":    []map[string]string{{"type": "text", "text": "Hi there"}},
				"metadata": map[string]any{"agent_name": "Helper"},
			},
		})
	})
	mux.HandleFunc("/sessions/s1/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []any{}, "session_id": "s1"})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer"})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "a@b.c"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tasks
}

func signIn(t *testing.T, res *bootstrap.BuildResult) {
	t.Helper()
	if _, err := res.Auth.Login(context.Background(), "a@b.c", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func buildEphemeral(t *testing.T, baseURL string) *bootstrap.BuildResult {
	t.Helper()
	i18n.Init("en")
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.Storage.BaseDir = filepath.Join(t.TempDir(), "data")
	res, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{Ephemeral: true, SkipRestore: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = res.Close() })
	return res
}

type stubPrompter struct {
	creds bootstrap.Credentials
	got   bootstrap.CredentialRequest
}

func (s *stubPrompter) PromptCredentials(_ context.Context, req bootstrap.CredentialRequest) (bootstrap.Credentials, error) {
	s.got = req
	return s.creds, nil
}

func TestChooseTUI(t *testing.T) {
	tests := []struct {
		name        string
		opts        cliOptions
		mode        string
		interactive bool
		want        bool
	}{
		{"auto on terminal", cliOptions{}, config.UIModeAuto, true, true},
		{"auto piped", cliOptions{}, config.UIModeAuto, false, false},
		{"config repl", cliOptions{}, config.UIModeREPL, true, false},
		{"config tui", cliOptions{}, " TUI ", false, true},
		{"flag tui wins", cliOptions{useTUI: true}, config.UIModeREPL, false, true},
		{"flag repl wins", cliOptions{useREPL: true}, config.UIModeTUI, true, false},
	}
	for _, tt := range tests {
		if got := tt.opts.chooseTUI(tt.mode, tt.interactive); got != tt.want {
			t.Errorf("%s: chooseTUI=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSendMessagePrintsReply(t *testing.T) {
	res := buildEphemeral(t, orchestratorServer(t).URL)
	signIn(t, res)
	var out bytes.Buffer
	if err := sendMessage(context.Background(), res, "Hello", &out); err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Helper:") || !strings.Contains(got, "Hi there") {
		t.Fatalf("output missing agent reply: %q", got)
	}
	if !strings.Contains(got, "session: s1") {
		t.Fatalf("output missing adopted session: %q", got)
	}
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	res := buildEphemeral(t, orchestratorServer(t).URL)
	signIn(t, res)
	var out bytes.Buffer
	err := sendMessage(context.Background(), res, "   ", &out)
	if err == nil || err.Error() != "Message text is empty." {
		t.Fatalf("err=%v, want validation message", err)
	}
	if res.Log.Len() != 0 {
		t.Fatalf("blank text should not add entries, got %d", res.Log.Len())
	}
}

func TestSendMessageRequiresLogin(t *testing.T) {
	srv, tasks := countingServer(t)
	res := buildEphemeral(t, srv.URL)
	var out bytes.Buffer
	err := sendMessage(context.Background(), res, "Hello", &out)
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("err=%v, want ErrNotAuthenticated", err)
	}
	if n := tasks.Load(); n != 0 {
		t.Fatalf("task requests=%d, want 0", n)
	}
	if res.Log.Len() != 0 {
		t.Fatalf("signed-out send should not add entries, got %d", res.Log.Len())
	}
}

func TestLoginUsesPrompter(t *testing.T) {
	res := buildEphemeral(t, orchestratorServer(t).URL)
	prompter := &stubPrompter{creds: bootstrap.Credentials{Email: "a@b.c", Password: "secret"}}
	var out bytes.Buffer
	req := bootstrap.CredentialRequest{Email: "a@b.c"}
	if err := login(context.Background(), res, prompter, req, &out); err != nil {
		t.Fatalf("login: %v", err)
	}
	if prompter.got != req {
		t.Fatalf("prompter request=%+v, want %+v", prompter.got, req)
	}
	if got := strings.TrimSpace(out.String()); got != "Signed in as a@b.c" {
		t.Fatalf("output=%q", got)
	}
	if err := requireAuth(res); err != nil {
		t.Fatalf("requireAuth after login: %v", err)
	}
}

func TestRequireAuthWhenSignedOut(t *testing.T) {
	res := buildEphemeral(t, "http://127.0.0.1:0")
	if err := requireAuth(res); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("err=%v, want ErrNotAuthenticated", err)
	}
}

func TestInitProjectWritesBaseURL(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := initProject(dir, "https://orch.example.com/", &out); err != nil {
		t.Fatalf("initProject: %v", err)
	}
	path := filepath.Join(dir, ".agentchat", "config.json")
	if !strings.Contains(out.String(), path) {
		t.Fatalf("output=%q, want path %s", out.String(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg struct {
		API struct {
			BaseURL string `json:"base_url"`
		} `json:"api"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	if cfg.API.BaseURL != "https://orch.example.com" {
		t.Fatalf("base_url=%q", cfg.API.BaseURL)
	}
}

func TestRootCommandSendEndToEnd(t *testing.T) {
	srv := orchestratorServer(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AGENTCHAT_HOME", filepath.Join(home, ".agentchat"))
	t.Setenv("AGENTCHAT_API_URL", srv.URL)
	t.Setenv("AGENTCHAT_LANG", "en")
	// 旧版 token 文件会在启动时迁移 / a legacy token file is migrated on startup
	if err := os.MkdirAll(filepath.Join(home, ".agentchat"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".agentchat", "token"), []byte("tok\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"send", "Hello", "world"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v (stderr=%q)", err, errOut.String())
	}
	if !strings.Contains(out.String(), "Hi there") {
		t.Fatalf("stdout=%q", out.String())
	}
}

func TestRootCommandSendRequiresLogin(t *testing.T) {
	srv, tasks := countingServer(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AGENTCHAT_HOME", filepath.Join(home, ".agentchat"))
	t.Setenv("AGENTCHAT_API_URL", srv.URL)

	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"send", "--ephemeral", "Hello"})
	if err := root.Execute(); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("err=%v, want ErrNotAuthenticated", err)
	}
	if n := tasks.Load(); n != 0 {
		t.Fatalf("task requests=%d, want 0", n)
	}
}

func TestRootCommandWhoamiRequiresLogin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AGENTCHAT_HOME", filepath.Join(home, ".agentchat"))

	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"whoami", "--ephemeral"})
	err := root.Execute()
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("err=%v, want ErrNotAuthenticated", err)
	}
}
