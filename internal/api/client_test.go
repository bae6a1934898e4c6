package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agentchat/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.APIConfig{BaseURL: srv.URL + "/", TimeoutMS: 5000})
}

func TestLoginSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("login must not carry authorization")
		}
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.c" || req.Password != "pw" {
			t.Fatalf("req=%+v", req)
		}
		_, _ = io.WriteString(w, `{"access_token":"tok","refresh_token":"ref","token_type":"bearer","expires_in":3600}`)
	})
	c.SetToken("stale")

	resp, err := c.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken != "tok" || resp.RefreshToken != "ref" || resp.ExpiresIn != 3600 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestLoginRejectedUsesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Invalid credentials"}`)
	})
	called := false
	c.SetUnauthorizedHandler(func() { called = true })

	_, err := c.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "bad"})
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Kind != AuthRejected {
		t.Fatalf("err=%v, want rejected AuthError", err)
	}
	if err.Error() != "Invalid credentials" {
		t.Fatalf("msg=%q, want %q", err.Error(), "Invalid credentials")
	}
	if called {
		t.Fatalf("login 401 must not trigger the unauthorized hook")
	}
}

func TestLoginWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token_type":"bearer"}`)
	})
	_, err := c.Login(context.Background(), LoginRequest{Email: "a", Password: "b"})
	if !IsAuthKind(err, AuthRejected) {
		t.Fatalf("err=%v, want rejected", err)
	}
}

func TestSignupConfirmationPending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.DisplayName != "Ann" {
			t.Fatalf("display_name=%q", req.DisplayName)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"detail":"Check your inbox"}`)
	})
	_, err := c.Signup(context.Background(), SignupRequest{Email: "a@b.c", Password: "pw", DisplayName: "Ann"})
	if !IsAuthKind(err, AuthConfirmationPending) {
		t.Fatalf("err=%v, want confirmation pending", err)
	}
	if err.Error() != "Check your inbox" {
		t.Fatalf("msg=%q", err.Error())
	}
}

func TestUnauthorizedTriggersHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization=%q", got)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.SetToken("tok")
	calls := 0
	c.SetUnauthorizedHandler(func() { calls++ })

	_, err := c.Me(context.Background())
	if !IsAuthKind(err, AuthExpired) {
		t.Fatalf("err=%v, want expired", err)
	}
	if calls != 1 {
		t.Fatalf("hook calls=%d, want 1", calls)
	}
}

func TestBackendErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail":"Session not found"}`, want: "Session not found"},
		{name: "validation list", body: `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, want: "field required; too short"},
		{name: "no detail", body: `oops`, want: "Failed to list sessions"},
		{name: "null detail", body: `{"detail":null}`, want: "Failed to list sessions"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.ListSessions(context.Background())
			var be *BackendError
			if !errors.As(err, &be) || be.Status != 500 {
				t.Fatalf("err=%v, want BackendError 500", err)
			}
			if err.Error() != tc.want {
				t.Fatalf("msg=%q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(config.APIConfig{BaseURL: base, TimeoutMS: 1000})
	_, err := c.ListAgents(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err=%T %v, want TransportError", err, err)
	}
	if strings.TrimSpace(err.Error()) == "" {
		t.Fatalf("transport error message must not be empty")
	}
}

func TestPostTaskPayload(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantKey   bool
	}{
		{name: "no session", sessionID: "", wantKey: false},
		{name: "with session", sessionID: "s1", wantKey: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/agents/orchestrator/tasks" {
					t.Fatalf("path=%q", r.URL.Path)
				}
				var raw map[string]any
				_ = json.NewDecoder(r.Body).Decode(&raw)
				_, has := raw["session_id"]
				if has != tc.wantKey {
					t.Fatalf("session_id present=%v, want %v (%v)", has, tc.wantKey, raw)
				}
				msg := raw["message"].(map[string]any)
				if msg["role"] != "user" {
					t.Fatalf("role=%v", msg["role"])
				}
				parts := msg["parts"].([]any)
				if len(parts) != 1 || parts[0].(map[string]any)["text"] != "Hello" {
					t.Fatalf("parts=%v", parts)
				}
				_, _ = io.WriteString(w, `{"id":"t1","status":{"state":"completed","timestamp":"now"},
					"response_message":{"role":"agent","parts":[{"type":"text","text":"Hi there"}],"metadata":{"agent_name":"Helper"}},
					"session_id":"s9","created_at":"c","updated_at":"u"}`)
			})
			task, err := c.PostTask(context.Background(), NewTaskRequest("Hello", tc.sessionID))
			if err != nil {
				t.Fatalf("PostTask: %v", err)
			}
			if task.ID != "t1" || task.SessionID != "s9" {
				t.Fatalf("task=%+v", task)
			}
			if got := task.ResponseMessage.FirstText(); got != "Hi there" {
				t.Fatalf("FirstText=%q", got)
			}
			if got := task.ResponseMessage.MetadataString("agent_name"); got != "Helper" {
				t.Fatalf("agent_name=%q", got)
			}
		})
	}
}

func TestSessionMessagesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/s1/messages" {
			t.Fatalf("path=%q", r.URL.Path)
		}
		if r.URL.Query().Get("skip") != "0" || r.URL.Query().Get("limit") != "200" {
			t.Fatalf("query=%q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"messages":[{"id":"m1","session_id":"s1","user_id":"u","role":"user","content":null,"timestamp":"2024-01-01T00:00:00","order":3}],"session_id":"s1","count":1,"skip":0,"limit":200}`)
	})
	list, err := c.SessionMessages(context.Background(), "s1", 0, 200)
	if err != nil {
		t.Fatalf("SessionMessages: %v", err)
	}
	if len(list.Messages) != 1 || list.Messages[0].Order != 3 || list.Messages[0].Content != "" {
		t.Fatalf("list=%+v", list)
	}
}

func TestListAgentsEmptyPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	agents, err := c.ListAgents(context.Background())
	if err != nil || agents == nil || len(agents) != 0 {
		t.Fatalf("agents=%v err=%v, want empty non-nil", agents, err)
	}
}

func TestDeleteSessionNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/sessions/s1" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
}

func TestErrorTextFallback(t *testing.T) {
	if got := ErrorText(nil, "fallback"); got != "fallback" {
		t.Fatalf("ErrorText(nil)=%q", got)
	}
	if got := ErrorText(errors.New("  "), "fallback"); got != "fallback" {
		t.Fatalf("ErrorText(blank)=%q", got)
	}
	if got := ErrorText(&BackendError{Op: OpPostTask, Status: 502}, "x"); got != "Failed to post task to orchestrator" {
		t.Fatalf("ErrorText(backend)=%q", got)
	}
}
