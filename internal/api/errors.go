package api

import (
	"encoding/json"
	"errors"
	"strings"
)

// AuthErrorKind 认证失败的类别 / category of an authentication failure
type AuthErrorKind string

const (
	AuthRejected            AuthErrorKind = "rejected"
	AuthConfirmationPending AuthErrorKind = "confirmation_pending"
	AuthExpired             AuthErrorKind = "expired"
)

// AuthError 登录/注册被拒、待邮件确认、或已认证请求返回 401
// AuthError covers rejected credentials, pending confirmation and 401 on authenticated calls
type AuthError struct {
	Kind    AuthErrorKind
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// TransportError 网络层失败（连接、超时、解码）
// TransportError is a network-level failure (connect, timeout, decode)
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil && strings.TrimSpace(e.Err.Error()) != "" {
		return e.Err.Error()
	}
	return fallbackMessage(e.Op)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError 后端返回非 2xx；Detail 来自响应体的 detail 字段
// BackendError is a non-2xx backend reply; Detail comes from the body's detail field
type BackendError struct {
	Op     string
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallbackMessage(e.Op)
}

// ValidationError 本地输入校验失败，不会发出网络请求
// ValidationError is a local input failure; no request is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// 操作名 / Operation names
const (
	OpLogin           = "login"
	OpSignup          = "signup"
	OpMe              = "me"
	OpListAgents      = "list_agents"
	OpPostTask        = "post_task"
	OpListSessions    = "list_sessions"
	OpCreateSession   = "create_session"
	OpDeleteSession   = "delete_session"
	OpSessionMessages = "session_messages"
)

var fallbackMessages = map[string]string{
	OpLogin:           "Login failed",
	OpSignup:          "Signup failed",
	OpMe:              "Failed to fetch user profile",
	OpListAgents:      "Failed to fetch available agents",
	OpPostTask:        "Failed to post task to orchestrator",
	OpListSessions:    "Failed to list sessions",
	OpCreateSession:   "Failed to create session",
	OpDeleteSession:   "Failed to delete session",
	OpSessionMessages: "Failed to get session messages",
}

func fallbackMessage(op string) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}

// ErrorText 将任意错误归一为一条可展示的文本；err 为空或无文本时使用 fallback
// ErrorText normalizes any error into one displayable string, using fallback when err is nil or blank
func ErrorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// IsAuthKind reports whether err is an *AuthError of the given kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == kind
}

// parseDetail 兼容 detail 为字符串、校验错误列表或任意 JSON 的情况
// parseDetail accepts detail as a string, a list of validation errors, or arbitrary JSON
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(body) == 0 || json.Unmarshal(body, &envelope) != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if string(envelope.Detail) == "null" {
		return ""
	}
	return strings.TrimSpace(string(envelope.Detail))
}
