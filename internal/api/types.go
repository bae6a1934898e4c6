package api

import (
	"fmt"
	"strings"
)

// TokenResponse from POST /auth/login and /auth/signup.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// LoginRequest for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest for POST /auth/signup.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserProfile from GET /auth/me.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// AgentInfo from GET /agents.
type AgentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MessagePart is one element of a task message; only text parts are interpreted.
type MessagePart struct {
	Type     string `json:"type,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Content  any    `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// TaskMessage is the request or response message of a task.
type TaskMessage struct {
	Role      string         `json:"role"`
	Parts     []MessagePart  `json:"parts"`
	Artifacts []any          `json:"artifacts,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FirstText 返回第一个 type=text 的部分的文本
// FirstText returns the text of the first part whose type is "text"
func (m *TaskMessage) FirstText() string {
	if m == nil {
		return ""
	}
	for _, p := range m.Parts {
		if p.Type == "text" {
			return p.Text
		}
	}
	return ""
}

// MetadataString 读取 metadata 中的非空值；非字符串值按 %v 格式化
// MetadataString reads a non-empty metadata value; non-string values are formatted with %v
func (m *TaskMessage) MetadataString(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	v, ok := m.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus struct {
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

// TaskRequest for POST /agents/orchestrator/tasks.
type TaskRequest struct {
	Message   TaskMessage `json:"message"`
	SessionID string      `json:"session_id,omitempty"`
}

// NewTaskRequest builds a single-text-part user message; sessionID is sent only when non-empty.
func NewTaskRequest(text, sessionID string) TaskRequest {
	return TaskRequest{
		Message: TaskMessage{
			Role:  "user",
			Parts: []MessagePart{{Text: text}},
		},
		SessionID: sessionID,
	}
}

// Task from POST /agents/orchestrator/tasks.
type Task struct {
	ID              string         `json:"id"`
	Status          TaskStatus     `json:"status"`
	RequestMessage  *TaskMessage   `json:"request_message,omitempty"`
	ResponseMessage *TaskMessage   `json:"response_message,omitempty"`
	History         []TaskMessage  `json:"history,omitempty"`
	Artifacts       []any          `json:"artifacts,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// Session from GET /sessions/ and POST /sessions/.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SessionList from GET /sessions/.
type SessionList struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

// SessionCreateRequest for POST /sessions/.
type SessionCreateRequest struct {
	Name string `json:"name,omitempty"`
}

// Message is a server-confirmed history entry; ordering is by Order, not Timestamp.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	Timestamp string         `json:"timestamp"`
	Order     int            `json:"order"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MessageList from GET /sessions/{id}/messages.
type MessageList struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"session_id"`
	Count     int       `json:"count"`
	Skip      int       `json:"skip"`
	Limit     int       `json:"limit"`
}
