package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"agentchat/internal/config"
	"agentchat/internal/observability"

	"github.com/google/uuid"
)

// Client 面向编排服务的 JSON HTTP 客户端，持有默认 Bearer 授权
// Client is the JSON HTTP client for the orchestrator service and holds the default bearer authorization
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

func NewClient(cfg config.APIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetToken 设置后续请求的 Bearer token；空串表示移除
// SetToken sets the bearer token for later requests; an empty string removes it
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetUnauthorizedHandler 注册已认证请求收到 401 时的回调
// SetUnauthorizedHandler registers the hook run when an authenticated call gets a 401
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	resp, body, err := c.send(ctx, http.MethodPost, "/auth/login", req, false, OpLogin)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, credentialError(OpLogin, resp.StatusCode, body)
	}
	var out TokenResponse
	if err := decodeBody(OpLogin, body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, &AuthError{
			Kind:    AuthRejected,
			Status:  resp.StatusCode,
			Message: "Login completed but no token was provided by the server.",
		}
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	resp, body, err := c.send(ctx, http.MethodPost, "/auth/signup", req, false, OpSignup)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusAccepted {
		msg := parseDetail(body)
		if msg == "" {
			msg = "Signup successful. Please check your email to confirm your account."
		}
		return nil, &AuthError{Kind: AuthConfirmationPending, Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, credentialError(OpSignup, resp.StatusCode, body)
	}
	var out TokenResponse
	if err := decodeBody(OpSignup, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var out UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out, OpMe); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Agents & Tasks ---

func (c *Client) ListAgents(ctx context.Context) ([]AgentInfo, error) {
	var wrapper struct {
		Agents []AgentInfo `json:"agents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/agents", nil, &wrapper, OpListAgents); err != nil {
		return nil, err
	}
	if wrapper.Agents == nil {
		return []AgentInfo{}, nil
	}
	return wrapper.Agents, nil
}

func (c *Client) PostTask(ctx context.Context, req TaskRequest) (*Task, error) {
	var out Task
	if err := c.doJSON(ctx, http.MethodPost, "/agents/orchestrator/tasks", req, &out, OpPostTask); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Sessions ---

func (c *Client) ListSessions(ctx context.Context) (*SessionList, error) {
	var out SessionList
	if err := c.doJSON(ctx, http.MethodGet, "/sessions/", nil, &out, OpListSessions); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, req SessionCreateRequest) (*Session, error) {
	var out Session
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/", req, &out, OpCreateSession); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil, OpDeleteSession)
}

func (c *Client) SessionMessages(ctx context.Context, id string, skip, limit int) (*MessageList, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	path := "/sessions/" + url.PathEscape(id) + "/messages?" + q.Encode()

	var out MessageList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, OpSessionMessages); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Helpers ---

// doJSON 发送已认证请求；401 先触发 onUnauthorized 再返回 AuthError{expired}
// doJSON sends an authenticated request; a 401 runs onUnauthorized and returns AuthError{expired}
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, op string) error {
	resp, body, err := c.send(ctx, method, path, in, true, op)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook()
		}
		msg := parseDetail(body)
		if msg == "" {
			msg = "Your session has expired. Please log in again."
		}
		return &AuthError{Kind: AuthExpired, Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{Op: op, Status: resp.StatusCode, Detail: parseDetail(body)}
	}
	if out == nil {
		return nil
	}
	return decodeBody(op, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, in any, authed bool, op string) (*http.Response, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := observability.LoggerFromContext(observability.WithRequestID(ctx, requestID))
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("api request failed", "op", op, "method", method, "path", path, "err", err)
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: fmt.Errorf("read %s response: %w", op, err)}
	}
	log.Debug("api request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return resp, body, nil
}

func decodeBody(op string, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

// credentialError 登录/注册的 4xx 视为凭据被拒，其余为后端错误
// credentialError maps 4xx on login/signup to rejected credentials and anything else to a backend error
func credentialError(op string, status int, body []byte) error {
	detail := parseDetail(body)
	if status >= 400 && status < 500 {
		msg := detail
		if msg == "" {
			msg = fallbackMessage(op)
		}
		return &AuthError{Kind: AuthRejected, Status: status, Message: msg}
	}
	return &BackendError{Op: op, Status: status, Detail: detail}
}
