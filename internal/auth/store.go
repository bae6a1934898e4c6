package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"agentchat/internal/api"
	"agentchat/internal/observability"
	"agentchat/internal/storage"
)

// Transport 凭据存储依赖的后端接口
// Transport is the backend surface the credential store depends on
type Transport interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.TokenResponse, error)
	Me(ctx context.Context) (*api.UserProfile, error)
	SetToken(token string)
}

// Credential 访问令牌及可选的刷新令牌和过期时间
// Credential is the access token plus optional refresh token and expiry
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       *time.Time
}

// Expired reports whether the credential has a known expiry at or before now.
func (c Credential) Expired(now time.Time) bool {
	return c.Expiry != nil && !now.Before(*c.Expiry)
}

// Listener 认证信号监听器；仅在状态真正变化时调用
// Listener observes the auth signal; it runs only on actual transitions
type Listener func(authenticated bool)

// Store 凭据存储：持久化令牌、维护认证信号、缓存用户资料
// Store persists tokens, owns the authentication signal and caches the user profile
type Store struct {
	kv        storage.Store
	transport Transport
	now       func() time.Time

	mu            sync.Mutex
	authenticated bool
	profile       *api.UserProfile
	loading       bool
	lastErr       string
	listeners     []Listener
}

func New(kv storage.Store, transport Transport) *Store {
	return &Store{
		kv:        kv,
		transport: transport,
		now:       time.Now,
	}
}

// Subscribe 注册认证信号监听器，按注册顺序同步调用
// Subscribe registers a listener; listeners run synchronously in subscription order
func (s *Store) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// CurrentToken 同步读取持久化的访问令牌；"" 表示没有
// CurrentToken reads the persisted access token synchronously; "" means none
func (s *Store) CurrentToken() string {
	token, ok, err := s.kv.Get(storage.KeyAuthToken)
	if err != nil || !ok {
		return ""
	}
	return token
}

// Credential 返回当前持久化的凭据
// Credential returns the currently persisted credential
func (s *Store) Credential() (Credential, bool) {
	token := s.CurrentToken()
	if token == "" {
		return Credential{}, false
	}
	cred := Credential{AccessToken: token, TokenType: "bearer"}
	if refresh, ok, _ := s.kv.Get(storage.KeyRefreshToken); ok {
		cred.RefreshToken = refresh
	}
	if raw, ok, _ := s.kv.Get(storage.KeyAuthExpiresAt); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cred.Expiry = &t
		}
	}
	return cred, true
}

func (s *Store) Profile() *api.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError 最近一次认证操作的错误文本
// LastError is the error text of the most recent auth operation
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) Login(ctx context.Context, email, password string) (Credential, error) {
	if err := validateCredentials(email, password); err != nil {
		return Credential{}, err
	}
	s.begin()
	defer s.setLoading(false)

	resp, err := s.transport.Login(ctx, api.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		s.fail(err)
		s.clear(storage.AuthEventLogout, "login failed")
		return Credential{}, err
	}
	cred, err := s.adopt(resp)
	if err != nil {
		s.fail(err)
		s.clear(storage.AuthEventLogout, "login failed")
		return Credential{}, err
	}
	s.audit(storage.AuthEventLogin, email, "")
	observability.LoggerFromContext(ctx).Info("auth login", "email", email)

	if err := s.FetchProfile(ctx); err != nil && api.IsAuthKind(err, api.AuthExpired) {
		return Credential{}, err
	}
	return cred, nil
}

// Signup 注册；待邮件确认时返回 AuthError{confirmation_pending} 且不清除状态
// Signup registers; a pending confirmation returns AuthError{confirmation_pending} and leaves state untouched
func (s *Store) Signup(ctx context.Context, email, password, displayName string) (Credential, error) {
	if err := validateCredentials(email, password); err != nil {
		return Credential{}, err
	}
	s.begin()
	defer s.setLoading(false)

	resp, err := s.transport.Signup(ctx, api.SignupRequest{
		Email:       strings.TrimSpace(email),
		Password:    password,
		DisplayName: strings.TrimSpace(displayName),
	})
	if err != nil {
		s.fail(err)
		if api.IsAuthKind(err, api.AuthConfirmationPending) {
			s.audit(storage.AuthEventSignup, email, "confirmation pending")
			return Credential{}, err
		}
		s.clear(storage.AuthEventLogout, "signup failed")
		return Credential{}, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		// 注册成功但未签发令牌，按待确认处理 / no token issued: treat as pending confirmation
		err := &api.AuthError{
			Kind:    api.AuthConfirmationPending,
			Message: "Signup successful. Please confirm your account before logging in.",
		}
		s.fail(err)
		return Credential{}, err
	}
	cred, err := s.adopt(resp)
	if err != nil {
		s.fail(err)
		s.clear(storage.AuthEventLogout, "signup failed")
		return Credential{}, err
	}
	s.audit(storage.AuthEventSignup, email, "")

	if err := s.FetchProfile(ctx); err != nil && api.IsAuthKind(err, api.AuthExpired) {
		return Credential{}, err
	}
	return cred, nil
}

// Logout 清除令牌、资料和传输层授权；重复调用无副作用
// Logout clears tokens, profile and transport authorization; repeated calls are no-ops
func (s *Store) Logout(ctx context.Context) {
	observability.LoggerFromContext(ctx).Info("auth logout")
	s.clear(storage.AuthEventLogout, "")
}

// HandleUnauthorized 传输层在已认证请求收到 401 时调用
// HandleUnauthorized is called by the transport when an authenticated call gets a 401
func (s *Store) HandleUnauthorized() {
	observability.Logger().Warn("auth rejected by backend, clearing credentials")
	s.clear(storage.AuthEventUnauthorized, "401 from backend")
}

// Restore 启动时恢复持久化令牌并拉取用户资料；令牌已过期则清除
// Restore re-applies a persisted token at startup and fetches the profile; an expired token is cleared
func (s *Store) Restore(ctx context.Context) error {
	cred, ok := s.Credential()
	if !ok {
		return nil
	}
	if cred.Expired(s.now()) {
		s.clear(storage.AuthEventExpired, "token expired before restore")
		return &api.AuthError{Kind: api.AuthExpired, Message: "Your session has expired. Please log in again."}
	}
	s.transport.SetToken(cred.AccessToken)
	s.audit(storage.AuthEventRestore, "", "")
	s.setAuthenticated(true)
	return s.FetchProfile(ctx)
}

// FetchProfile 拉取 /auth/me；401 时清除认证数据
// FetchProfile loads /auth/me; a 401 clears the auth data
func (s *Store) FetchProfile(ctx context.Context) error {
	if s.CurrentToken() == "" {
		s.mu.Lock()
		s.profile = nil
		s.mu.Unlock()
		return nil
	}
	profile, err := s.transport.Me(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = "Could not fetch user details."
		s.mu.Unlock()
		if api.IsAuthKind(err, api.AuthExpired) {
			s.clear(storage.AuthEventUnauthorized, "profile fetch rejected")
		}
		observability.LoggerFromContext(ctx).Warn("fetch profile failed", "err", err)
		return err
	}
	s.mu.Lock()
	s.profile = profile
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) adopt(resp *api.TokenResponse) (Credential, error) {
	if resp == nil || strings.TrimSpace(resp.AccessToken) == "" {
		return Credential{}, &api.AuthError{Kind: api.AuthRejected, Message: "Login completed but no token was provided by the server."}
	}
	cred := Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		exp := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
		cred.Expiry = &exp
	}

	if err := s.kv.Set(storage.KeyAuthToken, cred.AccessToken); err != nil {
		return Credential{}, err
	}
	if cred.RefreshToken != "" {
		if err := s.kv.Set(storage.KeyRefreshToken, cred.RefreshToken); err != nil {
			return Credential{}, err
		}
	} else {
		_ = s.kv.Delete(storage.KeyRefreshToken)
	}
	if cred.Expiry != nil {
		if err := s.kv.Set(storage.KeyAuthExpiresAt, cred.Expiry.Format(time.RFC3339)); err != nil {
			return Credential{}, err
		}
	} else {
		_ = s.kv.Delete(storage.KeyAuthExpiresAt)
	}

	s.transport.SetToken(cred.AccessToken)
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.setAuthenticated(true)
	return cred, nil
}

// clear 清除认证数据；仅在状态变化时写审计日志并通知
// clear drops the auth data; the audit entry and notification happen only on a transition
func (s *Store) clear(event, detail string) {
	for _, key := range []string{storage.KeyAuthToken, storage.KeyRefreshToken, storage.KeyAuthExpiresAt} {
		if err := s.kv.Delete(key); err != nil {
			observability.Logger().Warn("clear credential key failed", "key", key, "err", err)
		}
	}
	s.transport.SetToken("")
	s.mu.Lock()
	s.profile = nil
	was := s.authenticated
	s.mu.Unlock()
	if was {
		s.audit(event, "", detail)
	}
	s.setAuthenticated(false)
}

func (s *Store) setAuthenticated(v bool) {
	s.mu.Lock()
	if s.authenticated == v {
		s.mu.Unlock()
		return
	}
	s.authenticated = v
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	observability.Logger().Debug("auth signal changed", "authenticated", v)
	for _, fn := range listeners {
		fn(v)
	}
}

func (s *Store) audit(event, subject, detail string) {
	if err := s.kv.LogAuth(storage.AuthEntry{Event: event, Subject: subject, Detail: detail}); err != nil {
		observability.Logger().Warn("auth audit log failed", "event", event, "err", err)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.lastErr = api.ErrorText(err, "Authentication failed")
	s.mu.Unlock()
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &api.ValidationError{Field: "email", Message: "Email is required."}
	}
	if password == "" {
		return &api.ValidationError{Field: "password", Message: "Password is required."}
	}
	return nil
}

// ErrNotAuthenticated 需要登录的操作在未登录时返回
// ErrNotAuthenticated is returned by operations that require a login
var ErrNotAuthenticated = errors.New("not logged in")
