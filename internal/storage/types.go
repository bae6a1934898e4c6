package storage

import "time"

// 持久化键名 / Persisted key names
const (
	KeyAuthToken        = "auth_token"
	KeyRefreshToken     = "refresh_token"
	KeyAuthExpiresAt    = "auth_expires_at"
	KeyCurrentSessionID = "current_session_id"
)

// 认证日志事件 / Auth log events
const (
	AuthEventLogin        = "login"
	AuthEventSignup       = "signup"
	AuthEventLogout       = "logout"
	AuthEventRestore      = "restore"
	AuthEventUnauthorized = "unauthorized"
	AuthEventExpired      = "expired"
)

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func clampLimit(limit, total int) int {
	if limit <= 0 || limit > total {
		return total
	}
	return limit
}
