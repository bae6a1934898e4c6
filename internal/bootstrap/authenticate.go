package bootstrap

import (
	"context"

	"agentchat/internal/api"
	"agentchat/internal/auth"
	"agentchat/internal/i18n"
)

// Authenticate 用已收集的凭据登录或注册，返回展示文本。
// 注册待邮件确认时返回提示文本且 err 为空
// Authenticate signs in or signs up with collected credentials and returns the text to show.
// A signup awaiting email confirmation returns the hint with a nil error.
func Authenticate(ctx context.Context, store *auth.Store, creds Credentials, signup bool) (string, error) {
	var err error
	if signup {
		_, err = store.Signup(ctx, creds.Email, creds.Password, creds.DisplayName)
	} else {
		_, err = store.Login(ctx, creds.Email, creds.Password)
	}
	switch {
	case err == nil:
	case api.IsAuthKind(err, api.AuthConfirmationPending):
		return api.ErrorText(err, i18n.T("auth.pending")), nil
	default:
		return "", err
	}

	name := creds.Email
	if p := store.Profile(); p != nil && p.DisplayName != "" {
		name = p.DisplayName
	}
	return i18n.T("auth.signed_in", name), nil
}
