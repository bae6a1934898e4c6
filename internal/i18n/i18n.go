package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// Catalog 一种语言的界面文案 / the UI strings of one language
type Catalog map[string]string

// 支持的界面语言；en 同时是缺失键的回退
// supported UI languages; en also backs missing keys
var catalogs = map[string]Catalog{
	"en":    EnMessages,
	"zh-CN": ZhCNMessages,
}

// localeEnv 按 POSIX 优先级排列，AGENTCHAT_LANG 最先
// localeEnv follows POSIX precedence with AGENTCHAT_LANG first
var localeEnv = []string{"AGENTCHAT_LANG", "LC_ALL", "LC_MESSAGES", "LANG"}

// I18n 一个已解析语言的只读翻译表
// I18n is the read-only string table of one resolved locale
type I18n struct {
	locale   string
	messages Catalog
}

var current atomic.Pointer[I18n]

// Global 返回当前实例；未调用 Init 时按环境检测
// Global returns the active instance, detecting from the environment when Init was never called
func Global() *I18n {
	if i := current.Load(); i != nil {
		return i
	}
	current.CompareAndSwap(nil, New(""))
	return current.Load()
}

// Init 以配置的 locale 替换全局实例并返回解析结果；空值或 "auto" 走环境检测
// Init replaces the global instance from the configured locale and returns what it
// resolved to; empty or "auto" falls back to environment detection
func Init(locale string) string {
	i := New(locale)
	current.Store(i)
	return i.locale
}

func T(key string, args ...any) string {
	return Global().T(key, args...)
}

func New(locale string) *I18n {
	locale = strings.TrimSpace(locale)
	if locale == "" || strings.EqualFold(locale, "auto") {
		locale = DetectLocale()
	}
	locale = resolveLocale(locale)

	messages := make(Catalog, len(EnMessages))
	for k, v := range catalogs["en"] {
		messages[k] = v
	}
	if locale != "en" {
		for k, v := range catalogs[locale] {
			messages[k] = v
		}
	}
	return &I18n{locale: locale, messages: messages}
}

// T 未知键原样返回 / returns an unknown key unchanged
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (i *I18n) Locale() string { return i.locale }

// DetectLocale 取第一个有意义的语言环境变量；C/POSIX 视为未设置
// DetectLocale takes the first meaningful locale variable; C and POSIX count as unset
func DetectLocale() string {
	for _, env := range localeEnv {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" || v == "C" || v == "POSIX" || strings.HasPrefix(v, "C.") {
			continue
		}
		return resolveLocale(v)
	}
	return "en"
}

// resolveLocale 把 zh_CN.UTF-8、en-US@euro 之类映射到已支持的语言，其余回退 en
// resolveLocale maps values like zh_CN.UTF-8 or en-US@euro onto a supported
// language; anything else falls back to en
func resolveLocale(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, ".@"); idx >= 0 {
		s = s[:idx]
	}
	lang, _, _ := strings.Cut(strings.ReplaceAll(s, "_", "-"), "-")
	switch strings.ToLower(lang) {
	case "zh":
		return "zh-CN"
	default:
		return "en"
	}
}
