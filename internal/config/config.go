package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type StorageConfig struct {
	// Backend: sqlite | file
	Backend string `json:"backend" yaml:"backend"`
	BaseDir string `json:"base_dir" yaml:"base_dir"`
	DBName  string `json:"db_name" yaml:"db_name"`
}

type HistoryConfig struct {
	// PageLimit 每次拉取的消息窗口大小（最近 N 条）。
	// PageLimit is the size of the fetched message window (most recent N).
	PageLimit int `json:"page_limit" yaml:"page_limit"`
}

type UIConfig struct {
	// Mode: auto | repl | tui
	Mode     string `json:"mode" yaml:"mode"`
	Markdown bool   `json:"markdown" yaml:"markdown"`
	Locale   string `json:"locale" yaml:"locale"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

type Config struct {
	API     APIConfig     `json:"api" yaml:"api"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	History HistoryConfig `json:"history" yaml:"history"`
	UI      UIConfig      `json:"ui" yaml:"ui"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

type fileUIConfig struct {
	Mode     *string `json:"mode" yaml:"mode"`
	Markdown *bool   `json:"markdown" yaml:"markdown"`
	Locale   *string `json:"locale" yaml:"locale"`
}

type fileConfig struct {
	API     *APIConfig     `json:"api" yaml:"api"`
	Storage *StorageConfig `json:"storage" yaml:"storage"`
	History *HistoryConfig `json:"history" yaml:"history"`
	UI      *fileUIConfig  `json:"ui" yaml:"ui"`
	Log     *LogConfig     `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   DefaultAPIBaseURL,
			TimeoutMS: DefaultAPITimeoutMS,
		},
		Storage: StorageConfig{
			Backend: StorageBackendSQLite,
			BaseDir: "~/.agentchat",
			DBName:  "agentchat.db",
		},
		History: HistoryConfig{
			PageLimit: DefaultHistoryPageLimit,
		},
		UI: UIConfig{
			Mode:     UIModeAuto,
			Markdown: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 按优先级合并配置：默认值 < 全局文件 < 项目文件（或 --config） < 环境变量
// Load merges config by precedence: defaults < global file < project file (or --config) < env
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("AGENTCHAT_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".agentchat")
	return []string{
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.yaml"),
	}
}

func findProjectConfigPath() string {
	candidates := []string{
		"agentchat.config.json",
		"agentchat.config.yaml",
		".agentchat/config.json",
		".agentchat/config.yaml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	var fileCfg fileConfig
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	default:
		cleaned := stripJSONComments(data)
		if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.API != nil {
		cfg.API = mergeAPI(cfg.API, *fc.API)
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.History != nil && fc.History.PageLimit > 0 {
		cfg.History.PageLimit = fc.History.PageLimit
	}
	if fc.UI != nil {
		if fc.UI.Mode != nil {
			cfg.UI.Mode = *fc.UI.Mode
		}
		if fc.UI.Markdown != nil {
			cfg.UI.Markdown = *fc.UI.Markdown
		}
		if fc.UI.Locale != nil {
			cfg.UI.Locale = *fc.UI.Locale
		}
	}
	if fc.Log != nil {
		if strings.TrimSpace(fc.Log.Level) != "" {
			cfg.Log.Level = fc.Log.Level
		}
		if strings.TrimSpace(fc.Log.File) != "" {
			cfg.Log.File = fc.Log.File
		}
	}
}

func mergeAPI(base APIConfig, override APIConfig) APIConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.DBName) != "" {
		base.DBName = override.DBName
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIBaseURL
	}
	if cfg.API.TimeoutMS <= 0 {
		cfg.API.TimeoutMS = DefaultAPITimeoutMS
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = storageDir
	if strings.TrimSpace(cfg.Storage.DBName) == "" {
		cfg.Storage.DBName = Default().Storage.DBName
	}
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)); backend {
	case StorageBackendSQLite, StorageBackendFile:
		cfg.Storage.Backend = backend
	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	if cfg.History.PageLimit <= 0 {
		cfg.History.PageLimit = DefaultHistoryPageLimit
	}

	switch mode := strings.ToLower(strings.TrimSpace(cfg.UI.Mode)); mode {
	case UIModeREPL, UIModeTUI, UIModeAuto:
		cfg.UI.Mode = mode
	default:
		cfg.UI.Mode = UIModeAuto
	}
	cfg.UI.Locale = strings.TrimSpace(cfg.UI.Locale)

	switch level := strings.ToLower(strings.TrimSpace(cfg.Log.Level)); level {
	case "debug", "info", "warn", "error":
		cfg.Log.Level = level
	default:
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.File) == "" {
		cfg.Log.File = filepath.Join(cfg.Storage.BaseDir, "logs", "agentchat.log")
	} else {
		logPath, err := expandPath(cfg.Log.File)
		if err != nil {
			return err
		}
		cfg.Log.File = logPath
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_API_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid AGENTCHAT_TIMEOUT_MS: %q", v)
		}
		cfg.API.TimeoutMS = n
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_HISTORY_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid AGENTCHAT_HISTORY_LIMIT: %q", v)
		}
		cfg.History.PageLimit = n
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_HOME")); v != "" {
		cfg.Storage.BaseDir = v
		// 日志路径跟随新的 home 目录 / log path follows the new home dir
		cfg.Log.File = ""
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCHAT_UI")); v != "" {
		cfg.UI.Mode = v
	}

	return cfg, normalize(&cfg)
}

// DBPath 返回 SQLite 数据库完整路径
// DBPath returns the full SQLite database path
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.BaseDir, c.Storage.DBName)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
