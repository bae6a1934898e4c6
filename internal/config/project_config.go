package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InitProjectConfigScaffold 在指定目录下初始化项目级配置模板（./.agentchat/config.json）。
// InitProjectConfigScaffold writes a project-level config scaffold (./.agentchat/config.json) under dir.
func InitProjectConfigScaffold(projectDir string) (string, error) {
	dir := filepath.Join(strings.TrimSpace(projectDir), ".agentchat")
	path := filepath.Join(dir, "config.json")

	// 已存在则尊重用户现有配置 / keep an existing config untouched
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("project config path is a directory: %s", path)
		}
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat project config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir .agentchat: %w", err)
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write project config: %w", err)
	}
	return path, nil
}

// WriteAPIBaseURL 将 api.base_url 写入项目配置（./.agentchat/config.json）；目录不存在则创建
// WriteAPIBaseURL writes api.base_url to project config (./.agentchat/config.json); creates dir if needed
func WriteAPIBaseURL(projectDir, baseURL string) error {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return errors.New("base url is empty")
	}
	dir := filepath.Join(strings.TrimSpace(projectDir), ".agentchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir .agentchat: %w", err)
	}
	path := filepath.Join(dir, "config.json")
	var out map[string]any
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(stripJSONComments(data), &out); err != nil {
			out = nil
		}
	}
	if out == nil {
		out = make(map[string]any)
	}
	apiMap, _ := out["api"].(map[string]any)
	if apiMap == nil {
		apiMap = make(map[string]any)
	}
	apiMap["base_url"] = baseURL
	out["api"] = apiMap
	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
