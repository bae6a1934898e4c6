package bootstrap

import (
	"fmt"
	"strings"

	"agentchat/internal/config"
	"agentchat/internal/storage"
)

// openStore 按配置选择持久化后端 / picks the persistence backend from config
func openStore(cfg config.Config, ephemeral bool) (storage.Store, error) {
	if ephemeral {
		return storage.NewMemoryStore(), nil
	}
	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		return nil, fmt.Errorf("storage base dir is empty")
	}
	switch cfg.Storage.Backend {
	case config.StorageBackendFile:
		return storage.NewFileStore(cfg.Storage.BaseDir)
	case config.StorageBackendSQLite, "":
		return storage.NewSQLiteStore(cfg.DBPath())
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
