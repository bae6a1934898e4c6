package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// legacyFiles 旧版客户端的纯文本文件名 -> 键名
// legacyFiles maps plain-text files written by older clients to store keys
var legacyFiles = []struct {
	file string
	key  string
}{
	{"token", KeyAuthToken},
	{"refresh_token", KeyRefreshToken},
	{"session_id", KeyCurrentSessionID},
}

// MigrateLegacyFiles 将旧版纯文本凭据/会话文件导入 store；已有的键不会被覆盖，源文件保留
// MigrateLegacyFiles imports legacy plain-text credential/session files into store.
// Existing keys are never overwritten and source files are left in place.
func MigrateLegacyFiles(dir string, store Store) (int, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" || store == nil {
		return 0, nil
	}

	migrated := 0
	for _, lf := range legacyFiles {
		data, err := os.ReadFile(filepath.Join(dir, lf.file))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return migrated, fmt.Errorf("read legacy %s: %w", lf.file, err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			continue
		}
		if _, ok, err := store.Get(lf.key); err != nil {
			return migrated, err
		} else if ok {
			continue
		}
		if err := store.Set(lf.key, value); err != nil {
			return migrated, fmt.Errorf("migrate %s: %w", lf.file, err)
		}
		migrated++
	}
	return migrated, nil
}
