package storage

// Store 本地持久化接口：键值 blob + 认证审计日志，支持多后端 (SQLite / 文件 / 内存)
// Store is the local persistence interface (key-value blobs plus an auth audit log)
// with SQLite, file and in-memory backends.
type Store interface {
	// 键值操作，同步读写 / Key-value operations, synchronous
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error

	// 认证审计日志 / Auth audit log
	LogAuth(entry AuthEntry) error
	ListAuthLog(limit int) ([]AuthEntry, error)

	// 生命周期 / Lifecycle
	Close() error
}

// AuthEntry 认证状态变化日志条目
// AuthEntry records a single authentication transition
type AuthEntry struct {
	Event     string `json:"event"`
	Subject   string `json:"subject,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}
