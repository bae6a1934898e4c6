package config

const (
	DefaultAPIBaseURL   = "http://localhost:8000"
	DefaultAPITimeoutMS = 60000

	DefaultHistoryPageLimit = 200
)

// 存储后端 / storage backends
const (
	StorageBackendSQLite = "sqlite"
	StorageBackendFile   = "file"
)

// 界面模式 / UI modes
const (
	UIModeAuto = "auto"
	UIModeREPL = "repl"
	UIModeTUI  = "tui"
)
