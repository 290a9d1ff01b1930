package config

import "github.com/netxfw/netguard/pkg/storage"

const (
	// DefaultConfigPath is the standard location for the netguard configuration file.
	// DefaultConfigPath 是 netguard 配置文件的标准位置。
	DefaultConfigPath = "/etc/netguard/config.yaml"

	// DefaultTable is the packet filter table that holds the rule group.
	// DefaultTable 是存放规则组的包过滤表。
	DefaultTable = "filter"

	// DefaultChain is the engine-owned chain. Nothing else should write to it.
	// DefaultChain 是引擎专属的链，其他程序不应写入。
	DefaultChain = "NETGUARD"

	// DefaultHookChain is the built-in chain that jumps into DefaultChain.
	// DefaultHookChain 是跳转到 DefaultChain 的内置链。
	DefaultHookChain = "INPUT"

	// DefaultSafeModeFile stores the persisted Safe Mode flag ("ON"/"OFF").
	// DefaultSafeModeFile 存储持久化的安全模式标志（"ON"/"OFF"）。
	DefaultSafeModeFile = "/var/lib/netguard/safe_mode.flag"

	// DefaultStoragePath is the SQLite database holding blocked entries and the rollback journal.
	// DefaultStoragePath 是存放封禁条目与回滚日志的 SQLite 数据库。
	DefaultStoragePath = "/var/lib/netguard/netguard.db"

	// DefaultLogPath is the rotated log file also served by "show logs".
	// DefaultLogPath 是轮转日志文件，同时供 "show logs" 读取。
	DefaultLogPath = "/var/log/netguard/netguard.log"

	DefaultCommandTimeout = "5s"
	DefaultImpactTimeout  = "5s"
	DefaultPingCount      = 2
	DefaultWebListen      = "127.0.0.1:11811"

	StorageDriverSQLite = storage.DriverSQLite
	StorageDriverYAML   = storage.DriverYAML
)

// Critical targets protected out of the box.
// 默认受保护的关键目标。
var (
	DefaultCriticalIPs   = []string{"127.0.0.1"}
	DefaultCriticalPorts = []string{"22", "443"}
)
