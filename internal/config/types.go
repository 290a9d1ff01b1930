package config

import (
	"time"

	"github.com/netxfw/netguard/internal/utils/logger"
)

// GlobalConfig represents the top-level configuration structure.
// GlobalConfig 表示顶层配置结构。
type GlobalConfig struct {
	Base    BaseConfig           `yaml:"base"`
	Safety  SafetyConfig         `yaml:"safety"`
	Impact  ImpactConfig         `yaml:"impact"`
	Storage StorageConfig        `yaml:"storage"`
	Web     WebConfig            `yaml:"web"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// BaseConfig describes where rules live in the packet filter.
// BaseConfig 描述规则在包过滤器中的位置。
type BaseConfig struct {
	Table string `yaml:"table"`
	Chain string `yaml:"chain"`
	// HookChain: built-in chain that receives a jump to Chain. Empty leaves Chain unhooked.
	// HookChain: 接收跳转到 Chain 的内置链。为空时不挂载。
	HookChain string `yaml:"hook_chain"`
	// CommandTimeout bounds every packet filter invocation (e.g. "5s").
	// CommandTimeout 限制每次包过滤器调用的时长（例如 "5s"）。
	CommandTimeout string `yaml:"command_timeout"`
	// Wait: seconds to wait for the xtables lock (iptables -w).
	// Wait: 等待 xtables 锁的秒数（iptables -w）。
	Wait int `yaml:"wait"`
}

// SafetyConfig holds Safe Mode persistence and the critical target set.
// SafetyConfig 保存安全模式持久化路径与关键目标集合。
type SafetyConfig struct {
	SafeModeFile  string   `yaml:"safe_mode_file"`
	CriticalIPs   []string `yaml:"critical_ips"`
	CriticalPorts []string `yaml:"critical_ports"`
	// CriticalRules are boolean expressions over `kind` and `value`.
	// CriticalRules 是基于 `kind` 和 `value` 的布尔表达式。
	CriticalRules []string `yaml:"critical_rules"`
}

// ImpactConfig configures the liveness probes run before a block.
// ImpactConfig 配置封禁前执行的活跃探测。
type ImpactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Timeout   string `yaml:"timeout"`
	PingCount int    `yaml:"ping_count"`
	// Privileged uses raw ICMP sockets instead of unprivileged UDP pings.
	// Privileged 使用原始 ICMP 套接字而非非特权 UDP ping。
	Privileged bool `yaml:"privileged"`
}

// StorageConfig selects the persistence backend.
// StorageConfig 选择持久化后端。
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// WebConfig defines the HTTP API server.
// WebConfig 定义 HTTP API 服务器。
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

// MetricsConfig toggles the Prometheus endpoint on the API server.
// MetricsConfig 控制 API 服务器上的 Prometheus 端点。
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultGlobalConfig returns the configuration used when a key is absent from the file.
// DefaultGlobalConfig 返回文件中缺少配置项时使用的默认配置。
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Base: BaseConfig{
			Table:          DefaultTable,
			Chain:          DefaultChain,
			HookChain:      DefaultHookChain,
			CommandTimeout: DefaultCommandTimeout,
			Wait:           5,
		},
		Safety: SafetyConfig{
			SafeModeFile:  DefaultSafeModeFile,
			CriticalIPs:   append([]string(nil), DefaultCriticalIPs...),
			CriticalPorts: append([]string(nil), DefaultCriticalPorts...),
		},
		Impact: ImpactConfig{
			Enabled:   true,
			Timeout:   DefaultImpactTimeout,
			PingCount: DefaultPingCount,
		},
		Storage: StorageConfig{
			Driver: StorageDriverSQLite,
			Path:   DefaultStoragePath,
		},
		Web: WebConfig{
			Listen: DefaultWebListen,
		},
		Logging: logger.LoggingConfig{
			Enabled:    false,
			Level:      "info",
			Format:     "console",
			Path:       DefaultLogPath,
			MaxSize:    10, // 10MB
			MaxBackups: 3,
			MaxAge:     30, // 30 days
			Compress:   true,
		},
	}
}

// CommandTimeoutDuration parses CommandTimeout, falling back to the default.
// CommandTimeoutDuration 解析 CommandTimeout，失败时回退到默认值。
func (c BaseConfig) CommandTimeoutDuration() time.Duration {
	return parseDurationOr(c.CommandTimeout, 5*time.Second)
}

// TimeoutDuration parses Timeout, falling back to the default.
// TimeoutDuration 解析 Timeout，失败时回退到默认值。
func (c ImpactConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(c.Timeout, 5*time.Second)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
