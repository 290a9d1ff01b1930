package config

// DefaultConfigTemplate defines the default configuration file structure with bilingual comments.
// It is written by "netguard init" and used to restore missing sections while preserving documentation.
// DefaultConfigTemplate 定义带双语注释的默认配置文件结构。
// 由 "netguard init" 写入，并用于在保留注释的同时补全缺失的配置段。
const DefaultConfigTemplate = `# NetGuard Configuration File / NetGuard 配置文件
#

# Base Configuration / 基础配置
base:
  # Table: Packet filter table holding the rule chain.
  # 表：存放规则链的包过滤表。
  table: "filter"

  # Chain: Engine-owned chain. Every block rule is appended here.
  # 链：引擎专属链，所有封禁规则都追加到这里。
  chain: "NETGUARD"

  # Hook Chain: Built-in chain that jumps into the engine chain.
  # Leave empty to keep the chain unhooked (rules are recorded but not enforced).
  # 挂载链：跳转到引擎链的内置链。
  # 留空则不挂载（规则会被记录但不会生效）。
  hook_chain: "INPUT"

  # Command Timeout: Upper bound for each packet filter invocation.
  # 命令超时：每次包过滤器调用的时长上限。
  command_timeout: "5s"

  # Wait: Seconds to wait for the xtables lock.
  # 等待：等待 xtables 锁的秒数。
  wait: 5

# Safety Configuration / 安全配置
safety:
  # Safe Mode File: Persisted kill-switch. Contains "ON" or "OFF".
  # 安全模式文件：持久化的总开关，内容为 "ON" 或 "OFF"。
  safe_mode_file: "/var/lib/netguard/safe_mode.flag"

  # Critical IPs: Never blocked or unblocked by the engine.
  # 关键 IP：引擎永远不会封禁或解封。
  critical_ips:
    - "127.0.0.1"

  # Critical Ports: Never blocked or unblocked by the engine.
  # 关键端口：引擎永远不会封禁或解封。
  critical_ports:
    - "22"
    - "443"

  # Critical Rules: Extra expressions over kind ("ip"/"port") and value.
  # Example: kind == "ip" && value startsWith "10.0.0."
  # 关键规则：基于 kind（"ip"/"port"）和 value 的附加表达式。
  # 示例：kind == "ip" && value startsWith "10.0.0."
  critical_rules: []

# Impact Analysis / 影响分析
impact:
  # Enabled: Probe the target before blocking and abort if it is active.
  # 启用：封禁前探测目标，若目标活跃则中止。
  enabled: true

  # Timeout: Upper bound for one probe.
  # 超时：单次探测的时长上限。
  timeout: "5s"

  # Ping Count: ICMP echo requests sent to an IP target.
  # Ping 次数：向 IP 目标发送的 ICMP 回显请求数。
  ping_count: 2

  # Privileged: Use raw ICMP sockets (requires CAP_NET_RAW).
  # 特权模式：使用原始 ICMP 套接字（需要 CAP_NET_RAW）。
  privileged: false

# Storage Configuration / 存储配置
storage:
  # Driver: "sqlite" or "yaml".
  # 驱动："sqlite" 或 "yaml"。
  driver: "sqlite"
  path: "/var/lib/netguard/netguard.db"

# Web API Configuration / Web API 配置
web:
  enabled: false
  listen: "127.0.0.1:11811"
  # Token: Static bearer token. Empty disables authentication.
  # 令牌：静态 Bearer 令牌。为空时不启用认证。
  token: ""

# Metrics Configuration / 监控指标配置
# Served at /metrics on the web listener.
# 通过 Web 监听地址的 /metrics 路径提供。
metrics:
  enabled: false

# Logging Configuration / 日志配置
logging:
  enabled: false
  level: "info"
  # Format: "console" or "json".
  # 格式："console" 或 "json"。
  format: "console"
  path: "/var/log/netguard/netguard.log"
  max_size: 10    # MB
  max_backups: 3
  max_age: 30     # days
  compress: true
`
