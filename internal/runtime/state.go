package runtime

// ConfigPath stores the path to the configuration file provided via CLI flags.
// ConfigPath 存储通过 CLI 标志提供的配置文件路径。
var ConfigPath string

// DryRun makes commands run against an in-memory filter and store.
// DryRun 使命令在内存过滤器与存储上运行。
var DryRun bool
