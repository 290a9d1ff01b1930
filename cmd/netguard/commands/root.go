package commands

import (
	"fmt"
	"os"

	"github.com/netxfw/netguard/internal/config"
	"github.com/netxfw/netguard/internal/runtime"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "netguard",
	Short: "Safe, reversible IP and port blocking on iptables",
	// Short: 基于 iptables 的安全、可回滚的 IP 与端口封禁
	Long: `netguard blocks IPv4 addresses and TCP ports in its own iptables chain.
Every block can be rolled back; critical targets and Safe Mode prevent self-lockout.
netguard 在独立的 iptables 链中封禁 IPv4 地址与 TCP 端口。
每次封禁都可以回滚；关键目标与安全模式可防止把自己锁在门外。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		globalCfg, err := config.LoadGlobalConfig(config.GetConfigPath())
		if err != nil {
			// If config fails to load, use default logging config (console only)
			// 如果加载配置失败，使用默认日志配置（仅控制台）
			logger.Init(logger.LoggingConfig{
				Enabled: true,
				Level:   "warn",
			})
		} else {
			logger.Init(globalCfg.Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := logger.WithContext(cmd.Context(), logger.Get(nil))
		cmd.SetContext(ctx)
	},
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&runtime.ConfigPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))
	RootCmd.PersistentFlags().BoolVar(&runtime.DryRun, "dry-run", false, "Use an in-memory filter and store; nothing persists")

	RootCmd.AddCommand(blockCmd)
	RootCmd.AddCommand(unblockCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(execCmd)
	RootCmd.AddCommand(rollbackCmd)
	RootCmd.AddCommand(safeModeCmd)
	RootCmd.AddCommand(logsCmd)
	RootCmd.AddCommand(reconcileCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(versionCmd)

	RootCmd.CompletionOptions.DisableDescriptions = true
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}
