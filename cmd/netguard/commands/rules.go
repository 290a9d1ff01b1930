package commands

import (
	"fmt"
	"strings"

	"github.com/netxfw/netguard/cmd/netguard/commands/common"
	"github.com/netxfw/netguard/internal/core"
	"github.com/netxfw/netguard/internal/parser"
	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block <ip|port> <value>",
	Short: "Block an IPv4 address or a TCP port",
	// Short: 封禁 IPv4 地址或 TCP 端口
	Example: `  netguard block ip 203.0.113.7
  netguard block port 8080`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"ip", "port"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargeted(cmd, core.ActionBlock, args)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <ip|port> <value>",
	Short: "Remove a block",
	// Short: 解除封禁
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"ip", "port"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargeted(cmd, core.ActionUnblock, args)
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show blocked IPs and ports",
	// Short: 显示已封禁的 IP 与端口
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, core.ActionShowBlocked)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Unblock and forget every entry",
	// Short: 解封并删除所有条目
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force && !common.AskConfirmation(cmd.OutOrStdout(), "Are you sure you want to clear all blocked entries?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		return runAction(cmd, core.ActionClear)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <command>",
	Short: "Run a free-text command such as \"block ip 10.0.0.1\"",
	// Short: 执行自由文本命令
	Long: "Run a free-text command. Accepted forms:\n  " + strings.Join(parser.Commands, "\n  "),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDirective(cmd, parser.Parse(strings.Join(args, " ")))
	},
}

func init() {
	clearCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")
}

func runTargeted(cmd *cobra.Command, action core.Action, args []string) error {
	kind, err := core.ParseKind(args[0])
	if err != nil {
		return err
	}
	d, err := core.NewDirective(action, kind, args[1])
	if err != nil {
		return err
	}
	return runDirective(cmd, d)
}

func runAction(cmd *cobra.Command, action core.Action) error {
	d, err := core.NewDirective(action, core.KindNone, "")
	if err != nil {
		return err
	}
	return runDirective(cmd, d)
}

// runDirective opens the engine, runs d and prints the outcome.
// runDirective 打开引擎，执行 d 并输出结果。
func runDirective(cmd *cobra.Command, d core.Directive) error {
	ctx := cmd.Context()
	a, err := common.OpenApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Engine.ExecuteDirective(ctx, d)
	common.PrintOutcome(cmd.OutOrStdout(), out)
	return err
}
