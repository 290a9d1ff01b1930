package commands

import (
	"fmt"

	"github.com/netxfw/netguard/cmd/netguard/commands/common"
	"github.com/netxfw/netguard/internal/logs"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent log lines",
	// Short: 显示最近的日志
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := common.LoadConfigManager()
		if err != nil {
			return err
		}
		lc := cm.GetLoggingConfig()
		if !lc.Enabled || lc.Path == "" {
			return fmt.Errorf("file logging is disabled; set logging.enabled and logging.path")
		}

		n, _ := cmd.Flags().GetInt("lines")
		follow, _ := cmd.Flags().GetBool("follow")
		out := cmd.OutOrStdout()
		file := logs.NewFile(lc.Path)

		lines, err := file.Recent(cmd.Context(), n)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		if !follow {
			return nil
		}
		return file.Follow(cmd.Context(), func(line string) {
			fmt.Fprintln(out, line)
		})
	},
}

func init() {
	logsCmd.Flags().IntP("lines", "n", 10, "Number of lines to show")
	logsCmd.Flags().BoolP("follow", "f", false, "Keep printing new lines")
}
