package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netxfw/netguard/cmd/netguard/commands/common"
	"github.com/netxfw/netguard/internal/app"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/internal/version"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the management API",
	// Short: 运行管理 API
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := common.AppOptions()
		opts.PidFile, _ = cmd.Flags().GetString("pid-file")
		a, err := common.OpenAppWith(ctx, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Get(ctx).Infof("[OK] Starting netguard %s", version.Get())
		return a.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().String("pid-file", app.DefaultPidFile, "Write the server PID here (empty to skip)")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Create the rule chain and re-apply every stored entry",
	// Short: 创建规则链并重新应用所有已存储条目
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := common.OpenApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Engine.Init(ctx); err != nil {
			return err
		}
		entries, err := a.Engine.ListBlocked(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Rule chain in sync with %d stored entries\n", len(entries))
		return nil
	},
}
