package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/netxfw/netguard/cmd/netguard/commands/common"
	"github.com/netxfw/netguard/internal/utils/fmtutil"
	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo every recorded block, newest first",
	// Short: 从新到旧撤销所有记录的封禁
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		a, err := common.OpenApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.Engine.PendingRollback(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(out, "[OK] Nothing to roll back.")
			return nil
		}
		fmt.Fprintf(out, "%d command(s) will be run:\n", len(pending))
		now := time.Now()
		for i := len(pending) - 1; i >= 0; i-- {
			rec := pending[i]
			fmt.Fprintf(out, "  %s (recorded %s)\n", strings.Join(rec.Command, " "), fmtutil.FormatAge(rec.CreatedAt, now))
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force && !common.AskConfirmation(out, "Are you sure you want to roll back?") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		res, err := a.Engine.Rollback(ctx)
		for _, failed := range res.Failed {
			fmt.Fprintf(out, "[ERROR] Still applied: %s\n", failed)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[OK] Rollback completed: %d command(s) applied, journal cleared.\n", res.Applied)
		return nil
	},
}

func init() {
	rollbackCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")
}
