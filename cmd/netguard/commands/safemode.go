package commands

import (
	"fmt"

	"github.com/netxfw/netguard/cmd/netguard/commands/common"
	"github.com/spf13/cobra"
)

var safeModeCmd = &cobra.Command{
	Use:   "safe-mode <on|off|status>",
	Short: "Freeze or unfreeze all rule changes",
	// Short: 冻结或解冻所有规则变更
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := common.OpenApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		switch args[0] {
		case "on", "off":
			if err := a.Engine.SetSafeMode(ctx, args[0] == "on"); err != nil {
				return err
			}
		case "status":
		default:
			return fmt.Errorf("unknown safe-mode argument %q (want on, off or status)", args[0])
		}

		on, err := a.Engine.SafeMode(ctx)
		if err != nil {
			return err
		}
		state := "OFF"
		if on {
			state = "ON"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Safe Mode is %s\n", state)
		return nil
	},
}
