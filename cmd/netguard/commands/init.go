package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/netxfw/netguard/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	// Short: 写入默认配置文件
	Long: `Write the default configuration file. An existing file is rewritten in the
commented template, keeping its values and adding any missing sections.
--force discards the existing values.
写入默认配置文件。已存在的文件会以带注释的模板重写，保留原值并补全缺失的配置段。
--force 会丢弃已有的值。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist), err == nil && force:
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] Wrote default configuration to %s\n", path)
			return nil
		case err != nil:
			return err
		}

		cfg, err := config.LoadGlobalConfig(path)
		if err != nil {
			return fmt.Errorf("existing configuration is invalid, fix or remove it: %w", err)
		}
		if err := config.SaveGlobalConfig(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Updated %s with any missing sections\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file with defaults")
}
