package common

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/netxfw/netguard/internal/app"
	"github.com/netxfw/netguard/internal/backend"
	"github.com/netxfw/netguard/internal/config"
	"github.com/netxfw/netguard/internal/core"
	"github.com/netxfw/netguard/internal/runtime"
	perrors "github.com/netxfw/netguard/pkg/errors"
)

var (
	// MockBackend lets tests replace the packet filter.
	// MockBackend 允许测试替换包过滤器。
	MockBackend backend.Backend

	// ConfirmInput is where AskConfirmation reads answers from.
	// ConfirmInput 是 AskConfirmation 读取回答的来源。
	ConfirmInput io.Reader = os.Stdin
)

// LoadConfigManager loads the configuration selected by -c.
// LoadConfigManager 加载 -c 指定的配置。
func LoadConfigManager() (*config.ConfigManager, error) {
	path := config.GetConfigPath()
	cm := config.NewConfigManager(path)
	if err := cm.LoadConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run 'netguard init' first)", perrors.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cm, nil
}

// OpenApp assembles the engine for one command invocation.
// OpenApp 为一次命令调用组装引擎。
func OpenApp(ctx context.Context) (*app.App, error) {
	return OpenAppWith(ctx, AppOptions())
}

// OpenAppWith is OpenApp with caller-adjusted options.
// OpenAppWith 是使用调用方调整后选项的 OpenApp。
func OpenAppWith(ctx context.Context, opts app.Options) (*app.App, error) {
	cm, err := LoadConfigManager()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cm, opts)
}

// AppOptions reflects the global flags and test overrides.
// AppOptions 反映全局标志与测试替换项。
func AppOptions() app.Options {
	return app.Options{DryRun: runtime.DryRun, Backend: MockBackend}
}

// AskConfirmation prompts the user for confirmation.
// AskConfirmation 提示用户确认。
func AskConfirmation(out io.Writer, prompt string) bool {
	reader := bufio.NewReader(ConfirmInput)
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// PrintOutcome writes an outcome with the status prefix used across the CLI.
// PrintOutcome 以 CLI 统一的状态前缀输出结果。
func PrintOutcome(out io.Writer, o core.Outcome) {
	prefix := "[OK] "
	switch o.Status {
	case core.StatusRejected, core.StatusInvalid:
		prefix = "[WARN]  "
	case core.StatusFailed:
		prefix = "[ERROR] "
	}
	fmt.Fprintln(out, prefix+o.Text())
}
