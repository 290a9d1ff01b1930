package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/coreos/go-iptables/iptables"
	"github.com/netxfw/netguard/internal/utils/logger"
	perrors "github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// table is the subset of *iptables.IPTables used here.
// table 是此处使用的 *iptables.IPTables 方法子集。
type table interface {
	ChainExists(table, chain string) (bool, error)
	NewChain(table, chain string) error
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	AppendUnique(table, chain string, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
}

// Options configures the iptables backend.
// Options 配置 iptables 后端。
type Options struct {
	Table     string
	Chain     string
	HookChain string
	// Timeout bounds every invocation.
	// Timeout 限制每次调用的时长。
	Timeout time.Duration
	// Wait is passed to iptables as -w seconds.
	// Wait 以 -w 秒数传递给 iptables。
	Wait int
}

// IPTablesBackend keeps every rule in one chain of one table.
// IPTablesBackend 将所有规则保存在一个表的一条链中。
type IPTablesBackend struct {
	ipt  table
	opts Options
}

// NewIPTables creates a backend driving the system iptables binary.
// NewIPTables 创建驱动系统 iptables 程序的后端。
func NewIPTables(opts Options) (*IPTablesBackend, error) {
	ipt, err := iptables.New(iptables.Timeout(opts.Wait))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", perrors.ErrBinaryNotFound, err)
		}
		return nil, fmt.Errorf("failed to initialize iptables: %w", err)
	}
	return newIPTablesBackend(ipt, opts), nil
}

func newIPTablesBackend(ipt table, opts Options) *IPTablesBackend {
	if opts.Table == "" {
		opts.Table = "filter"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &IPTablesBackend{ipt: ipt, opts: opts}
}

// EnsureGroup creates the chain and hooks it at the top of HookChain.
// EnsureGroup 创建链并将其挂载到 HookChain 的顶部。
func (b *IPTablesBackend) EnsureGroup(ctx context.Context) error {
	log := logger.Get(ctx)
	chain := b.opts.Chain

	newChain := Command{"-N", chain}
	err := b.call(ctx, newChain, nil, func() error {
		exists, err := b.ipt.ChainExists(b.opts.Table, chain)
		if err != nil || exists {
			return err
		}
		if err := b.ipt.NewChain(b.opts.Table, chain); err != nil {
			return err
		}
		log.Infof("[OK] Created chain %s in table %s", chain, b.opts.Table)
		return nil
	})
	if err != nil {
		return err
	}

	if b.opts.HookChain == "" {
		return nil
	}
	hook := Command{"-I", b.opts.HookChain, "1", "-j", chain}
	return b.call(ctx, hook, nil, func() error {
		exists, err := b.ipt.Exists(b.opts.Table, b.opts.HookChain, "-j", chain)
		if err != nil || exists {
			return err
		}
		if err := b.ipt.Insert(b.opts.Table, b.opts.HookChain, 1, "-j", chain); err != nil {
			return err
		}
		log.Infof("[OK] Hooked chain %s into %s", chain, b.opts.HookChain)
		return nil
	})
}

func (b *IPTablesBackend) Apply(ctx context.Context, op Op, kind storage.TargetKind, value string) error {
	cmd, err := BuildCommand(b.opts.Chain, op, kind, value)
	if err != nil {
		return &perrors.BackendError{Command: []string{string(op), string(kind), value}, Err: err}
	}
	return b.Run(ctx, cmd)
}

// Run executes cmd. Append is unique and delete ignores missing rules.
// Run 执行 cmd。追加保证唯一，删除忽略不存在的规则。
func (b *IPTablesBackend) Run(ctx context.Context, cmd Command) error {
	verb, chain, spec, err := parseCommand(cmd)
	if err != nil {
		return &perrors.BackendError{Command: cmd, Err: err}
	}

	// changed is only read after the invocation has returned.
	var changed bool
	apply := func() error {
		logger.Get(ctx).Debugf("iptables -t %s %s", b.opts.Table, cmd)
		exists, err := b.ipt.Exists(b.opts.Table, chain, spec...)
		if err != nil {
			return err
		}
		if verb == VerbAppend {
			if exists {
				return nil
			}
			err = b.ipt.AppendUnique(b.opts.Table, chain, spec...)
		} else {
			if !exists {
				return nil
			}
			err = b.ipt.DeleteIfExists(b.opts.Table, chain, spec...)
		}
		changed = err == nil
		return err
	}
	undo := func() error {
		if !changed {
			return nil
		}
		if verb == VerbAppend {
			return b.ipt.DeleteIfExists(b.opts.Table, chain, spec...)
		}
		return b.ipt.AppendUnique(b.opts.Table, chain, spec...)
	}
	return b.call(ctx, cmd, undo, apply)
}

func (b *IPTablesBackend) Inverse(op Op, kind storage.TargetKind, value string) Command {
	return inverse(b.opts.Chain, op, kind, value)
}

// call runs fn with the configured timeout and wraps failures in BackendError.
// The invocation cannot be interrupted, so on timeout or cancellation call
// still waits for it to exit and then runs undo, leaving the filter as it was
// before the call. A timed out call is never retried.
// call 在配置的超时内执行 fn，并将失败包装为 BackendError。
// 调用本身无法中断，因此超时或取消时 call 仍会等待其退出，然后执行 undo，
// 使过滤器恢复到调用前的状态。超时的调用不会重试。
func (b *IPTablesBackend) call(ctx context.Context, cmd Command, undo, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return &perrors.BackendError{Command: cmd, Output: err.Error(), Err: classify(err)}
		}
		return nil
	case <-ctx.Done():
	}

	cause := perrors.ErrTimeout
	if errors.Is(ctx.Err(), context.Canceled) {
		cause = perrors.ErrCanceled
	}
	berr := &perrors.BackendError{Command: cmd, Output: ctx.Err().Error(), Err: cause}

	log := logger.Get(ctx)
	log.Warnf("[WARN]  iptables %s did not finish in time, waiting for it to exit", cmd)
	if err := <-done; err != nil || undo == nil {
		return berr
	}
	if err := undo(); err != nil {
		log.Errorf("[ERROR] Could not revert late iptables %s: %v", cmd, err)
		berr.Err = errors.Join(cause, classify(err))
		berr.Output += "; revert failed: " + err.Error()
	}
	return berr
}

// classify tags failures caused by missing privileges.
// classify 标记由权限不足导致的失败。
func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Permission denied") || strings.Contains(msg, "you must be root") {
		return fmt.Errorf("%w: %w", perrors.ErrPermissionDenied, err)
	}
	return err
}
