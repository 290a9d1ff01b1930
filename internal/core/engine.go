package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/netxfw/netguard/internal/backend"
	"github.com/netxfw/netguard/internal/impact"
	"github.com/netxfw/netguard/internal/metrics"
	"github.com/netxfw/netguard/internal/rollback"
	"github.com/netxfw/netguard/internal/safety"
	"github.com/netxfw/netguard/internal/utils/logger"
	perrors "github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// RecentLogLines is how many lines SHOW_LOGS returns.
// RecentLogLines 是 SHOW_LOGS 返回的行数。
const RecentLogLines = 10

const (
	msgUnknown      = "Unknown command"
	msgSafeMode     = "Safe Mode is ON. No changes allowed."
	msgNoEntries    = "No blocked entries found."
	msgShowBlocked  = "Showing blocked IPs and Ports:"
	msgAlreadyBlock = "already blocked"
	msgNotBlocked   = "was not blocked"
)

// Prober reports whether a target is in use.
// Prober 报告目标是否正在使用。
type Prober interface {
	Probe(ctx context.Context, kind storage.TargetKind, value string) impact.Report
}

// LogSource returns the newest log lines, oldest first.
// LogSource 返回最新的日志行，按从旧到新排列。
type LogSource interface {
	Recent(ctx context.Context, n int) ([]string, error)
}

// Options wires an Engine. Logs is optional.
// Options 组装 Engine。Logs 可选。
type Options struct {
	Backend backend.Backend
	Store   storage.Store
	Journal *rollback.Journal
	Gate    *safety.Gate
	Prober  Prober
	Logs    LogSource
}

// Engine serializes every mutation of the rule group behind one lock.
// Queries read the store directly.
// Engine 使用一把锁串行化规则组的所有变更。查询直接读取存储。
type Engine struct {
	mu sync.Mutex

	backend backend.Backend
	store   storage.Store
	journal *rollback.Journal
	gate    *safety.Gate
	prober  Prober
	logs    LogSource

	// groupReady is set once the rule group is known to exist. Guarded by mu.
	groupReady bool
}

// New checks that every required collaborator is present.
// New 检查所有必需的协作者都已提供。
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Backend == nil:
		return nil, fmt.Errorf("engine: backend is required")
	case opts.Store == nil:
		return nil, fmt.Errorf("engine: store is required")
	case opts.Journal == nil:
		return nil, fmt.Errorf("engine: journal is required")
	case opts.Gate == nil:
		return nil, fmt.Errorf("engine: safety gate is required")
	case opts.Prober == nil:
		return nil, fmt.Errorf("engine: impact prober is required")
	}
	return &Engine{
		backend: opts.Backend,
		store:   opts.Store,
		journal: opts.Journal,
		gate:    opts.Gate,
		prober:  opts.Prober,
		logs:    opts.Logs,
	}, nil
}

// EnsureGroup makes sure the rule group exists without touching any entry.
// EnsureGroup 确保规则组存在，不改动任何条目。
func (e *Engine) EnsureGroup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groupReady = false
	return e.ensureGroupLocked(ctx)
}

// ensureGroupLocked creates the rule group the first time an admitted mutation
// needs it. Callers hold mu.
// ensureGroupLocked 在首个被放行的变更需要时创建规则组。调用方需持有 mu。
func (e *Engine) ensureGroupLocked(ctx context.Context) error {
	if e.groupReady {
		return nil
	}
	if err := e.backend.EnsureGroup(ctx); err != nil {
		metrics.BackendErrorsTotal.Inc()
		return fmt.Errorf("ensure rule group: %w", err)
	}
	e.groupReady = true
	return nil
}

// Init ensures the rule group exists and re-applies every stored entry so the
// filter matches the store after a restart. It keeps going past failures.
// Init 确保规则组存在，并重新应用所有已存储的条目，使重启后过滤器与存储一致。遇到失败时继续执行。
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := logger.Get(ctx)

	e.groupReady = false
	if err := e.ensureGroupLocked(ctx); err != nil {
		return err
	}

	entries, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list blocked entries: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if err := e.backend.Apply(ctx, backend.OpAdd, entry.Kind, entry.Value); err != nil {
			metrics.BackendErrorsTotal.Inc()
			log.Errorw("reconcile failed", "event", "reconcile", "kind", entry.Kind, "value", entry.Value, "error", err)
			errs = append(errs, err)
		}
	}
	log.Infow("reconciled rule group", "event", "reconcile", "entries", len(entries), "failed", len(errs))

	if on, err := e.gate.SafeMode(ctx); err == nil {
		metrics.SetSafeMode(on)
	}
	e.refreshGauge(ctx, entries)
	return errors.Join(errs...)
}

// ExecuteDirective runs one directive and always returns an Outcome describing
// it. The error is non-nil when the directive did not complete and wraps one of
// the taxonomy sentinels in pkg/errors.
// ExecuteDirective 执行一条指令并始终返回描述它的 Outcome。
// 指令未完成时 error 非空，并包装 pkg/errors 中的某个分类哨兵错误。
func (e *Engine) ExecuteDirective(ctx context.Context, d Directive) (Outcome, error) {
	out := newOutcome(d)
	ctx = logger.WithContext(ctx, logger.Get(ctx).With("id", out.ID, "action", string(d.action)))

	var err error
	switch d.action {
	case ActionBlock, ActionUnblock:
		err = e.mutate(ctx, d, &out)
	case ActionClear:
		err = e.clear(ctx, &out)
	case ActionShowBlocked:
		err = e.showBlocked(ctx, &out)
	case ActionShowLogs:
		err = e.showLogs(ctx, &out)
	case ActionInvalid:
		out.Status = StatusInvalid
		out.Message = invalidMessage(d.kind, d.value)
		err = invalidError(d)
	default:
		out.Action = ActionUnknown
		out.Status = StatusInvalid
		out.Message = msgUnknown
		err = perrors.NewActionError(d.text)
	}

	metrics.ObserveDirective(string(out.Action), string(out.Status))
	return out, err
}

func invalidError(d Directive) error {
	var err error
	switch d.kind {
	case KindIP:
		err = perrors.NewIPError(d.value)
	case KindPort:
		err = perrors.NewPortError(d.value)
	default:
		err = perrors.NewTargetError(string(d.kind))
	}
	if d.reason != "" {
		err = fmt.Errorf("%w (%s)", err, d.reason)
	}
	return err
}

// mutate runs gate, probe, apply, record and journal for BLOCK or UNBLOCK.
// mutate 为 BLOCK 或 UNBLOCK 依次执行闸门、探测、应用、记录与日志。
func (e *Engine) mutate(ctx context.Context, d Directive, out *Outcome) error {
	value, err := canonicalValue(d.kind, d.value)
	if err != nil {
		out.Status = StatusInvalid
		out.Message = invalidMessage(d.kind, d.value)
		return err
	}
	out.Value = value
	kind, _ := d.kind.StorageKind()
	target := fmt.Sprintf("%s %s", kind, value)
	log := logger.Get(ctx).With("kind", string(kind), "value", value)

	e.mu.Lock()
	defer e.mu.Unlock()

	dec := e.gate.Admit(ctx, safety.Request{Mutating: true, Targeted: true, Kind: kind, Value: value})
	if !dec.Admitted {
		e.deny(ctx, dec, target, out)
		if dec.Reason == perrors.ReasonCriticalTarget {
			out.Message = criticalMessage(d.action, d.kind, value)
		}
		return dec.Err(target)
	}

	if d.action == ActionBlock {
		report := e.prober.Probe(ctx, kind, value)
		if report.Active {
			log.Warnw("impact analysis aborted block", "event", "impact_warning", "detail", report.Detail)
			metrics.ImpactAbortedTotal.Inc()
			out.Status = StatusRejected
			out.Message = fmt.Sprintf("Impact analysis warns that %s is currently active. Action aborted for safety.", target)
			out.Warnings = append(out.Warnings, report.Detail)
			return perrors.NewImpactError(target, report.Detail)
		}
		if report.Inconclusive {
			out.Warnings = append(out.Warnings, "impact analysis inconclusive: "+report.Detail)
		}
	}

	existed, err := e.store.Has(ctx, kind, value)
	if err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Could not read blocked entries: %v", err)
		return fmt.Errorf("check %s: %w", target, err)
	}

	if err := e.ensureGroupLocked(ctx); err != nil {
		log.Errorw("rule group unavailable", "event", "backend_failure", "error", err)
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Failed to prepare rule group: %v", err)
		return err
	}

	op := backend.OpAdd
	if d.action == ActionUnblock {
		op = backend.OpRemove
	}
	if err := e.backend.Apply(ctx, op, kind, value); err != nil {
		metrics.BackendErrorsTotal.Inc()
		log.Errorw("backend command failed", "event", "backend_failure", "op", string(op), "error", err)
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Failed to %s %s.", op, target)
		return err
	}
	log.Infow("backend command applied", "event", "backend_success", "op", string(op))

	// The rule is in place; record it even if the caller has gone away.
	persist := context.WithoutCancel(ctx)
	if d.action == ActionBlock {
		err = e.recordBlock(persist, kind, value, existed, out)
	} else {
		err = e.recordUnblock(persist, kind, value, existed, out)
	}
	if err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Failed to record %s: %v", target, err)
		return err
	}

	out.Status = StatusDone
	if d.action == ActionBlock {
		out.Message = blockedMessage(d.kind, value)
	} else {
		out.Message = unblockedMessage(d.kind, value)
	}
	e.refreshGauge(persist, nil)
	return nil
}

func (e *Engine) recordBlock(ctx context.Context, kind storage.TargetKind, value string, existed bool, out *Outcome) error {
	log := logger.Get(ctx)
	created, err := e.store.Record(ctx, kind, value)
	if err != nil {
		if !existed {
			e.compensate(ctx, backend.OpRemove, kind, value)
		}
		return fmt.Errorf("record %s %s: %w", kind, value, err)
	}
	if !created {
		out.Warnings = append(out.Warnings, msgAlreadyBlock)
		return nil
	}
	rec, err := e.journal.Append(ctx, e.backend.Inverse(backend.OpAdd, kind, value), kind, value)
	if err != nil {
		if _, ferr := e.store.Forget(ctx, kind, value); ferr != nil {
			log.Errorw("could not forget entry after journal failure", "kind", kind, "value", value, "error", ferr)
		}
		e.compensate(ctx, backend.OpRemove, kind, value)
		return err
	}
	log.Debugw("rollback record appended", "event", "journal_append", "record", rec.ID)
	return nil
}

func (e *Engine) recordUnblock(ctx context.Context, kind storage.TargetKind, value string, existed bool, out *Outcome) error {
	removed, err := e.store.Forget(ctx, kind, value)
	if err != nil {
		if existed {
			e.compensate(ctx, backend.OpAdd, kind, value)
		}
		return fmt.Errorf("forget %s %s: %w", kind, value, err)
	}
	if !removed {
		out.Warnings = append(out.Warnings, msgNotBlocked)
	}
	return nil
}

// compensate undoes an applied rule whose bookkeeping failed.
func (e *Engine) compensate(ctx context.Context, op backend.Op, kind storage.TargetKind, value string) {
	if err := e.backend.Apply(ctx, op, kind, value); err != nil {
		metrics.BackendErrorsTotal.Inc()
		logger.Get(ctx).Errorw("compensation failed, filter and store disagree",
			"event", "backend_failure", "op", string(op), "kind", kind, "value", value, "error", err)
	}
}

func (e *Engine) deny(ctx context.Context, dec safety.Decision, target string, out *Outcome) {
	logger.Get(ctx).Warnw("directive denied by safety gate",
		"event", "safety_denied", "security", true, "reason", string(dec.Reason), "target", target, "rule", dec.Rule)
	metrics.SafetyDeniedTotal.WithLabelValues(string(dec.Reason)).Inc()
	out.Status = StatusRejected
	out.Message = msgSafeMode
}

// clear removes every blocked rule, then the entries whose rule is gone.
// Entries whose removal failed stay recorded.
// clear 移除所有封禁规则，然后删除规则已移除的条目。移除失败的条目保留记录。
func (e *Engine) clear(ctx context.Context, out *Outcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := logger.Get(ctx)

	dec := e.gate.Admit(ctx, safety.Request{Mutating: true})
	if !dec.Admitted {
		e.deny(ctx, dec, "", out)
		return dec.Err("")
	}
	if err := e.ensureGroupLocked(ctx); err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Failed to prepare rule group: %v", err)
		return err
	}

	entries, err := e.store.List(ctx)
	if err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Could not read blocked entries: %v", err)
		return fmt.Errorf("list blocked entries: %w", err)
	}

	var (
		released []storage.BlockedEntry
		errs     []error
	)
	for _, entry := range entries {
		if err := e.backend.Apply(ctx, backend.OpRemove, entry.Kind, entry.Value); err != nil {
			metrics.BackendErrorsTotal.Inc()
			log.Errorw("backend command failed", "event", "backend_failure", "op", "remove", "kind", entry.Kind, "value", entry.Value, "error", err)
			errs = append(errs, err)
			continue
		}
		released = append(released, entry)
	}

	persist := context.WithoutCancel(ctx)
	defer e.refreshGauge(persist, nil)

	if len(errs) == 0 {
		n, err := e.store.Clear(persist)
		if err != nil {
			out.Status = StatusFailed
			out.Message = fmt.Sprintf("Rules removed but entries could not be cleared: %v", err)
			return fmt.Errorf("clear blocked entries: %w", err)
		}
		out.Status = StatusDone
		out.Count = n
		out.Message = fmt.Sprintf("All %d blocked entries have been unblocked and removed.", n)
		log.Infow("blocked entries cleared", "event", "clear", "count", n)
		return nil
	}

	for _, entry := range released {
		if _, err := e.store.Forget(persist, entry.Kind, entry.Value); err != nil {
			errs = append(errs, fmt.Errorf("forget %s: %w", entry, err))
		}
	}
	out.Status = StatusFailed
	out.Count = len(released)
	out.Message = fmt.Sprintf("Unblocked %d of %d entries; the rest are still blocked.", len(released), len(entries))
	log.Warnw("clear partially failed", "event", "clear", "count", len(released), "failed", len(entries)-len(released))
	return errors.Join(errs...)
}

func (e *Engine) showBlocked(ctx context.Context, out *Outcome) error {
	entries, err := e.store.List(ctx)
	if err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Could not read blocked entries: %v", err)
		return fmt.Errorf("list blocked entries: %w", err)
	}
	out.Status = StatusDone
	out.Blocked = entries
	if len(entries) == 0 {
		out.Message = msgNoEntries
		return nil
	}
	out.Message = msgShowBlocked
	return nil
}

func (e *Engine) showLogs(ctx context.Context, out *Outcome) error {
	out.Status = StatusDone
	out.Message = fmt.Sprintf("Showing last %d logs:", RecentLogLines)
	if e.logs == nil {
		out.Warnings = append(out.Warnings, "log file is not configured")
		return nil
	}
	lines, err := e.logs.Recent(ctx, RecentLogLines)
	if err != nil {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("Could not read logs: %v", err)
		return fmt.Errorf("read recent logs: %w", err)
	}
	out.Logs = lines
	return nil
}

// ListBlocked returns the current entries without taking the mutation lock.
// ListBlocked 在不获取变更锁的情况下返回当前条目。
func (e *Engine) ListBlocked(ctx context.Context) ([]storage.BlockedEntry, error) {
	return e.store.List(ctx)
}

// PendingRollback lists the journal records a Rollback would replay, oldest first.
// PendingRollback 列出 Rollback 将回放的日志记录，按从旧到新排列。
func (e *Engine) PendingRollback(ctx context.Context) ([]storage.JournalRecord, error) {
	return e.journal.Entries(ctx)
}

// Rollback undoes every journaled block, newest first, and empties the journal.
// A partial failure is returned as *errors.ReplayError alongside the result.
// Rollback 从新到旧撤销所有记录的封禁并清空日志。部分失败时随结果一起返回 *errors.ReplayError。
func (e *Engine) Rollback(ctx context.Context) (rollback.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := logger.Get(ctx)

	dec := e.gate.Admit(ctx, safety.Request{Mutating: true})
	if !dec.Admitted {
		log.Warnw("rollback denied by safety gate", "event", "safety_denied", "security", true, "reason", string(dec.Reason))
		metrics.SafetyDeniedTotal.WithLabelValues(string(dec.Reason)).Inc()
		return rollback.Result{}, dec.Err("rollback")
	}
	if err := e.ensureGroupLocked(ctx); err != nil {
		return rollback.Result{}, err
	}

	result, err := e.journal.ReplayAndClear(ctx)
	metrics.ObserveRollback(result.Applied, len(result.Failed))
	e.refreshGauge(context.WithoutCancel(ctx), nil)
	if err != nil {
		log.Errorw("rollback failed", "event", "rollback", "applied", result.Applied, "error", err)
		return result, err
	}
	if rerr := result.Err(); rerr != nil {
		log.Warnw("rollback partially failed", "event", "rollback", "applied", result.Applied, "failed", len(result.Failed))
		return result, rerr
	}
	log.Infow("rollback completed and journal cleared", "event", "rollback", "applied", result.Applied)
	return result, nil
}

// SafeMode reads the current Safe Mode state.
func (e *Engine) SafeMode(ctx context.Context) (bool, error) {
	return e.gate.SafeMode(ctx)
}

// SetSafeMode toggles Safe Mode. It waits for any in-flight mutation.
// SetSafeMode 切换安全模式，会等待正在进行的变更完成。
func (e *Engine) SetSafeMode(ctx context.Context, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gate.SetSafeMode(ctx, on); err != nil {
		return fmt.Errorf("set safe mode: %w", err)
	}
	metrics.SetSafeMode(on)
	state := "disabled"
	if on {
		state = "enabled"
	}
	logger.Get(ctx).Warnw("safe mode "+state, "event", "safe_mode", "security", true, "on", on)
	return nil
}

// refreshGauge recounts blocked entries. entries may be nil to re-read the store.
func (e *Engine) refreshGauge(ctx context.Context, entries []storage.BlockedEntry) {
	if entries == nil {
		var err error
		if entries, err = e.store.List(ctx); err != nil {
			logger.Get(ctx).Debugw("blocked gauge not refreshed", "error", err)
			return
		}
	}
	counts := map[string]int{string(storage.KindIP): 0, string(storage.KindPort): 0}
	for _, entry := range entries {
		counts[string(entry.Kind)]++
	}
	metrics.SetBlockedCounts(counts)
}
