package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/netxfw/netguard/internal/backend"
	"github.com/netxfw/netguard/internal/impact"
	"github.com/netxfw/netguard/internal/rollback"
	"github.com/netxfw/netguard/internal/safety"
	perrors "github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu      sync.Mutex
	reports map[string]impact.Report
	calls   int
}

func (p *fakeProber) Probe(ctx context.Context, kind storage.TargetKind, value string) impact.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.reports[value]
}

func (p *fakeProber) set(value string, r impact.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reports == nil {
		p.reports = make(map[string]impact.Report)
	}
	p.reports[value] = r
}

type fakeLogs struct {
	lines []string
	err   error
}

func (f fakeLogs) Recent(ctx context.Context, n int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.lines) > n {
		return f.lines[len(f.lines)-n:], nil
	}
	return f.lines, nil
}

type harness struct {
	engine  *Engine
	backend *backend.MockBackend
	db      storage.Database
	mode    *safety.MemoryMode
	prober  *fakeProber
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, backend.NewMockBackend(), nil)
}

func newHarnessWith(t *testing.T, b backend.Backend, logs LogSource) *harness {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mode := safety.NewMemoryMode(false)
	gate, err := safety.NewGate(safety.Criticals{
		IPs:   []string{"127.0.0.1"},
		Ports: []string{"22", "443"},
	}, mode)
	require.NoError(t, err)

	prober := &fakeProber{}
	eng, err := New(Options{
		Backend: b,
		Store:   db,
		Journal: rollback.New(db, db, b),
		Gate:    gate,
		Prober:  prober,
		Logs:    logs,
	})
	require.NoError(t, err)

	h := &harness{engine: eng, db: db, mode: mode, prober: prober}
	if mb, ok := b.(*backend.MockBackend); ok {
		h.backend = mb
	}
	return h
}

func (h *harness) run(t *testing.T, action Action, kind Kind, value string) (Outcome, error) {
	t.Helper()
	d, err := NewDirective(action, kind, value)
	require.NoError(t, err)
	return h.engine.ExecuteDirective(context.Background(), d)
}

func (h *harness) entries(t *testing.T) []storage.BlockedEntry {
	t.Helper()
	entries, err := h.db.List(context.Background())
	require.NoError(t, err)
	return entries
}

func (h *harness) journal(t *testing.T) []storage.JournalRecord {
	t.Helper()
	records, err := h.db.JournalEntries(context.Background())
	require.NoError(t, err)
	return records
}

// TestNew_RequiresCollaborators tests that missing dependencies are rejected
// TestNew_RequiresCollaborators 测试缺少依赖时被拒绝
func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

// TestBlock_Idempotent tests that blocking twice keeps one entry and one journal record
// TestBlock_Idempotent 测试重复封禁只保留一条记录和一条回滚记录
func TestBlock_Idempotent(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, ActionBlock, KindIP, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Empty(t, out.Warnings)

	out, err = h.run(t, ActionBlock, KindIP, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Contains(t, out.Warnings, msgAlreadyBlock)

	assert.Len(t, h.entries(t), 1)
	assert.Len(t, h.journal(t), 1)
	assert.Equal(t, 1, h.backend.RuleCount())
}

// TestCriticalTarget tests critical targets are refused whatever the Safe Mode state
// TestCriticalTarget 测试无论安全模式状态如何，关键目标都会被拒绝
func TestCriticalTarget(t *testing.T) {
	tests := []struct {
		name     string
		safeMode bool
		action   Action
		kind     Kind
		value    string
		reason   perrors.DenyReason
	}{
		{"block port off", false, ActionBlock, KindPort, "22", perrors.ReasonCriticalTarget},
		{"unblock ip off", false, ActionUnblock, KindIP, "127.0.0.1", perrors.ReasonCriticalTarget},
		{"padded port off", false, ActionBlock, KindPort, "0443", perrors.ReasonCriticalTarget},
		{"block port on", true, ActionBlock, KindPort, "22", perrors.ReasonSafeModeActive},
		{"unblock ip on", true, ActionUnblock, KindIP, "127.0.0.1", perrors.ReasonSafeModeActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.mode.SetSafeMode(context.Background(), tt.safeMode))

			out, err := h.run(t, tt.action, tt.kind, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
			var denied *perrors.DeniedError
			require.ErrorAs(t, err, &denied)
			assert.Equal(t, tt.reason, denied.Reason)
			assert.Equal(t, StatusRejected, out.Status)

			assert.Empty(t, h.entries(t))
			assert.Empty(t, h.journal(t))
			assert.Empty(t, h.backend.Commands())
			assert.Zero(t, h.prober.calls)
		})
	}
}

// TestSafeMode_FreezesMutations tests Safe Mode blocks every mutation but not queries
// TestSafeMode_FreezesMutations 测试安全模式冻结所有变更但不影响查询
func TestSafeMode_FreezesMutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.run(t, ActionBlock, KindIP, "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, h.engine.SetSafeMode(ctx, true))

	on, err := h.engine.SafeMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	before := len(h.backend.Commands())

	out, err := h.run(t, ActionBlock, KindPort, "8080")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
	assert.Equal(t, msgSafeMode, out.Message)

	_, err = h.run(t, ActionUnblock, KindIP, "10.0.0.1")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)

	_, err = h.run(t, ActionClear, KindNone, "")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)

	_, err = h.engine.Rollback(ctx)
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)

	assert.Len(t, h.backend.Commands(), before)
	assert.Len(t, h.entries(t), 1)
	assert.Len(t, h.journal(t), 1)

	out, err = h.run(t, ActionShowBlocked, KindNone, "")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	require.Len(t, out.Blocked, 1)
	assert.Equal(t, "10.0.0.1", out.Blocked[0].Value)

	list, err := h.engine.ListBlocked(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, h.engine.SetSafeMode(ctx, false))
	_, err = h.run(t, ActionBlock, KindPort, "8080")
	assert.NoError(t, err)
}

// TestRollback_ReverseOrder tests inverses are replayed newest first and the journal is emptied
// TestRollback_ReverseOrder 测试逆操作按从新到旧回放且日志被清空
func TestRollback_ReverseOrder(t *testing.T) {
	h := newHarness(t)
	values := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for _, v := range values {
		_, err := h.run(t, ActionBlock, KindIP, v)
		require.NoError(t, err)
	}
	applied := len(h.backend.Commands())

	res, err := h.engine.Rollback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Empty(t, res.Failed)

	replayed := h.backend.Commands()[applied:]
	require.Len(t, replayed, 3)
	for i, cmd := range replayed {
		want := values[len(values)-1-i]
		assert.Equal(t, backend.Command{"-D", "NETGUARD", "-s", want, "-j", "DROP"}, cmd)
	}

	assert.Empty(t, h.journal(t))
	assert.Empty(t, h.entries(t))
	assert.Zero(t, h.backend.RuleCount())
}

// TestRollback_PartialFailure tests a failed inverse is reported and the journal still truncated
// TestRollback_PartialFailure 测试失败的逆操作被报告且日志仍被清空
func TestRollback_PartialFailure(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, ActionBlock, KindIP, "10.0.0.1")
	require.NoError(t, err)
	_, err = h.run(t, ActionBlock, KindIP, "10.0.0.2")
	require.NoError(t, err)

	h.backend.SetFailure("10.0.0.1", "iptables: Resource temporarily unavailable.")
	res, err := h.engine.Rollback(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrJournalReplayPartial)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0], "10.0.0.1")

	assert.Empty(t, h.journal(t))
	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1", entries[0].Value)
}

// TestBlock_ImpactAbort tests an active target aborts the block without side effects
// TestBlock_ImpactAbort 测试活跃目标使封禁中止且无副作用
func TestBlock_ImpactAbort(t *testing.T) {
	h := newHarness(t)
	h.prober.set("10.0.0.5", impact.Report{Active: true, Detail: "2 of 2 echo replies received"})

	out, err := h.run(t, ActionBlock, KindIP, "10.0.0.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrImpactWarning)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Contains(t, out.Warnings, "2 of 2 echo replies received")

	assert.Empty(t, h.entries(t))
	assert.Empty(t, h.journal(t))
	assert.Empty(t, h.backend.Commands())
}

// TestBlock_InconclusiveProbe tests a failed probe only adds a warning
// TestBlock_InconclusiveProbe 测试探测失败只会添加警告
func TestBlock_InconclusiveProbe(t *testing.T) {
	h := newHarness(t)
	h.prober.set("10.0.0.6", impact.Report{Detail: "probe failed: permission denied", Inconclusive: true})

	out, err := h.run(t, ActionBlock, KindIP, "10.0.0.6")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "permission denied")
	assert.Len(t, h.entries(t), 1)
}

// TestUnblock_SkipsProbe tests unblock never runs impact analysis
// TestUnblock_SkipsProbe 测试解封从不执行影响分析
func TestUnblock_SkipsProbe(t *testing.T) {
	h := newHarness(t)
	h.prober.set("8080", impact.Report{Active: true, Detail: "listener on :8080"})

	out, err := h.run(t, ActionUnblock, KindPort, "8080")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Contains(t, out.Warnings, msgNotBlocked)
	assert.Zero(t, h.prober.calls)
}

// TestScenario tests the end-to-end block, unblock and validation flow
// TestScenario 测试端到端的封禁、解封与校验流程
func TestScenario(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, ActionBlock, KindPort, "22")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
	assert.Equal(t, "port 22 is marked as critical and cannot be blocked.", out.Message)
	assert.Empty(t, h.entries(t))

	out, err = h.run(t, ActionBlock, KindPort, "8080")
	require.NoError(t, err)
	assert.Equal(t, "Port 8080 has been blocked.", out.Message)
	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.KindPort, entries[0].Kind)
	assert.Equal(t, "8080", entries[0].Value)
	records := h.journal(t)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"-D", "NETGUARD", "-p", "tcp", "--dport", "8080", "-j", "DROP"}, records[0].Command)

	out, err = h.run(t, ActionUnblock, KindPort, "8080")
	require.NoError(t, err)
	assert.Equal(t, "Port 8080 has been unblocked.", out.Message)
	assert.Empty(t, h.entries(t))
	cmds := h.backend.Commands()
	assert.Equal(t, backend.Command{"-D", "NETGUARD", "-p", "tcp", "--dport", "8080", "-j", "DROP"}, cmds[len(cmds)-1])

	before := len(h.backend.Commands())
	out, err = h.run(t, ActionBlock, KindIP, "999.1.1.1")
	assert.ErrorIs(t, err, perrors.ErrValidation)
	assert.ErrorIs(t, err, perrors.ErrInvalidIP)
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Len(t, h.backend.Commands(), before)
	assert.Empty(t, h.entries(t))
}

// TestInvalidValues tests malformed values never reach the gate or the backend
// TestInvalidValues 测试格式错误的值不会到达闸门或后端
func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		value  string
		target error
	}{
		{"octet overflow", KindIP, "999.1.1.1", perrors.ErrInvalidIP},
		{"ipv6", KindIP, "::1", perrors.ErrInvalidIP},
		{"cidr", KindIP, "10.0.0.0/8", perrors.ErrInvalidIP},
		{"port zero", KindPort, "0", perrors.ErrInvalidPort},
		{"port too big", KindPort, "70000", perrors.ErrInvalidPort},
		{"port text", KindPort, "ssh", perrors.ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.mode.SetSafeMode(context.Background(), true))

			out, err := h.run(t, ActionBlock, tt.kind, tt.value)
			assert.ErrorIs(t, err, perrors.ErrValidation)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, StatusInvalid, out.Status)
			assert.Contains(t, out.Message, "Please provide a valid number.")
			assert.Empty(t, h.backend.Commands())
		})
	}
}

// TestInvalidAndUnknownDirectives tests front-end INVALID and UNKNOWN directives
// TestInvalidAndUnknownDirectives 测试前端产生的 INVALID 与 UNKNOWN 指令
func TestInvalidAndUnknownDirectives(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.engine.ExecuteDirective(ctx, Invalid(KindPort, "99999", "out of range"))
	assert.ErrorIs(t, err, perrors.ErrInvalidPort)
	assert.Equal(t, "Invalid port number: 99999. Please provide a valid number.", out.Message)

	out, err = h.engine.ExecuteDirective(ctx, Unknown("open the pod bay doors"))
	assert.ErrorIs(t, err, perrors.ErrValidation)
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "Unknown command", out.Message)

	out, err = h.engine.ExecuteDirective(ctx, Directive{})
	assert.ErrorIs(t, err, perrors.ErrValidation)
	assert.Equal(t, ActionUnknown, out.Action)
}

// TestBlock_PortCanonicalized tests padded ports are stored in canonical form
// TestBlock_PortCanonicalized 测试带前导零的端口以规范形式存储
func TestBlock_PortCanonicalized(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, ActionBlock, KindPort, "0080")
	require.NoError(t, err)
	assert.Equal(t, "80", out.Value)

	_, err = h.run(t, ActionBlock, KindPort, "80")
	require.NoError(t, err)
	assert.Len(t, h.entries(t), 1)
	assert.Len(t, h.journal(t), 1)
}

// TestBlock_BackendFailure tests a backend error leaves store and journal untouched
// TestBlock_BackendFailure 测试后端错误时存储与日志保持不变
func TestBlock_BackendFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.SetFailure("10.0.0.9", "iptables: No chain/target/match by that name.")

	out, err := h.run(t, ActionBlock, KindIP, "10.0.0.9")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrBackend)
	var be *perrors.BackendError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Output, "No chain/target/match")
	assert.Equal(t, StatusFailed, out.Status)

	assert.Empty(t, h.entries(t))
	assert.Empty(t, h.journal(t))
}

// cancelAfterApply cancels the caller context once a rule has been applied.
type cancelAfterApply struct {
	*backend.MockBackend
	cancel context.CancelFunc
}

func (c *cancelAfterApply) Apply(ctx context.Context, op backend.Op, kind storage.TargetKind, value string) error {
	err := c.MockBackend.Apply(ctx, op, kind, value)
	c.cancel()
	return err
}

// TestBlock_CanceledAfterApply tests that an applied rule is still recorded after cancellation
// TestBlock_CanceledAfterApply 测试规则应用后即使取消也会被记录
func TestBlock_CanceledAfterApply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &cancelAfterApply{MockBackend: backend.NewMockBackend(), cancel: cancel}
	h := newHarnessWith(t, b, nil)

	d, err := NewDirective(ActionBlock, KindIP, "10.0.0.10")
	require.NoError(t, err)
	out, err := h.engine.ExecuteDirective(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Error(t, ctx.Err())

	assert.Len(t, h.entries(t), 1)
	assert.Len(t, h.journal(t), 1)
	assert.True(t, b.Has(storage.KindIP, "10.0.0.10"))
}

// TestClear tests clear removes every rule and entry but leaves the journal
// TestClear 测试清空会移除所有规则和条目但保留日志
func TestClear(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, ActionBlock, KindIP, "10.0.0.1")
	require.NoError(t, err)
	_, err = h.run(t, ActionBlock, KindPort, "8080")
	require.NoError(t, err)

	out, err := h.run(t, ActionClear, KindNone, "")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "All 2 blocked entries have been unblocked and removed.", out.Message)
	assert.Empty(t, h.entries(t))
	assert.Zero(t, h.backend.RuleCount())
	assert.Len(t, h.journal(t), 2)

	res, err := h.engine.Rollback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Empty(t, h.journal(t))
}

// TestClear_PartialFailure tests entries whose rule could not be removed stay recorded
// TestClear_PartialFailure 测试规则移除失败的条目仍保留记录
func TestClear_PartialFailure(t *testing.T) {
	h := newHarness(t)
	for _, v := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := h.run(t, ActionBlock, KindIP, v)
		require.NoError(t, err)
	}
	h.backend.SetFailure("10.0.0.2", "iptables: Resource temporarily unavailable.")

	out, err := h.run(t, ActionClear, KindNone, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrBackend)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 2, out.Count)

	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.2", entries[0].Value)
	assert.True(t, h.backend.Has(storage.KindIP, "10.0.0.2"))
	assert.Equal(t, 1, h.backend.RuleCount())
}

// TestShowBlocked_Empty tests the empty listing message
// TestShowBlocked_Empty 测试空列表消息
func TestShowBlocked_Empty(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, ActionShowBlocked, KindNone, "")
	require.NoError(t, err)
	assert.Equal(t, msgNoEntries, out.Message)
	assert.Empty(t, out.Blocked)
}

// TestShowLogs tests log lines are returned and the source is optional
// TestShowLogs 测试返回日志行且日志源可选
func TestShowLogs(t *testing.T) {
	lines := make([]string, 15)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	h := newHarnessWith(t, backend.NewMockBackend(), fakeLogs{lines: lines})
	out, err := h.run(t, ActionShowLogs, KindNone, "")
	require.NoError(t, err)
	require.Len(t, out.Logs, RecentLogLines)
	assert.Equal(t, "line 14", out.Logs[RecentLogLines-1])
	assert.Equal(t, "Showing last 10 logs:", out.Message)

	h = newHarnessWith(t, backend.NewMockBackend(), fakeLogs{err: errors.New("permission denied")})
	out, err = h.run(t, ActionShowLogs, KindNone, "")
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, out.Status)

	h = newHarness(t)
	out, err = h.run(t, ActionShowLogs, KindNone, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Warnings)
}

// TestInit_Reconciles tests Init ensures the group and re-applies stored entries
// TestInit_Reconciles 测试 Init 确保规则组存在并重新应用已存储条目
func TestInit_Reconciles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.db.Record(ctx, storage.KindIP, "10.0.0.1")
	require.NoError(t, err)
	_, err = h.db.Record(ctx, storage.KindPort, "8080")
	require.NoError(t, err)

	require.NoError(t, h.engine.Init(ctx))
	assert.Equal(t, 1, h.backend.GroupEnsured)
	assert.True(t, h.backend.Has(storage.KindIP, "10.0.0.1"))
	assert.True(t, h.backend.Has(storage.KindPort, "8080"))

	h.backend.SetFailure("8080", "iptables: Bad rule.")
	err = h.engine.Init(ctx)
	assert.ErrorIs(t, err, perrors.ErrBackend)
}

// TestConcurrentBlocks tests parallel directives all land exactly once
// TestConcurrentBlocks 测试并发指令都恰好生效一次
func TestConcurrentBlocks(t *testing.T) {
	h := newHarness(t)
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := NewDirective(ActionBlock, KindIP, fmt.Sprintf("10.1.0.%d", i%10+1))
			if err != nil {
				return
			}
			_, _ = h.engine.ExecuteDirective(context.Background(), d)
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.entries(t), 10)
	assert.Len(t, h.journal(t), 10)
	assert.Equal(t, 10, h.backend.RuleCount())
}

// TestOutcome_Text tests terminal rendering
// TestOutcome_Text 测试终端渲染
func TestOutcome_Text(t *testing.T) {
	out := Outcome{
		Message:  msgShowBlocked,
		Blocked:  []storage.BlockedEntry{{Kind: storage.KindIP, Value: "10.0.0.1"}},
		Warnings: []string{"careful"},
	}
	assert.Equal(t, "Showing blocked IPs and Ports:\nip 10.0.0.1\n[WARN]  careful", out.Text())
	assert.False(t, out.OK())
}

// TestEnsureGroup tests the rule group is created on demand
// TestEnsureGroup 测试按需创建规则组
func TestEnsureGroup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.EnsureGroup(context.Background()))
	require.NoError(t, h.engine.EnsureGroup(context.Background()))
	assert.Equal(t, 2, h.backend.GroupEnsured)
	assert.Zero(t, h.backend.RuleCount())
}

// TestRuleGroup_OnlyAfterAdmission tests the group is created only for admitted mutations
// TestRuleGroup_OnlyAfterAdmission 测试规则组仅在变更被放行后创建
func TestRuleGroup_OnlyAfterAdmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mode.SetSafeMode(ctx, true))
	_, err := h.run(t, ActionBlock, KindIP, "10.0.0.1")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
	_, err = h.run(t, ActionClear, KindNone, "")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
	require.NoError(t, h.mode.SetSafeMode(ctx, false))

	_, err = h.run(t, ActionBlock, KindPort, "22")
	assert.ErrorIs(t, err, perrors.ErrSafetyDenied)
	_, err = h.run(t, ActionBlock, KindPort, "99999")
	assert.ErrorIs(t, err, perrors.ErrValidation)
	_, err = h.run(t, ActionShowBlocked, KindNone, "")
	require.NoError(t, err)
	assert.Zero(t, h.backend.EnsureCount())

	_, err = h.run(t, ActionBlock, KindIP, "10.0.0.1")
	require.NoError(t, err)
	_, err = h.run(t, ActionBlock, KindIP, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.EnsureCount())
}
