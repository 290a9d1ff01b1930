package backend

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	perrors "github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// MockBackend is an in-memory Backend for tests and dry runs.
// MockBackend 是用于测试和演练的内存 Backend。
type MockBackend struct {
	mu sync.Mutex

	Chain string
	// Rules holds the current rulespecs keyed by their string form.
	// Rules 以字符串形式为键保存当前规则。
	Rules map[string]Command
	// History lists every command that reached the filter, in order.
	// History 按顺序列出到达过滤器的每条命令。
	History []Command
	// GroupEnsured counts EnsureGroup calls.
	GroupEnsured int

	// FailOn makes any command mentioning the value fail with the given output.
	// FailOn 使涉及该值的命令以给定输出失败。
	FailOn map[string]string
	// Delay is slept before every command; it honors ctx.
	// Delay 在每条命令前等待，并遵循 ctx。
	Delay time.Duration
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		Chain:  "NETGUARD",
		Rules:  make(map[string]Command),
		FailOn: make(map[string]string),
	}
}

func (m *MockBackend) EnsureGroup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GroupEnsured++
	return nil
}

func (m *MockBackend) Apply(ctx context.Context, op Op, kind storage.TargetKind, value string) error {
	cmd, err := BuildCommand(m.Chain, op, kind, value)
	if err != nil {
		return &perrors.BackendError{Command: []string{string(op), string(kind), value}, Err: err}
	}
	return m.Run(ctx, cmd)
}

func (m *MockBackend) Run(ctx context.Context, cmd Command) error {
	verb, _, spec, err := parseCommand(cmd)
	if err != nil {
		return &perrors.BackendError{Command: cmd, Err: err}
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			cause := perrors.ErrTimeout
			if errors.Is(ctx.Err(), context.Canceled) {
				cause = perrors.ErrCanceled
			}
			return &perrors.BackendError{Command: cmd, Output: ctx.Err().Error(), Err: cause}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for value, output := range m.FailOn {
		if slices.Contains(cmd, value) {
			return &perrors.BackendError{Command: cmd, Output: output}
		}
	}

	m.History = append(m.History, slices.Clone(cmd))
	key := Command(spec).String()
	if verb == VerbAppend {
		m.Rules[key] = slices.Clone(cmd)
	} else {
		delete(m.Rules, key)
	}
	return nil
}

func (m *MockBackend) Inverse(op Op, kind storage.TargetKind, value string) Command {
	return inverse(m.Chain, op, kind, value)
}

// Has reports whether the rule for (kind, value) is installed.
// Has 判断 (kind, value) 对应的规则是否已安装。
func (m *MockBackend) Has(kind storage.TargetKind, value string) bool {
	spec, err := RuleSpec(kind, value)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Rules[Command(spec).String()]
	return ok
}

// EnsureCount returns GroupEnsured under the lock.
func (m *MockBackend) EnsureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GroupEnsured
}

// RuleCount returns the number of installed rules.
func (m *MockBackend) RuleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rules)
}

// Commands returns a copy of History.
func (m *MockBackend) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.History)
}

// SetFailure makes commands mentioning value fail; an empty output clears it.
// SetFailure 使涉及 value 的命令失败；output 为空时清除。
func (m *MockBackend) SetFailure(value, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if output == "" {
		delete(m.FailOn, value)
		return
	}
	m.FailOn[value] = output
}
