// Package safety decides whether a mutation may touch the packet filter.
// Package safety 决定某个变更是否可以作用于包过滤器。
package safety

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/netxfw/netguard/internal/utils/iputil"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// Criticals lists targets the engine must never block or unblock.
// Criticals 列出引擎永远不能封禁或解封的目标。
type Criticals struct {
	IPs   []string
	Ports []string
	// Rules are boolean expressions over kind and value.
	// Rules 是基于 kind 与 value 的布尔表达式。
	Rules []string
}

// Request describes the directive being gated.
// Request 描述待检查的指令。
type Request struct {
	// Mutating is true when the directive can change filter state.
	// Mutating 为 true 表示指令可能改变过滤器状态。
	Mutating bool
	// Targeted is true when the directive names one (Kind, Value).
	// Targeted 为 true 表示指令指向单个 (Kind, Value)。
	Targeted bool
	Kind     storage.TargetKind
	Value    string
}

// Decision is the gate verdict.
// Decision 是闸门的裁决结果。
type Decision struct {
	Admitted bool
	Reason   errors.DenyReason
	// Rule is the critical rule that matched, if any.
	// Rule 是匹配到的关键规则（如有）。
	Rule string
}

// Err returns the denial as an error, or nil when admitted.
// Err 以错误形式返回拒绝结果，允许时返回 nil。
func (d Decision) Err(target string) error {
	if d.Admitted {
		return nil
	}
	return &errors.DeniedError{Reason: d.Reason, Target: target}
}

type ruleEnv struct {
	Kind  string `expr:"kind"`
	Value string `expr:"value"`
}

type compiledRule struct {
	src     string
	program *vm.Program
}

// Gate holds the immutable critical set and the Safe Mode accessor.
// Gate 保存不可变的关键目标集合与安全模式访问器。
type Gate struct {
	ips   map[string]struct{}
	ports map[string]struct{}
	rules []compiledRule
	mode  ModeSource
}

// NewGate validates and canonicalizes the critical set and compiles its rules.
// NewGate 校验并规范化关键目标集合，并编译其规则。
func NewGate(c Criticals, mode ModeSource) (*Gate, error) {
	g := &Gate{
		ips:   make(map[string]struct{}, len(c.IPs)),
		ports: make(map[string]struct{}, len(c.Ports)),
		mode:  mode,
	}
	for _, ip := range c.IPs {
		canon, err := iputil.ParseIPv4(ip)
		if err != nil {
			return nil, fmt.Errorf("critical ip %q: %w", ip, err)
		}
		g.ips[canon] = struct{}{}
	}
	for _, port := range c.Ports {
		canon, _, err := iputil.ParsePort(port)
		if err != nil {
			return nil, fmt.Errorf("critical port %q: %w", port, err)
		}
		g.ports[canon] = struct{}{}
	}
	for _, src := range c.Rules {
		program, err := expr.Compile(src, expr.Env(ruleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile critical rule %q: %w", src, err)
		}
		g.rules = append(g.rules, compiledRule{src: src, program: program})
	}
	return g, nil
}

// IsCritical reports whether (kind, value) is protected and by which entry.
// IsCritical 判断 (kind, value) 是否受保护以及由哪一项保护。
func (g *Gate) IsCritical(kind storage.TargetKind, value string) (bool, string) {
	switch kind {
	case storage.KindIP:
		if _, ok := g.ips[value]; ok {
			return true, "critical_ips"
		}
	case storage.KindPort:
		if _, ok := g.ports[value]; ok {
			return true, "critical_ports"
		}
	}
	env := ruleEnv{Kind: string(kind), Value: value}
	for _, rule := range g.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return true, rule.src
		}
	}
	return false, ""
}

// Admit gates a request. Safe Mode is read fresh for every mutating request;
// if it cannot be read the request is denied.
// Admit 检查请求。每个变更请求都会重新读取安全模式；读取失败时拒绝请求。
func (g *Gate) Admit(ctx context.Context, req Request) Decision {
	if !req.Mutating {
		return Decision{Admitted: true}
	}

	on, err := g.mode.SafeMode(ctx)
	if err != nil {
		logger.Get(ctx).Warnf("[WARN]  Safe mode state unavailable, refusing mutation: %v", err)
		on = true
	}
	if on {
		return Decision{Reason: errors.ReasonSafeModeActive}
	}

	if req.Targeted {
		if critical, rule := g.IsCritical(req.Kind, req.Value); critical {
			return Decision{Reason: errors.ReasonCriticalTarget, Rule: rule}
		}
	}
	return Decision{Admitted: true}
}

// SafeMode exposes the current Safe Mode state.
// SafeMode 返回当前安全模式状态。
func (g *Gate) SafeMode(ctx context.Context) (bool, error) {
	return g.mode.SafeMode(ctx)
}

// SetSafeMode persists a new Safe Mode state.
// SetSafeMode 持久化新的安全模式状态。
func (g *Gate) SetSafeMode(ctx context.Context, on bool) error {
	return g.mode.SetSafeMode(ctx, on)
}
