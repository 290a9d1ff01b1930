// Package backend applies block rules to the host packet filter.
// Package backend 将封禁规则应用到主机包过滤器。
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/netxfw/netguard/pkg/storage"
)

// Op is the direction of a rule change.
// Op 表示规则变更的方向。
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Command verbs understood by Run.
// Run 可识别的命令动词。
const (
	VerbAppend = "-A"
	VerbDelete = "-D"
)

// Command is one packet filter invocation in argv form: verb, chain, rulespec.
// Command 是一次包过滤器调用的参数形式：动词、链、规则说明。
type Command []string

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Backend manages the engine-owned rule group.
// Backend 管理引擎专属的规则组。
type Backend interface {
	// EnsureGroup creates the rule group if it is missing. Safe to call repeatedly.
	// EnsureGroup 在规则组缺失时创建它，可重复调用。
	EnsureGroup(ctx context.Context) error
	// Apply adds or removes the rule for (kind, value). Adding an existing rule
	// and removing an absent one both succeed without change.
	// Apply 添加或移除 (kind, value) 对应的规则。添加已有规则或移除不存在的规则都会成功且不产生变化。
	Apply(ctx context.Context, op Op, kind storage.TargetKind, value string) error
	// Run executes a previously built command, e.g. a journaled inverse.
	// Run 执行之前构建的命令，例如日志中的逆操作。
	Run(ctx context.Context, cmd Command) error
	// Inverse returns the command that undoes Apply(op, kind, value).
	// Inverse 返回撤销 Apply(op, kind, value) 的命令。
	Inverse(op Op, kind storage.TargetKind, value string) Command
}

// RuleSpec returns the match/target arguments for a blocked target.
// RuleSpec 返回封禁目标的匹配与动作参数。
func RuleSpec(kind storage.TargetKind, value string) ([]string, error) {
	switch kind {
	case storage.KindIP:
		return []string{"-s", value, "-j", "DROP"}, nil
	case storage.KindPort:
		return []string{"-p", "tcp", "--dport", value, "-j", "DROP"}, nil
	default:
		return nil, fmt.Errorf("unsupported target kind: %q", kind)
	}
}

// BuildCommand returns the command performing op on (kind, value) in chain.
// BuildCommand 返回在 chain 中对 (kind, value) 执行 op 的命令。
func BuildCommand(chain string, op Op, kind storage.TargetKind, value string) (Command, error) {
	spec, err := RuleSpec(kind, value)
	if err != nil {
		return nil, err
	}
	verb := VerbAppend
	if op == OpRemove {
		verb = VerbDelete
	}
	return append(Command{verb, chain}, spec...), nil
}

// inverse builds the opposite command of op; it assumes kind is valid.
func inverse(chain string, op Op, kind storage.TargetKind, value string) Command {
	opposite := OpRemove
	if op == OpRemove {
		opposite = OpAdd
	}
	cmd, err := BuildCommand(chain, opposite, kind, value)
	if err != nil {
		return nil
	}
	return cmd
}

// parseCommand splits cmd into verb, chain and rulespec.
func parseCommand(cmd Command) (verb, chain string, spec []string, err error) {
	if len(cmd) < 3 {
		return "", "", nil, fmt.Errorf("malformed command: %q", cmd.String())
	}
	switch cmd[0] {
	case VerbAppend, VerbDelete:
		return cmd[0], cmd[1], cmd[2:], nil
	default:
		return "", "", nil, fmt.Errorf("unsupported command verb: %q", cmd[0])
	}
}
