// Package core runs operator directives against the packet filter.
// Package core 针对包过滤器执行操作员指令。
package core

import (
	"fmt"
	"strings"

	"github.com/netxfw/netguard/internal/utils/iputil"
	"github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// Action is what a directive asks for.
// Action 表示指令请求的动作。
type Action string

const (
	ActionBlock       Action = "BLOCK"
	ActionUnblock     Action = "UNBLOCK"
	ActionShowBlocked Action = "SHOW_BLOCKED"
	ActionClear       Action = "CLEAR_BLOCKED"
	ActionShowLogs    Action = "SHOW_LOGS"
	ActionInvalid     Action = "INVALID"
	ActionUnknown     Action = "UNKNOWN"
)

// Mutating reports whether the action can change filter state.
// Mutating 判断该动作是否可能改变过滤器状态。
func (a Action) Mutating() bool {
	return a == ActionBlock || a == ActionUnblock || a == ActionClear
}

// Targeted reports whether the action names one (Kind, Value).
func (a Action) Targeted() bool {
	return a == ActionBlock || a == ActionUnblock
}

// Kind is the target a directive names.
// Kind 表示指令的目标类型。
type Kind string

const (
	KindIP   Kind = "IP"
	KindPort Kind = "PORT"
	KindNone Kind = "NONE"
)

// ParseAction maps a case-insensitive name to an Action.
// ParseAction 将不区分大小写的名称映射为 Action。
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionBlock, ActionUnblock, ActionShowBlocked, ActionClear, ActionShowLogs, ActionInvalid, ActionUnknown:
		return a, nil
	}
	return "", errors.NewActionError(s)
}

// ParseKind maps a case-insensitive name to a Kind. An empty string is KindNone.
// ParseKind 将不区分大小写的名称映射为 Kind。空字符串视为 KindNone。
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KindNone, nil
	}
	k := Kind(strings.ToUpper(s))
	switch k {
	case KindIP, KindPort, KindNone:
		return k, nil
	}
	return "", errors.NewTargetError(s)
}

// StorageKind returns the persisted form of k.
func (k Kind) StorageKind() (storage.TargetKind, bool) {
	switch k {
	case KindIP:
		return storage.KindIP, true
	case KindPort:
		return storage.KindPort, true
	}
	return "", false
}

// KindOf maps a persisted kind back to a directive Kind.
func KindOf(k storage.TargetKind) Kind {
	switch k {
	case storage.KindIP:
		return KindIP
	case storage.KindPort:
		return KindPort
	}
	return KindNone
}

// Directive is one parsed operator request. The zero value is not usable;
// build one with NewDirective, Invalid or Unknown.
// Directive 是一条解析后的操作员请求。零值不可用；
// 请使用 NewDirective、Invalid 或 Unknown 构造。
type Directive struct {
	action Action
	kind   Kind
	value  string
	// reason explains an INVALID directive; text holds the input of an UNKNOWN one.
	reason string
	text   string
}

// NewDirective builds a directive, rejecting combinations no front end can mean.
// BLOCK and UNBLOCK need IP or PORT with a value; the query actions and
// CLEAR_BLOCKED take no target. The value is not validated here.
// NewDirective 构造指令并拒绝无意义的组合。
// BLOCK 与 UNBLOCK 需要 IP 或 PORT 及其值；查询动作与 CLEAR_BLOCKED 不带目标。此处不校验值。
func NewDirective(action Action, kind Kind, value string) (Directive, error) {
	value = strings.TrimSpace(value)
	switch action {
	case ActionBlock, ActionUnblock:
		if kind != KindIP && kind != KindPort {
			return Directive{}, errors.NewTargetError(string(kind))
		}
		if value == "" {
			return Directive{}, fmt.Errorf("%w: %s %s needs a value", errors.ErrValidation, action, kind)
		}
	case ActionShowBlocked, ActionClear, ActionShowLogs:
		if kind != KindNone && kind != "" {
			return Directive{}, errors.NewTargetError(string(kind))
		}
		if value != "" {
			return Directive{}, fmt.Errorf("%w: %s takes no value", errors.ErrValidation, action)
		}
		kind = KindNone
	default:
		return Directive{}, errors.NewActionError(string(action))
	}
	return Directive{action: action, kind: kind, value: value}, nil
}

// Invalid is a directive whose target value a front end already found malformed.
// Invalid 表示前端已判定目标值格式错误的指令。
func Invalid(kind Kind, value, reason string) Directive {
	return Directive{action: ActionInvalid, kind: kind, value: value, reason: reason}
}

// Unknown is a directive no front end could interpret.
// Unknown 表示前端无法解析的指令。
func Unknown(text string) Directive {
	return Directive{action: ActionUnknown, kind: KindNone, text: text}
}

func (d Directive) Action() Action { return d.action }
func (d Directive) Kind() Kind     { return d.kind }
func (d Directive) Value() string  { return d.value }

// Reason is the validation message of an INVALID directive.
func (d Directive) Reason() string { return d.reason }

// Text is the raw input of an UNKNOWN directive.
func (d Directive) Text() string { return d.text }

func (d Directive) String() string {
	switch {
	case d.action.Targeted():
		return fmt.Sprintf("%s %s %s", d.action, d.kind, d.value)
	case d.action == ActionInvalid:
		return fmt.Sprintf("%s %s %s", d.action, d.kind, d.value)
	default:
		return string(d.action)
	}
}

// canonicalValue validates value for kind and returns its canonical form.
// canonicalValue 校验 kind 对应的值并返回其规范形式。
func canonicalValue(kind Kind, value string) (string, error) {
	switch kind {
	case KindIP:
		canon, err := iputil.ParseIPv4(value)
		if err != nil {
			return "", errors.NewIPError(value)
		}
		return canon, nil
	case KindPort:
		canon, _, err := iputil.ParsePort(value)
		if err != nil {
			return "", errors.NewPortError(value)
		}
		return canon, nil
	}
	return "", errors.NewTargetError(string(kind))
}

// ValidateValue reports whether value is acceptable for kind.
// ValidateValue 判断 value 对 kind 是否合法。
func ValidateValue(kind Kind, value string) error {
	_, err := canonicalValue(kind, value)
	return err
}
