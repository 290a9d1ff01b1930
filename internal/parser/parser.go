// Package parser turns operator text such as "block ip 10.0.0.1" into directives.
// Package parser 将 "block ip 10.0.0.1" 之类的操作员文本转换为指令。
package parser

import (
	"strings"

	"github.com/netxfw/netguard/internal/core"
)

// Commands lists the accepted phrasings, for help output.
// Commands 列出可接受的指令写法，用于帮助输出。
var Commands = []string{
	"block ip <A.B.C.D>",
	"block port <1-65535>",
	"unblock ip <A.B.C.D>",
	"unblock port <1-65535>",
	"show blocked",
	"clear blocked",
	"show logs",
}

var phrases = map[string]core.Action{
	"show blocked":  core.ActionShowBlocked,
	"clear blocked": core.ActionClear,
	"show logs":     core.ActionShowLogs,
}

// Parse reads one command. Case and extra whitespace are ignored. A recognized
// block/unblock with a malformed value yields INVALID; anything else yields UNKNOWN.
// Parse 解析一条命令，忽略大小写与多余空白。可识别的 block/unblock 若值格式错误则返回 INVALID；
// 其他无法识别的输入返回 UNKNOWN。
func Parse(text string) core.Directive {
	words := strings.Fields(strings.ToLower(text))
	if action, ok := phrases[strings.Join(words, " ")]; ok {
		d, err := core.NewDirective(action, core.KindNone, "")
		if err != nil {
			return core.Unknown(text)
		}
		return d
	}

	if len(words) != 3 {
		return core.Unknown(text)
	}

	var action core.Action
	switch words[0] {
	case "block":
		action = core.ActionBlock
	case "unblock":
		action = core.ActionUnblock
	default:
		return core.Unknown(text)
	}

	var kind core.Kind
	switch words[1] {
	case "ip":
		kind = core.KindIP
	case "port":
		kind = core.KindPort
	default:
		return core.Unknown(text)
	}

	value := words[2]
	if err := core.ValidateValue(kind, value); err != nil {
		return core.Invalid(kind, value, err.Error())
	}
	d, err := core.NewDirective(action, kind, value)
	if err != nil {
		return core.Invalid(kind, value, err.Error())
	}
	return d
}
