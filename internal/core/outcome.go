package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/netxfw/netguard/pkg/storage"
)

// Status is where a directive ended up.
// Status 表示指令的最终状态。
type Status string

const (
	StatusDone     Status = "DONE"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
	StatusInvalid  Status = "INVALID"
)

// Outcome is the transient answer to one directive. It is never persisted.
// Outcome 是对一条指令的临时应答，从不持久化。
type Outcome struct {
	ID       string                 `json:"id"`
	Action   Action                 `json:"action"`
	Kind     Kind                   `json:"kind,omitempty"`
	Value    string                 `json:"value,omitempty"`
	Status   Status                 `json:"status"`
	Message  string                 `json:"message"`
	Warnings []string               `json:"warnings,omitempty"`
	Blocked  []storage.BlockedEntry `json:"blocked,omitempty"`
	Logs     []string               `json:"logs,omitempty"`
	// Count is the number of entries a CLEAR_BLOCKED released.
	Count int `json:"count,omitempty"`
}

func newOutcome(d Directive) Outcome {
	return Outcome{
		ID:     uuid.NewString(),
		Action: d.action,
		Kind:   d.kind,
		Value:  d.value,
	}
}

// OK reports whether the directive completed.
func (o Outcome) OK() bool {
	return o.Status == StatusDone
}

// Text renders the outcome the way a terminal shows it: message, listed
// entries or log lines, then warnings.
// Text 按终端显示方式渲染结果：消息、条目或日志行，然后是警告。
func (o Outcome) Text() string {
	var b strings.Builder
	b.WriteString(o.Message)
	for _, e := range o.Blocked {
		b.WriteString("\n")
		b.WriteString(e.String())
	}
	for _, line := range o.Logs {
		b.WriteString("\n")
		b.WriteString(line)
	}
	for _, w := range o.Warnings {
		b.WriteString("\n[WARN]  ")
		b.WriteString(w)
	}
	return b.String()
}

// targetLabel names a target for operator messages ("IP 10.0.0.1", "Port 22").
func targetLabel(kind Kind, value string) string {
	switch kind {
	case KindIP:
		return "IP " + value
	case KindPort:
		return "Port " + value
	}
	return value
}

func blockedMessage(kind Kind, value string) string {
	return fmt.Sprintf("%s has been blocked.", targetLabel(kind, value))
}

func unblockedMessage(kind Kind, value string) string {
	return fmt.Sprintf("%s has been unblocked.", targetLabel(kind, value))
}

func invalidMessage(kind Kind, value string) string {
	return fmt.Sprintf("Invalid %s number: %s. Please provide a valid number.", strings.ToLower(string(kind)), value)
}

func criticalMessage(action Action, kind Kind, value string) string {
	verb := "blocked"
	if action == ActionUnblock {
		verb = "unblocked"
	}
	return fmt.Sprintf("%s %s is marked as critical and cannot be %s.", strings.ToLower(string(kind)), value, verb)
}
