package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidIP        = errors.New("invalid IP address")
	ErrInvalidPort      = errors.New("invalid port number")
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidTarget    = errors.New("invalid target kind")
	ErrConfigNotFound   = errors.New("config not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrStoreClosed      = errors.New("store closed")
	ErrTimeout          = errors.New("operation timeout")
	ErrCanceled         = errors.New("operation canceled")
	ErrBinaryNotFound   = errors.New("packet filter binary not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Directive error taxonomy. Every rejected or failed directive wraps exactly one of these.
// 指令错误分类。每个被拒绝或失败的指令都恰好包装其中之一。
var (
	ErrValidation           = errors.New("validation error")
	ErrSafetyDenied         = errors.New("safety denied")
	ErrImpactWarning        = errors.New("impact warning")
	ErrBackend              = errors.New("backend error")
	ErrJournalReplayPartial = errors.New("journal replay partial failure")
)

// DenyReason names why the safety gate refused a directive.
// DenyReason 说明安全闸门拒绝指令的原因。
type DenyReason string

const (
	ReasonSafeModeActive DenyReason = "SAFE_MODE_ACTIVE"
	ReasonCriticalTarget DenyReason = "CRITICAL_TARGET"
)

// DeniedError is returned when the safety gate rejects a mutating directive.
// DeniedError 在安全闸门拒绝变更指令时返回。
type DeniedError struct {
	Reason DenyReason
	Target string
}

func (e *DeniedError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s", ErrSafetyDenied, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrSafetyDenied, e.Reason, e.Target)
}

func (e *DeniedError) Unwrap() error { return ErrSafetyDenied }

// BackendError carries the raw diagnostic output of a failed packet filter invocation.
// BackendError 携带失败的包过滤器调用的原始诊断输出。
type BackendError struct {
	Command []string
	Output  string
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrBackend, strings.Join(e.Command, " "))
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBackend}
	}
	return []error{ErrBackend, e.Err}
}

// ReplayError lists the inverse commands that rollback could not apply.
// ReplayError 列出回滚无法应用的逆向命令。
type ReplayError struct {
	Applied int
	Failed  [][]string
}

func (e *ReplayError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, cmd := range e.Failed {
		parts = append(parts, strings.Join(cmd, " "))
	}
	return fmt.Sprintf("%s: applied=%d failed=%d [%s]", ErrJournalReplayPartial, e.Applied, len(e.Failed), strings.Join(parts, "; "))
}

func (e *ReplayError) Unwrap() error { return ErrJournalReplayPartial }

func NewIPError(ip string) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, ErrInvalidIP, ip)
}

func NewPortError(port string) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, ErrInvalidPort, port)
}

func NewTargetError(kind string) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, ErrInvalidTarget, kind)
}

func NewActionError(action string) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, ErrInvalidAction, action)
}

func NewImpactError(target, detail string) error {
	return fmt.Errorf("%w: %s is active: %s", ErrImpactWarning, target, detail)
}

func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrConfigInvalid, field, value)
}
