package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	sentinelErrors := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrInvalidIP", ErrInvalidIP, "invalid IP address"},
		{"ErrInvalidPort", ErrInvalidPort, "invalid port number"},
		{"ErrInvalidAction", ErrInvalidAction, "invalid action"},
		{"ErrInvalidTarget", ErrInvalidTarget, "invalid target kind"},
		{"ErrConfigInvalid", ErrConfigInvalid, "invalid configuration"},
		{"ErrTimeout", ErrTimeout, "operation timeout"},
		{"ErrValidation", ErrValidation, "validation error"},
		{"ErrSafetyDenied", ErrSafetyDenied, "safety denied"},
		{"ErrImpactWarning", ErrImpactWarning, "impact warning"},
		{"ErrBackend", ErrBackend, "backend error"},
		{"ErrJournalReplayPartial", ErrJournalReplayPartial, "journal replay partial failure"},
	}

	for _, tc := range sentinelErrors {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Errorf("%s is nil", tc.name)
				return
			}
			if tc.err.Error() != tc.msg {
				t.Errorf("%s: got %q, want %q", tc.name, tc.err.Error(), tc.msg)
			}
		})
	}
}

// TestValidationErrors tests that validation constructors wrap both sentinels
// TestValidationErrors 测试校验构造函数同时包装两个哨兵错误
func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   string
	}{
		{"IP", NewIPError("999.1.1.1"), ErrInvalidIP, "validation error: invalid IP address: 999.1.1.1"},
		{"Port", NewPortError("70000"), ErrInvalidPort, "validation error: invalid port number: 70000"},
		{"Target", NewTargetError("mac"), ErrInvalidTarget, "validation error: invalid target kind: mac"},
		{"Action", NewActionError("nuke"), ErrInvalidAction, "validation error: invalid action: nuke"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, ErrValidation)
			assert.ErrorIs(t, tt.err, tt.target)
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

// TestDeniedError tests DeniedError formatting and unwrapping
// TestDeniedError 测试 DeniedError 的格式化与解包
func TestDeniedError(t *testing.T) {
	err := error(&DeniedError{Reason: ReasonCriticalTarget, Target: "port 22"})
	assert.ErrorIs(t, err, ErrSafetyDenied)
	assert.Equal(t, "safety denied: CRITICAL_TARGET (port 22)", err.Error())

	var denied *DeniedError
	wrapped := fmt.Errorf("directive rejected: %w", err)
	assert.True(t, errors.As(wrapped, &denied))
	assert.Equal(t, ReasonCriticalTarget, denied.Reason)

	noTarget := &DeniedError{Reason: ReasonSafeModeActive}
	assert.Equal(t, "safety denied: SAFE_MODE_ACTIVE", noTarget.Error())
}

// TestBackendError tests BackendError carries output and cause
// TestBackendError 测试 BackendError 携带输出和原因
func TestBackendError(t *testing.T) {
	err := &BackendError{
		Command: []string{"-A", "NETGUARD", "-s", "10.0.0.1", "-j", "DROP"},
		Output:  "iptables: No chain/target/match by that name.",
		Err:     ErrTimeout,
	}
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "-A NETGUARD -s 10.0.0.1 -j DROP")
	assert.Contains(t, err.Error(), "No chain/target/match")

	bare := &BackendError{Command: []string{"-L"}}
	assert.ErrorIs(t, bare, ErrBackend)
	assert.Equal(t, "backend error: -L", bare.Error())
}

// TestReplayError tests ReplayError lists failed commands
// TestReplayError 测试 ReplayError 列出失败的命令
func TestReplayError(t *testing.T) {
	err := &ReplayError{
		Applied: 2,
		Failed:  [][]string{{"-D", "NETGUARD", "-s", "10.0.0.9", "-j", "DROP"}},
	}
	assert.ErrorIs(t, err, ErrJournalReplayPartial)
	assert.Contains(t, err.Error(), "applied=2 failed=1")
	assert.Contains(t, err.Error(), "-D NETGUARD -s 10.0.0.9 -j DROP")
}

func TestNewImpactError(t *testing.T) {
	err := NewImpactError("ip 10.0.0.5", "2 replies received")
	assert.ErrorIs(t, err, ErrImpactWarning)
	assert.Equal(t, "impact warning: ip 10.0.0.5 is active: 2 replies received", err.Error())
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("storage.driver", "mongo")
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Equal(t, "invalid configuration: field=storage.driver value=mongo", err.Error())
}
