// Package impact probes whether a target is in use before it gets blocked.
// Package impact 在封禁前探测目标是否正在使用。
package impact

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/pkg/storage"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultPingCount = 2
)

// Report is the probe verdict. A probe that could not run is inactive with the error in Detail.
// Report 是探测结果。无法执行的探测视为不活跃，错误信息写入 Detail。
type Report struct {
	Active bool   `json:"active"`
	Detail string `json:"detail"`
	// Inconclusive marks a probe that could not run.
	// Inconclusive 表示探测无法执行。
	Inconclusive bool `json:"inconclusive,omitempty"`
}

// Pinger sends count echo requests and returns how many replies arrived.
// Pinger 发送 count 个回显请求并返回收到的回复数。
type Pinger interface {
	Ping(ctx context.Context, ip string, count int) (received int, err error)
}

// ListenerSource lists local TCP listeners bound to a port.
// ListenerSource 列出绑定到某端口的本地 TCP 监听者。
type ListenerSource interface {
	Listeners(ctx context.Context, port uint32) ([]Listener, error)
}

// Listener is one listening socket.
// Listener 表示一个监听套接字。
type Listener struct {
	Addr string
	Pid  int32
}

// Options configures an Analyzer.
// Options 配置 Analyzer。
type Options struct {
	Enabled   bool
	Timeout   time.Duration
	PingCount int
}

// Analyzer runs the bounded liveness probes.
// Analyzer 执行有时限的活跃探测。
type Analyzer struct {
	opts      Options
	pinger    Pinger
	listeners ListenerSource
}

// New returns an Analyzer using the given probe implementations.
// New 使用给定的探测实现返回 Analyzer。
func New(opts Options, pinger Pinger, listeners ListenerSource) *Analyzer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PingCount <= 0 {
		opts.PingCount = DefaultPingCount
	}
	return &Analyzer{opts: opts, pinger: pinger, listeners: listeners}
}

// Probe checks (kind, value). It never returns an error; failures forfeit the warning.
// Probe 检查 (kind, value)。它从不返回错误；失败时放弃告警。
func (a *Analyzer) Probe(ctx context.Context, kind storage.TargetKind, value string) Report {
	if !a.opts.Enabled {
		return Report{Detail: "impact analysis disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	done := make(chan Report, 1)
	go func() {
		switch kind {
		case storage.KindIP:
			done <- a.probeIP(ctx, value)
		case storage.KindPort:
			done <- a.probePort(ctx, value)
		default:
			done <- Report{Detail: fmt.Sprintf("probe unavailable: unsupported target kind %q", kind), Inconclusive: true}
		}
	}()

	var report Report
	select {
	case report = <-done:
	case <-ctx.Done():
		report = Report{Detail: fmt.Sprintf("probe failed: %v", ctx.Err()), Inconclusive: true}
	}

	logger.Get(ctx).Debugw("impact probe finished",
		"kind", kind, "value", value, "active", report.Active, "detail", report.Detail)
	return report
}

func (a *Analyzer) probeIP(ctx context.Context, ip string) Report {
	if a.pinger == nil {
		return Report{Detail: "probe unavailable: no pinger", Inconclusive: true}
	}
	received, err := a.pinger.Ping(ctx, ip, a.opts.PingCount)
	if received > 0 {
		return Report{Active: true, Detail: fmt.Sprintf("%s answered %d/%d echo requests", ip, received, a.opts.PingCount)}
	}
	if err != nil {
		return Report{Detail: fmt.Sprintf("probe failed: %v", err), Inconclusive: true}
	}
	return Report{Detail: fmt.Sprintf("%s answered 0/%d echo requests", ip, a.opts.PingCount)}
}

func (a *Analyzer) probePort(ctx context.Context, value string) Report {
	if a.listeners == nil {
		return Report{Detail: "probe unavailable: no listener source", Inconclusive: true}
	}
	port, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return Report{Detail: fmt.Sprintf("probe failed: %v", err), Inconclusive: true}
	}
	found, err := a.listeners.Listeners(ctx, uint32(port))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Report{Detail: "probe failed: timed out reading socket table", Inconclusive: true}
		}
		return Report{Detail: fmt.Sprintf("probe failed: %v", err), Inconclusive: true}
	}
	if len(found) == 0 {
		return Report{Detail: fmt.Sprintf("no listener on tcp port %d", port)}
	}
	detail := fmt.Sprintf("%d listener(s) on tcp port %d:", len(found), port)
	for _, l := range found {
		detail += fmt.Sprintf(" %s", l.Addr)
		if l.Pid > 0 {
			detail += fmt.Sprintf(" (pid %d)", l.Pid)
		}
	}
	return Report{Active: true, Detail: detail}
}
