package impact

import (
	"context"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// ICMPPinger pings with pro-bing.
// ICMPPinger 使用 pro-bing 发送 ping。
type ICMPPinger struct {
	// Privileged uses raw sockets; otherwise unprivileged UDP ICMP is used.
	// Privileged 使用原始套接字；否则使用非特权 UDP ICMP。
	Privileged bool
}

func (p ICMPPinger) Ping(ctx context.Context, ip string, count int) (int, error) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return 0, err
	}
	pinger.Count = count
	pinger.SetPrivileged(p.Privileged)
	if deadline, ok := ctx.Deadline(); ok {
		pinger.Timeout = time.Until(deadline)
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		return pinger.Statistics().PacketsRecv, err
	}
	return pinger.Statistics().PacketsRecv, nil
}

// SocketTable reads the host TCP socket table with gopsutil.
// SocketTable 使用 gopsutil 读取主机 TCP 套接字表。
type SocketTable struct{}

func (SocketTable) Listeners(ctx context.Context, port uint32) ([]Listener, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, err
	}
	var found []Listener
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port != port {
			continue
		}
		found = append(found, Listener{
			Addr: net.JoinHostPort(c.Laddr.IP, fmt.Sprint(c.Laddr.Port)),
			Pid:  c.Pid,
		})
	}
	return found, nil
}
