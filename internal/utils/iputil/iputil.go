package iputil

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const (
	// MinPort is the lowest port a directive may target.
	// MinPort 是指令可以指定的最小端口。
	MinPort = 1
	// MaxPort is the highest TCP port.
	// MaxPort 是最大的 TCP 端口。
	MaxPort = 65535
)

// IsValidIP reports whether s parses as any IPv4 or IPv6 address.
// IsValidIP 判断 s 是否可解析为 IPv4 或 IPv6 地址。
func IsValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

// ParseIPv4 accepts only a well-formed dotted-quad IPv4 address and returns its canonical form.
// Leading zeros, IPv4-mapped IPv6 notation, zones and CIDR suffixes are rejected.
// ParseIPv4 仅接受格式正确的点分十进制 IPv4 地址并返回其规范形式。
// 拒绝前导零、IPv4 映射的 IPv6 表示、区域和 CIDR 后缀。
func ParseIPv4(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ".") != 3 {
		return "", fmt.Errorf("not a dotted-quad address: %q", s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", err
	}
	if !addr.Is4() {
		return "", fmt.Errorf("not an IPv4 address: %q", s)
	}
	return addr.String(), nil
}

// ParsePort parses a decimal TCP port in [1, 65535] and returns its canonical string form
// ("0080" becomes "80").
// ParsePort 解析 [1, 65535] 范围内的十进制 TCP 端口并返回其规范字符串（"0080" 变为 "80"）。
func ParsePort(s string) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("empty port")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", 0, fmt.Errorf("port must be numeric: %q", s)
		}
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return "", 0, err
	}
	if port < MinPort || port > MaxPort {
		return "", 0, fmt.Errorf("port must be between %d-%d, got %d", MinPort, MaxPort, port)
	}
	return strconv.Itoa(port), port, nil
}
