// Package fmtutil provides formatting utilities for human-readable output.
// Package fmtutil 提供用于人类可读输出的格式化工具。
package fmtutil

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats a duration as "1d 2h 3m 4s", dropping zero units.
// FormatDuration 将持续时间格式化为 "1d 2h 3m 4s"，省略为零的单位。
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	units := []struct {
		n      int
		suffix string
	}{
		{int(d.Hours()) / 24, "d"},
		{int(d.Hours()) % 24, "h"},
		{int(d.Minutes()) % 60, "m"},
		{int(d.Seconds()) % 60, "s"},
	}

	var parts []string
	for _, u := range units {
		if u.n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", u.n, u.suffix))
		}
	}
	return strings.Join(parts, " ")
}

// FormatAge describes how long ago t was, rounded to the second.
// A zero or future time reads as "just now".
// FormatAge 描述 t 距今多久，精确到秒。零值或未来时间显示为 "just now"。
func FormatAge(t, now time.Time) string {
	if t.IsZero() || !now.After(t) {
		return "just now"
	}
	d := now.Sub(t).Truncate(time.Second)
	if d < time.Second {
		return "just now"
	}
	return FormatDuration(d) + " ago"
}
