// Package version reports the netguard build version.
// Package version 报告 netguard 的构建版本。
package version

import "runtime/debug"

// Version is overridden at build time via -ldflags "-X github.com/netxfw/netguard/internal/version.Version=...".
// Version 在构建时通过 -ldflags 覆盖。
var Version = "dev"

// Get returns Version, falling back to the module version recorded by
// "go install" when no -ldflags value was given.
// Get 返回 Version；未通过 -ldflags 指定时，回退到 "go install" 记录的模块版本。
func Get() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
