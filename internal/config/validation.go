package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/netxfw/netguard/internal/utils/iputil"
	"github.com/netxfw/netguard/pkg/errors"
)

// Validate checks the configuration for errors.
// Validate 检查配置是否存在错误。
func (c *GlobalConfig) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return fmt.Errorf("base config error: %w", err)
	}
	if err := c.Safety.Validate(); err != nil {
		return fmt.Errorf("safety config error: %w", err)
	}
	if err := c.Impact.Validate(); err != nil {
		return fmt.Errorf("impact config error: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config error: %w", err)
	}
	if err := c.Web.Validate(); err != nil {
		return fmt.Errorf("web config error: %w", err)
	}
	return nil
}

func (c *BaseConfig) Validate() error {
	if c.Table == "" {
		return errors.NewConfigError("base.table", c.Table)
	}
	if c.Chain == "" || strings.ContainsAny(c.Chain, " \t") || len(c.Chain) > 28 {
		return errors.NewConfigError("base.chain", c.Chain)
	}
	if c.HookChain == c.Chain {
		return errors.NewConfigError("base.hook_chain", c.HookChain)
	}
	if err := validateDuration(c.CommandTimeout); err != nil {
		return fmt.Errorf("invalid command_timeout %q: %w", c.CommandTimeout, err)
	}
	if c.Wait < 0 {
		return errors.NewConfigError("base.wait", c.Wait)
	}
	return nil
}

// Validate normalizes critical entries in place so that "0022" matches "22".
// Validate 就地规范化关键条目，使 "0022" 与 "22" 匹配。
func (c *SafetyConfig) Validate() error {
	if c.SafeModeFile == "" {
		return errors.NewConfigError("safety.safe_mode_file", c.SafeModeFile)
	}
	for i, ip := range c.CriticalIPs {
		canon, err := iputil.ParseIPv4(ip)
		if err != nil {
			return fmt.Errorf("invalid critical_ips entry #%d (%s): %w", i, ip, err)
		}
		c.CriticalIPs[i] = canon
	}
	for i, port := range c.CriticalPorts {
		canon, _, err := iputil.ParsePort(port)
		if err != nil {
			return fmt.Errorf("invalid critical_ports entry #%d (%s): %w", i, port, err)
		}
		c.CriticalPorts[i] = canon
	}
	for i, rule := range c.CriticalRules {
		if strings.TrimSpace(rule) == "" {
			return fmt.Errorf("invalid critical_rules entry #%d: empty expression", i)
		}
	}
	return nil
}

func (c *ImpactConfig) Validate() error {
	if err := validateDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if c.PingCount < 0 {
		return errors.NewConfigError("impact.ping_count", c.PingCount)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverSQLite, StorageDriverYAML:
	default:
		return errors.NewConfigError("storage.driver", c.Driver)
	}
	if c.Path == "" {
		return errors.NewConfigError("storage.path", c.Path)
	}
	return nil
}

func (c *WebConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := netip.ParseAddrPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
