package config

import (
	"sync"

	"github.com/netxfw/netguard/internal/runtime"
	"github.com/netxfw/netguard/internal/utils/logger"
)

// ConfigManager holds the configuration of a long-running process and allows reloading it.
// ConfigManager 保存长时间运行进程的配置，并支持重新加载。
type ConfigManager struct {
	configPath string
	mutex      sync.RWMutex
	config     *GlobalConfig
}

// NewConfigManager creates a new configuration manager instance
// NewConfigManager 创建新的配置管理器实例
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// LoadConfig loads the configuration from the manager's path.
// A failed load keeps the previous configuration.
// LoadConfig 从管理器路径加载配置。
// 加载失败时保留之前的配置。
func (cm *ConfigManager) LoadConfig() error {
	cfg, err := LoadGlobalConfig(cm.configPath)
	if err != nil {
		return err
	}

	cm.mutex.Lock()
	cm.config = cfg
	cm.mutex.Unlock()
	return nil
}

// SaveConfig saves the current configuration to the manager's path
// SaveConfig 将当前配置保存到管理器路径
func (cm *ConfigManager) SaveConfig() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	return SaveGlobalConfig(cm.configPath, cm.config)
}

// GetConfig returns a copy of the current configuration
// GetConfig 返回当前配置的副本
func (cm *ConfigManager) GetConfig() *GlobalConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	// Return a copy to prevent external modifications
	cfgCopy := *cm.config
	cfgCopy.Safety.CriticalIPs = append([]string(nil), cm.config.Safety.CriticalIPs...)
	cfgCopy.Safety.CriticalPorts = append([]string(nil), cm.config.Safety.CriticalPorts...)
	cfgCopy.Safety.CriticalRules = append([]string(nil), cm.config.Safety.CriticalRules...)
	return &cfgCopy
}

// UpdateConfig replaces the current configuration
// UpdateConfig 替换当前配置
func (cm *ConfigManager) UpdateConfig(newConfig *GlobalConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.config = newConfig
}

// GetWebConfig returns the web configuration
// GetWebConfig 返回Web配置
func (cm *ConfigManager) GetWebConfig() *WebConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	webCfg := cm.config.Web
	return &webCfg
}

// GetMetricsConfig returns the metrics configuration
// GetMetricsConfig 返回指标配置
func (cm *ConfigManager) GetMetricsConfig() *MetricsConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	metricsCfg := cm.config.Metrics
	return &metricsCfg
}

// GetLoggingConfig returns the logging configuration
// GetLoggingConfig 返回日志配置
func (cm *ConfigManager) GetLoggingConfig() *logger.LoggingConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	loggingCfg := cm.config.Logging
	return &loggingCfg
}

// GetConfigPath returns the path this manager reads from.
// GetConfigPath 返回此管理器读取的路径。
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// GetConfigPath resolves the configuration file path.
// It prioritizes the CLI flag (runtime.ConfigPath) over the default.
// GetConfigPath 解析配置文件路径。
// 优先使用 CLI 标志 (runtime.ConfigPath)，其次是默认值。
func GetConfigPath() string {
	if runtime.ConfigPath != "" {
		return runtime.ConfigPath
	}
	return DefaultConfigPath
}
