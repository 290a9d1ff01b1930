package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netxfw/netguard/internal/utils/fileutil"
	"gopkg.in/yaml.v3"
)

// LoadGlobalConfig loads the configuration from a YAML file.
// Keys absent from the file keep their defaults.
// LoadGlobalConfig 从 YAML 文件加载配置。
// 文件中缺失的键保留默认值。
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, err
	}

	// Initialize with defaults / 使用默认值初始化
	cfg := DefaultGlobalConfig()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Validate configuration / 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveGlobalConfig writes cfg into the commented template so that the file keeps
// its documentation and gains any sections added since it was created.
// SaveGlobalConfig 将 cfg 写入带注释的模板，
// 使文件保留文档说明并补全新增的配置段。
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var newNode yaml.Node
	if err := yaml.Unmarshal(data, &newNode); err != nil {
		return err
	}

	var templateNode yaml.Node
	if err := yaml.Unmarshal([]byte(DefaultConfigTemplate), &templateNode); err != nil {
		return err
	}

	// Template supplies structure and comments, cfg supplies values.
	// 模板提供结构与注释，cfg 提供取值。
	MergeYamlNodes(&templateNode, &newNode)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&templateNode); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := fileutil.EnsureParentDir(path); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// WriteDefaultConfig writes DefaultConfigTemplate to path.
// WriteDefaultConfig 将 DefaultConfigTemplate 写入 path。
func WriteDefaultConfig(path string) error {
	if err := fileutil.EnsureParentDir(path); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(path, []byte(DefaultConfigTemplate), 0600)
}

// MergeYamlNodes updates target (template) with source (user values).
// It preserves comments from target where possible and keeps keys only present in source.
// MergeYamlNodes 使用 source（用户值）更新 target（模板）。
// 尽可能保留 target 的注释，并保留仅存在于 source 中的键。
func MergeYamlNodes(target, source *yaml.Node) {
	if target.Kind == yaml.DocumentNode {
		if source.Kind == yaml.DocumentNode && len(target.Content) > 0 && len(source.Content) > 0 {
			MergeYamlNodes(target.Content[0], source.Content[0])
		}
		return
	}

	if target.Kind != yaml.MappingNode || source.Kind != yaml.MappingNode {
		// Replace target with source, but keep the template comments
		// 用 source 替换 target，但保留模板注释
		if source.HeadComment == "" {
			source.HeadComment = target.HeadComment
		}
		if source.LineComment == "" {
			source.LineComment = target.LineComment
		}
		if source.FootComment == "" {
			source.FootComment = target.FootComment
		}
		*target = *source
		return
	}

	sourceMap := make(map[string]int)
	for i := 0; i < len(source.Content); i += 2 {
		sourceMap[source.Content[i].Value] = i
	}

	var newContent []*yaml.Node
	processed := make(map[string]bool)

	for i := 0; i < len(target.Content); i += 2 {
		tKey := target.Content[i]
		tVal := target.Content[i+1]
		if sIdx, ok := sourceMap[tKey.Value]; ok {
			MergeYamlNodes(tVal, source.Content[sIdx+1])
			processed[tKey.Value] = true
		}
		newContent = append(newContent, tKey, tVal)
	}

	for i := 0; i < len(source.Content); i += 2 {
		if !processed[source.Content[i].Value] {
			newContent = append(newContent, source.Content[i], source.Content[i+1])
		}
	}

	target.Content = newContent
}
