package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/allanpk716/docx_run_replacer/internal/domain"
	"github.com/allanpk716/docx_run_replacer/internal/matcher"
)

// CurrentVersion 当前配置文件版本
const CurrentVersion = "2.0"

// ErrInvalidConfig 配置内容不合法
var ErrInvalidConfig = errors.New("配置无效")

// Keyword 表示一个关键词配置项
type Keyword struct {
	Key        string `json:"key" yaml:"key"`
	Value      string `json:"value" yaml:"value"` // 可以为空，表示删除匹配的文本
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
}

// IsEnabled 未设置 enabled 时视为启用
func (k Keyword) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

// ProcessingConfig 处理配置
type ProcessingConfig struct {
	WrapKeys              *bool    `json:"wrap_keys,omitempty" yaml:"wrap_keys,omitempty"`
	IncludeHeadersFooters bool     `json:"include_headers_footers" yaml:"include_headers_footers"`
	TrackReplacements     bool     `json:"track_replacements" yaml:"track_replacements"`
	EnableDetailedLogging bool     `json:"enable_detailed_logging" yaml:"enable_detailed_logging"`
	MaxConcurrentFiles    int      `json:"max_concurrent_files" yaml:"max_concurrent_files"`
	BackupOriginal        bool     `json:"backup_original" yaml:"backup_original"`
	OutputSuffix          string   `json:"output_suffix" yaml:"output_suffix"`
	ExcludePatterns       []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
}

// ShouldWrapKeys 是否把关键词包装成 #key#，默认包装
func (pc *ProcessingConfig) ShouldWrapKeys() bool {
	return pc == nil || pc.WrapKeys == nil || *pc.WrapKeys
}

// Config 表示完整的配置文件结构
type Config struct {
	ProjectName string            `json:"project_name" yaml:"project_name"`
	Version     string            `json:"version,omitempty" yaml:"version,omitempty"`
	Keywords    []Keyword         `json:"keywords" yaml:"keywords"`
	Processing  *ProcessingConfig `json:"processing_config,omitempty" yaml:"processing_config,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ConfigManager 配置管理接口
type ConfigManager interface {
	LoadConfig(filePath string) (*Config, error)
	ValidateConfig(config *Config) error
	GetPairs(config *Config) []domain.Pair
	SaveConfig(config *Config, filePath string) error
	GenerateTemplate(templateType string) (*Config, error)
}

// configManager 配置管理器实现
type configManager struct {
	now func() time.Time
}

// NewConfigManager 创建新的配置管理器
func NewConfigManager() ConfigManager {
	return &configManager{now: time.Now}
}

// DefaultProcessingConfig 返回默认的处理配置
func DefaultProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{
		MaxConcurrentFiles: 1,
		OutputSuffix:       "_processed",
		ExcludePatterns:    []string{"~$*", "*.tmp"},
	}
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(filePath string) (format, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("配置文件必须是 JSON 或 YAML 格式，当前文件: %s: %w", filepath.Ext(filePath), ErrInvalidConfig)
	}
}

// LoadConfig 从文件加载配置，旧版本配置自动补齐默认值
func (cm *configManager) LoadConfig(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, fmt.Errorf("配置文件路径不能为空: %w", ErrInvalidConfig)
	}

	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("配置文件不存在: %s: %w", filePath, err)
	}

	f, err := formatOf(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	switch f {
	case formatJSON:
		err = json.Unmarshal(data, &config)
	case formatYAML:
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v: %w", err, ErrInvalidConfig)
	}

	cm.migrate(&config)

	if err := cm.ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// migrate 补齐旧版本配置缺少的字段
func (cm *configManager) migrate(config *Config) {
	if config.Version == "" {
		config.Version = CurrentVersion
	}
	if config.Processing == nil {
		config.Processing = DefaultProcessingConfig()
	}
	if config.Processing.MaxConcurrentFiles == 0 {
		config.Processing.MaxConcurrentFiles = 1
	}
	if config.Processing.OutputSuffix == "" {
		config.Processing.OutputSuffix = "_processed"
	}
}

// ValidateConfig 验证配置的有效性
func (cm *configManager) ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("配置不能为空: %w", ErrInvalidConfig)
	}

	if config.ProjectName == "" {
		return fmt.Errorf("项目名称不能为空: %w", ErrInvalidConfig)
	}

	if len(config.Keywords) == 0 {
		return fmt.Errorf("关键词列表不能为空: %w", ErrInvalidConfig)
	}

	// 包装后的关键词不能重复，否则替换顺序会产生歧义
	wrap := config.Processing.ShouldWrapKeys()
	keySet := make(map[string]bool)
	for i, keyword := range config.Keywords {
		if keyword.Key == "" {
			return fmt.Errorf("第 %d 个关键词的 key 不能为空: %w", i+1, ErrInvalidConfig)
		}
		key := keyword.Key
		if wrap {
			key = matcher.FormatKeyword(key)
		}
		if keySet[key] {
			return fmt.Errorf("关键词重复: %s: %w", keyword.Key, ErrInvalidConfig)
		}
		keySet[key] = true
	}

	if pc := config.Processing; pc != nil {
		if pc.MaxConcurrentFiles < 1 || pc.MaxConcurrentFiles > 50 {
			return fmt.Errorf("最大并发文件数必须在1-50之间: %w", ErrInvalidConfig)
		}
		for _, pattern := range pc.ExcludePatterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return fmt.Errorf("排除模式 %q 无效: %w", pattern, ErrInvalidConfig)
			}
		}
	}

	return nil
}

// GetPairs 按配置顺序返回启用的查找/替换对
func (cm *configManager) GetPairs(config *Config) []domain.Pair {
	if config == nil {
		return nil
	}

	wrap := config.Processing.ShouldWrapKeys()
	pairs := make([]domain.Pair, 0, len(config.Keywords))
	for _, keyword := range config.Keywords {
		if !keyword.IsEnabled() {
			continue
		}
		search := keyword.Key
		if wrap {
			search = matcher.FormatKeyword(search)
		}
		pairs = append(pairs, domain.Pair{Search: search, Replacement: keyword.Value})
	}

	return pairs
}

// SelectCategory 返回只包含指定类别关键词的配置副本，category 为空时返回原配置
func SelectCategory(config *Config, category string) *Config {
	if config == nil || category == "" {
		return config
	}

	selected := *config
	selected.Keywords = nil
	for _, keyword := range config.Keywords {
		if keyword.Category == category {
			selected.Keywords = append(selected.Keywords, keyword)
		}
	}
	return &selected
}
