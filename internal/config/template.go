package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveConfig 保存配置到文件，格式由扩展名决定
func (cm *configManager) SaveConfig(config *Config, filePath string) error {
	if config == nil {
		return fmt.Errorf("配置不能为空: %w", ErrInvalidConfig)
	}

	f, err := formatOf(filePath)
	if err != nil {
		return err
	}

	now := cm.now()
	if config.CreatedAt == nil {
		config.CreatedAt = &now
	}
	config.UpdatedAt = &now

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	if config.Processing != nil && config.Processing.BackupOriginal {
		if err := cm.createBackup(filePath); err != nil {
			log.Printf("创建备份失败: %v", err)
		}
	}

	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(config, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// createBackup 覆盖前备份已有的配置文件
func (cm *configManager) createBackup(filePath string) error {
	src, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取原文件失败: %w", err)
	}

	ext := filepath.Ext(filePath)
	name := strings.TrimSuffix(filePath, ext)
	backupPath := fmt.Sprintf("%s_backup_%s%s", name, cm.now().Format("20060102_150405"), ext)

	if err := os.WriteFile(backupPath, src, 0644); err != nil {
		return fmt.Errorf("写入备份文件失败: %w", err)
	}

	log.Printf("配置备份已创建: %s", backupPath)
	return nil
}

// GenerateTemplate 生成配置模板，templateType 为 basic 或 advanced
func (cm *configManager) GenerateTemplate(templateType string) (*Config, error) {
	switch templateType {
	case "", "basic":
		return cm.basicTemplate(), nil
	case "advanced":
		config := cm.basicTemplate()
		config.Processing.EnableDetailedLogging = true
		config.Processing.IncludeHeadersFooters = true
		config.Processing.TrackReplacements = true
		config.Processing.MaxConcurrentFiles = 3
		config.Processing.BackupOriginal = true
		return config, nil
	default:
		return nil, fmt.Errorf("未知的模板类型: %s: %w", templateType, ErrInvalidConfig)
	}
}

func (cm *configManager) basicTemplate() *Config {
	now := cm.now()
	return &Config{
		ProjectName: "示例项目",
		Version:     CurrentVersion,
		CreatedAt:   &now,
		Keywords: []Keyword{
			{Key: "产品名称", Value: "示例产品", Category: "基础信息"},
			{Key: "公司名称", Value: "示例公司", Category: "基础信息"},
			{Key: "版本号", Value: "v1.0", Category: "版本信息"},
		},
		Processing: DefaultProcessingConfig(),
	}
}
