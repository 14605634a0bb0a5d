package xtarget

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式
type Format string

// 支持的配置格式
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 调度拓扑的完整声明
//
// 对应配置文件的顶层结构。Config 本身只是载体，
// 校验与索引由 NewRegistry 完成。
type Config struct {
	// Endpoints 全部端点声明
	Endpoints []ModelEndpoint `koanf:"endpoints"`
	// TaskGroups 全部任务组声明
	TaskGroups []TaskGroup `koanf:"task_groups"`
	// PollingPools 全部轮询池声明
	PollingPools []PollingPool `koanf:"polling_pools"`
}

// LoadFile 从文件加载配置并构建注册表。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrLoadFailed)
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	return LoadBytes(data, format)
}

// LoadBytes 从字节数据加载配置并构建注册表。
// 需要显式指定格式，适用于 ConfigMap 或内嵌配置等场景。
func LoadBytes(data []byte, format Format) (*Registry, error) {
	cfg, err := parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return NewRegistry(cfg)
}

// parseConfig 解析原始字节为 Config
func parseConfig(data []byte, format Format) (*Config, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return &cfg, nil
}

// detectFormat 根据文件扩展名检测配置格式
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}
