// Package config 提供旁路助手的YAML配置装载与默认值
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PluginConfig 单个插件的配置（对外导出）
type PluginConfig struct {
	Name        string            `yaml:"name"`
	Params      map[string]string `yaml:"params"`
	RefreshCron string            `yaml:"refresh_cron"`
}

// SidecarConfig 旁路助手配置（对外导出）
type SidecarConfig struct {
	Sidecar struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Server struct {
			Host string `yaml:"host"`
			Port int    `yaml:"port"`
			Mode string `yaml:"mode"`
		} `yaml:"server"`
		Daemon struct {
			BaseURL      string        `yaml:"base_url"`
			Timeout      time.Duration `yaml:"timeout"`
			PingInterval time.Duration `yaml:"ping_interval"`
		} `yaml:"daemon"`
		Cache struct {
			Enabled       bool          `yaml:"enabled"`
			DefaultTTL    time.Duration `yaml:"default_ttl"`
			CleanInterval time.Duration `yaml:"clean_interval"`
		} `yaml:"cache"`
		Execution struct {
			Mode               string        `yaml:"mode"`
			MaxContexts        int           `yaml:"max_contexts"`
			ChannelCapacity    int           `yaml:"channel_capacity"`
			DefaultTaskTimeout time.Duration `yaml:"default_task_timeout"`
		} `yaml:"execution"`
		Plugins []PluginConfig `yaml:"plugins"`
	} `yaml:"sidecar"`
}

// Load 从文件装载配置（对外导出）
// 文件不存在时返回全默认配置，不报错
func Load(path string) (*SidecarConfig, error) {
	cfg := &SidecarConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ServerAddr 拼装HTTP服务监听地址
func (c *SidecarConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Sidecar.Server.Host, c.Sidecar.Server.Port)
}

// GetDaemonBaseURL 获取守护进程地址
func (c *SidecarConfig) GetDaemonBaseURL() string {
	return c.Sidecar.Daemon.BaseURL
}

// GetExecutionMode 获取任务执行模式
func (c *SidecarConfig) GetExecutionMode() string {
	return c.Sidecar.Execution.Mode
}

// ApplyDefaults 应用默认值
func (c *SidecarConfig) ApplyDefaults() {
	// General默认值
	if c.Sidecar.General.InstanceName == "" {
		c.Sidecar.General.InstanceName = "searchd-sidecar"
	}
	if c.Sidecar.General.LogLevel == "" {
		c.Sidecar.General.LogLevel = "info"
	}
	if c.Sidecar.General.Env == "" {
		c.Sidecar.General.Env = "dev"
	}

	// Server默认值
	if c.Sidecar.Server.Host == "" {
		c.Sidecar.Server.Host = "127.0.0.1"
	}
	if c.Sidecar.Server.Port <= 0 {
		c.Sidecar.Server.Port = 8312
	}
	if c.Sidecar.Server.Mode == "" {
		c.Sidecar.Server.Mode = "release"
	}

	// Daemon默认值
	if c.Sidecar.Daemon.BaseURL == "" {
		c.Sidecar.Daemon.BaseURL = "http://127.0.0.1:9308"
	}
	if c.Sidecar.Daemon.Timeout <= 0 {
		c.Sidecar.Daemon.Timeout = 30 * time.Second
	}
	if c.Sidecar.Daemon.PingInterval <= 0 {
		c.Sidecar.Daemon.PingInterval = 30 * time.Second
	}

	// Cache默认值
	if c.Sidecar.Cache.DefaultTTL <= 0 {
		c.Sidecar.Cache.DefaultTTL = time.Minute
	}
	if c.Sidecar.Cache.CleanInterval <= 0 {
		c.Sidecar.Cache.CleanInterval = 30 * time.Second
	}

	// Execution默认值
	if c.Sidecar.Execution.Mode == "" {
		c.Sidecar.Execution.Mode = "cooperative"
	}
	if c.Sidecar.Execution.MaxContexts <= 0 {
		c.Sidecar.Execution.MaxContexts = 1024
	}
	if c.Sidecar.Execution.ChannelCapacity <= 0 {
		c.Sidecar.Execution.ChannelCapacity = 100
	}
	if c.Sidecar.Execution.DefaultTaskTimeout <= 0 {
		c.Sidecar.Execution.DefaultTaskTimeout = 30 * time.Second
	}
}
