package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cursorworld/world"
)

// Config 服务端配置（YAML），命令行参数可覆盖部分字段
type Config struct {
	Addr         string       `yaml:"addr"`
	TickRateHz   int          `yaml:"tick_rate_hz"`
	LevelsPath   string       `yaml:"levels"` // 为空时使用内置关卡
	DefaultLevel int          `yaml:"default_level"`
	SendQueue    int          `yaml:"send_queue"` // 每个连接的发送队列长度
	Limits       world.Limits `yaml:"limits"`
	Log          LogConfig    `yaml:"log"`
}

// LogConfig 日志输出与滚动策略
type LogConfig struct {
	File       string `yaml:"file"` // 为空时输出到标准输出
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig 默认配置：10 TPS，日志写入 app.log
func DefaultConfig() Config {
	return Config{
		Addr:       ":8080",
		TickRateHz: 10,
		SendQueue:  64,
		Limits:     world.DefaultLimits(),
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig 读取配置文件；path 为空时返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Normalize 为缺省字段补默认值
func (c *Config) Normalize() {
	def := DefaultConfig()
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = def.TickRateHz
	}
	if c.SendQueue <= 0 {
		c.SendQueue = def.SendQueue
	}
	if c.Limits.MaxClicks <= 0 {
		c.Limits.MaxClicks = def.Limits.MaxClicks
	}
	if c.Limits.MaxLines <= 0 {
		c.Limits.MaxLines = def.Limits.MaxLines
	}
	if c.Limits.LineOccupancyLimit <= 0 {
		c.Limits.LineOccupancyLimit = def.Limits.LineOccupancyLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate 校验取值范围
func (c Config) Validate() error {
	if c.TickRateHz > 60 {
		return fmt.Errorf("tick_rate_hz %d exceeds 60", c.TickRateHz)
	}
	if c.Limits.MaxClicks > world.DefaultMaxClicks {
		return fmt.Errorf("limits.max_clicks %d exceeds %d", c.Limits.MaxClicks, world.DefaultMaxClicks)
	}
	if c.Limits.MaxLines > world.DefaultMaxLines {
		return fmt.Errorf("limits.max_lines %d exceeds %d", c.Limits.MaxLines, world.DefaultMaxLines)
	}
	if c.DefaultLevel < 0 {
		return fmt.Errorf("default_level %d is negative", c.DefaultLevel)
	}
	return nil
}

// TickInterval 每 Tick 间隔
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}
