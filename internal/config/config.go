package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerPort string `yaml:"port" validate:"required,numeric"`
	Debug      bool   `yaml:"debug"`

	// 后端（数据源）
	BackendURL     string        `yaml:"backend_url" validate:"required,url"`
	APIPrefix      string        `yaml:"api_prefix" validate:"required,startswith=/"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`

	// Polling
	PollInterval   time.Duration `yaml:"poll_interval" validate:"gt=0"`
	LegacyPosition bool          `yaml:"legacy_position"`

	// 推送流
	StreamEnabled        bool          `yaml:"stream_enabled"`
	StreamReconnectDelay time.Duration `yaml:"stream_reconnect_delay" validate:"gt=0"`

	Map    MapConfig   `yaml:"map"`
	Limits LimitConfig `yaml:"limits"`

	// 启用的渲染区域，为空表示全部
	Regions []string `yaml:"regions" validate:"omitempty,dive,oneof=events-table control-table mission-list agv-status-list agv-path agv-legacy"`
}

// MapConfig 地图投影参数
type MapConfig struct {
	RotationDeg    float64 `yaml:"rotation_deg" validate:"gte=-360,lte=360"`
	MarkerSpacing  float64 `yaml:"marker_spacing" validate:"gte=0"`
	ViewportWidth  float64 `yaml:"viewport_width" validate:"gt=0"`
	ViewportHeight float64 `yaml:"viewport_height" validate:"gt=0"`
}

// LimitConfig 各日志列表的拉取条数
type LimitConfig struct {
	Events   int `yaml:"events" validate:"min=1,max=100"`
	Control  int `yaml:"control" validate:"min=1,max=100"`
	Missions int `yaml:"missions" validate:"min=1,max=100"`
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:           getEnv("PORT", "4000"),
		Debug:                getEnvBool("DEBUG", false),
		BackendURL:           getEnv("BACKEND_URL", "http://localhost:5000"),
		APIPrefix:            getEnv("API_PREFIX", "/api/v1/dashboard"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		PollInterval:         getEnvDuration("POLL_INTERVAL", 1*time.Second),
		LegacyPosition:       getEnvBool("LEGACY_POSITION", false),
		StreamEnabled:        getEnvBool("STREAM_ENABLED", true),
		StreamReconnectDelay: getEnvDuration("STREAM_RECONNECT_DELAY", 3*time.Second),
		Map: MapConfig{
			RotationDeg:    getEnvFloat("MAP_ROTATION_DEG", 75),
			MarkerSpacing:  getEnvFloat("MAP_MARKER_SPACING", 14),
			ViewportWidth:  getEnvFloat("MAP_VIEWPORT_WIDTH", 640),
			ViewportHeight: getEnvFloat("MAP_VIEWPORT_HEIGHT", 360),
		},
		Limits: LimitConfig{
			Events:   getEnvInt("EVENTS_LIMIT", 10),
			Control:  getEnvInt("CONTROL_LIMIT", 10),
			Missions: getEnvInt("MISSION_LIMIT", 5),
		},
		Regions: getEnvList("REGIONS"),
	}

	// YAML 文件覆盖环境变量
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyFile 用 YAML 文件中出现的字段覆盖当前配置
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RegionEnabled 判断某个渲染区域是否启用
func (c *Config) RegionEnabled(name string) bool {
	if len(c.Regions) == 0 {
		return true
	}
	for _, r := range c.Regions {
		if r == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
