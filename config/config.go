package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Console    ConsoleConfig    `yaml:"console"`
	Comparison ComparisonConfig `yaml:"comparison"`
	Backend    BackendConfig    `yaml:"backend"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// DBConfig 默认使用内存 sqlite，进程重启即重新按目录数据初始化。
type DBConfig struct {
	Driver   string `yaml:"driver"` // sqlite | mysql
	DSN      string `yaml:"dsn"`    // sqlite 文件或 :memory:
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a redis host was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type CatalogConfig struct {
	// Path 为空时使用内置目录
	Path string `yaml:"path"`
}

type ConsoleConfig struct {
	Creator       string `yaml:"creator"`
	DefaultPrompt string `yaml:"default_prompt"`
}

type ComparisonConfig struct {
	DelayMS    int    `yaml:"delay_ms"`
	Runner     string `yaml:"runner"` // simulated | openai
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

func (c ComparisonConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

func (c ComparisonConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type BackendConfig struct {
	BaseURL       string `yaml:"base_url"`
	CoreServerKey string `yaml:"core_server_key"`
	TimeoutSecond int    `yaml:"timeout_second"`
}

func (c BackendConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != "" || strings.TrimSpace(c.CoreServerKey) != ""
}

var AppConfig *Config

// InitConfig 读取 CONFIG_PATH（默认 config/config.yaml）并填充 AppConfig。
func InitConfig() error {
	path := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %v", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %v", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a configuration that runs fully in memory.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if strings.TrimSpace(c.DB.Driver) == "" {
		c.DB.Driver = "sqlite"
	}
	if strings.EqualFold(c.DB.Driver, "sqlite") && strings.TrimSpace(c.DB.DSN) == "" {
		c.DB.DSN = ":memory:"
	}
	if strings.TrimSpace(c.Log.Path) == "" {
		c.Log.Path = "logs/app.log"
	}
	if strings.TrimSpace(c.Console.Creator) == "" {
		c.Console.Creator = "current_user"
	}
	if strings.TrimSpace(c.Console.DefaultPrompt) == "" {
		c.Console.DefaultPrompt = "怎么重置我的密码？"
	}
	if c.Comparison.DelayMS <= 0 {
		c.Comparison.DelayMS = 1500
	}
	if strings.TrimSpace(c.Comparison.Runner) == "" {
		c.Comparison.Runner = "simulated"
	}
	if c.Comparison.TTLSeconds <= 0 {
		c.Comparison.TTLSeconds = 3600
	}
	if c.Backend.TimeoutSecond <= 0 {
		c.Backend.TimeoutSecond = 10
	}
}
