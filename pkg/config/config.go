package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	Upstream struct {
		BaseURL       string        `yaml:"base_url"`
		StatsEndpoint string        `yaml:"stats_endpoint"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerMinute int           `yaml:"rate_per_minute"` // 上游请求限速
	} `yaml:"upstream"`

	Monitor struct {
		CheckInterval      time.Duration `yaml:"check_interval"`       // 价格检查周期
		StaleAfter         time.Duration `yaml:"stale_after"`          // 快照过期告警阈值
		MaxConcurrentSends int           `yaml:"max_concurrent_sends"` // 通知并发上限
	} `yaml:"monitor"`

	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`

	Storage struct {
		Driver  string `yaml:"driver"` // file 或 postgres
		DataDir string `yaml:"data_dir"`

		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	NATS struct {
		URL      string `yaml:"url"` // 为空时不启用消息发布
		ClientID string `yaml:"client_id"`
	} `yaml:"nats"`

	API struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	Reports struct {
		Enabled bool `yaml:"enabled"`
		Hour    int  `yaml:"hour"` // 每日报告发送整点（本地时区）
	} `yaml:"reports"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析YAML
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	overrideFromEnv(&config)

	// 填充默认值
	applyDefaults(&config)

	return &config, nil
}

// applyDefaults 填充缺省配置
func applyDefaults(config *Config) {
	if config.Upstream.Timeout == 0 {
		config.Upstream.Timeout = 30 * time.Second
	}
	if config.Upstream.RatePerMinute == 0 {
		config.Upstream.RatePerMinute = 20
	}
	if config.Monitor.CheckInterval == 0 {
		config.Monitor.CheckInterval = 3 * time.Minute
	}
	if config.Monitor.StaleAfter == 0 {
		// 默认2个检查周期没有新数据就算过期
		config.Monitor.StaleAfter = 2 * config.Monitor.CheckInterval
	}
	if config.Monitor.MaxConcurrentSends == 0 {
		config.Monitor.MaxConcurrentSends = 5
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "file"
	}
	if config.Storage.DataDir == "" {
		config.Storage.DataDir = "data"
	}
	if config.API.Port == "" {
		config.API.Port = "8080"
	}
	if config.API.ReadTimeout == 0 {
		config.API.ReadTimeout = 10 * time.Second
	}
	if config.API.WriteTimeout == 0 {
		config.API.WriteTimeout = 10 * time.Second
	}
	if config.Reports.Hour == 0 {
		config.Reports.Hour = 9
	}
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	// 应用配置
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// 上游数据源配置
	if env := os.Getenv("UPSTREAM_BASE_URL"); env != "" {
		config.Upstream.BaseURL = env
	}
	if env := os.Getenv("UPSTREAM_STATS_ENDPOINT"); env != "" {
		config.Upstream.StatsEndpoint = env
	}

	// Telegram配置
	if env := os.Getenv("BOT_TOKEN"); env != "" {
		config.Telegram.Token = env
	}

	// 存储配置
	if env := os.Getenv("STORAGE_DRIVER"); env != "" {
		config.Storage.Driver = env
	}
	if env := os.Getenv("DATA_DIR"); env != "" {
		config.Storage.DataDir = env
	}
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Storage.Postgres.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 {
			config.Storage.Postgres.Port = port
		}
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Storage.Postgres.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Storage.Postgres.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Storage.Postgres.DBName = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
	}
	if env := os.Getenv("NATS_CLIENT_ID"); env != "" {
		config.NATS.ClientID = env
	}

	// API配置
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
