package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/eddielth/z2mgen/logger"
)

// EnvPrefix 环境变量前缀，例如 Z2MGEN_MQTT_BROKER
const EnvPrefix = "Z2MGEN"

// Config 表示应用程序的配置
type Config struct {
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// MQTTConfig 表示MQTT连接的配置
type MQTTConfig struct {
	Broker    string `mapstructure:"broker"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Namespace string `mapstructure:"namespace"`
	QoS       byte   `mapstructure:"qos"`
}

// GeneratorConfig controls the generate command.
type GeneratorConfig struct {
	SchemaFile   string        `mapstructure:"schema_file"`
	Output       string        `mapstructure:"output"`
	Package      string        `mapstructure:"package"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// 可选的设备描述转换脚本
	ScriptPath string `mapstructure:"script_path"`
	ScriptCode string `mapstructure:"script_code"`
}

// RuntimeConfig tunes the bindings used by the monitor command.
type RuntimeConfig struct {
	GetTimeout time.Duration `mapstructure:"get_timeout"`
}

// LoggerConfig 表示日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// MetricsConfig 为空时不启动 /metrics
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// StorageConfig 表示存储配置
type StorageConfig struct {
	File     FileStorageConfig     `mapstructure:"file"`
	Database DatabaseStorageConfig `mapstructure:"database"`
	Redis    RedisStorageConfig    `mapstructure:"redis"`
	Influx   InfluxStorageConfig   `mapstructure:"influx"`
}

// FileStorageConfig 表示文件存储配置
type FileStorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DatabaseStorageConfig 表示数据库存储配置
type DatabaseStorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"` // mysql, postgresql or sqlite
	DSN     string `mapstructure:"dsn"`
}

// RedisStorageConfig keeps the last state of every device in Redis.
type RedisStorageConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// InfluxStorageConfig writes numeric and boolean fields as points.
type InfluxStorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// ConfigChangeCallback 是配置文件变更时的回调函数类型
type ConfigChangeCallback func(cfg *Config) error

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.namespace", "zigbee2mqtt")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("generator.schema_file", "")
	v.SetDefault("generator.output", "./devices/devices_gen.go")
	v.SetDefault("generator.package", "devices")
	v.SetDefault("generator.fetch_timeout", 5*time.Second)
	v.SetDefault("generator.script_path", "")
	v.SetDefault("generator.script_code", "")

	v.SetDefault("runtime.get_timeout", 2*time.Second)

	v.SetDefault("storage.file.enabled", false)
	v.SetDefault("storage.file.path", "./data")
	v.SetDefault("storage.database.enabled", false)
	v.SetDefault("storage.database.type", "sqlite")
	v.SetDefault("storage.database.dsn", "./data/state.db")
	v.SetDefault("storage.redis.enabled", false)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.ttl", 24*time.Hour)
	v.SetDefault("storage.influx.enabled", false)
	v.SetDefault("storage.influx.url", "http://localhost:8086")
	v.SetDefault("storage.influx.token", "")
	v.SetDefault("storage.influx.org", "")
	v.SetDefault("storage.influx.bucket", "zigbee")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file_path", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.console", true)

	v.SetDefault("metrics.listen", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig 从指定路径加载配置文件。路径为空时只使用默认值和环境变量。
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Storage.Database.Enabled {
		switch c.Storage.Database.Type {
		case "mysql", "postgresql", "sqlite":
		default:
			return fmt.Errorf("unsupported storage.database.type: %s", c.Storage.Database.Type)
		}
	}
	if c.Generator.ScriptCode != "" && c.Generator.ScriptPath != "" {
		return fmt.Errorf("generator.script_code and generator.script_path are mutually exclusive")
	}
	return nil
}

// WatchConfig 监听配置文件变化并调用回调函数
func WatchConfig(configPath string, callback ConfigChangeCallback) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	v := newViper()
	v.SetConfigFile(absPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", absPath, err)
	}

	// 防抖动处理，避免短时间内多次触发
	var (
		mu             sync.Mutex
		lastChangeTime time.Time
	)
	const debounceInterval = 2 * time.Second

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		mu.Lock()
		now := time.Now()
		if now.Sub(lastChangeTime) < debounceInterval {
			mu.Unlock()
			return
		}
		lastChangeTime = now
		mu.Unlock()

		logger.Info("检测到配置文件变更: %s", e.Name)

		newConfig, err := decode(v)
		if err != nil {
			logger.Error("解析更新后的配置失败: %v", err)
			return
		}
		if err := callback(newConfig); err != nil {
			logger.Error("应用新配置失败: %v", err)
			return
		}
		logger.Info("配置已成功更新并应用")
	})
	v.WatchConfig()

	return nil
}
