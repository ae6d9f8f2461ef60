// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
//
// 进程启动时加载一次，之后以只读方式注入到各组件，不允许运行期修改。
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Image         ImageConfig         `yaml:"image" mapstructure:"image"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Driver postgres | sqlite
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	LogLevel string         `yaml:"log_level" mapstructure:"log_level"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// SQLiteConfig 本地开发用 SQLite 配置
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// Enabled 关闭后会话锁退化为进程内锁，事件改为同步归档
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig 文本模型配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	// Type openai（OpenAI 兼容接口）| ark（火山方舟）
	Type        string `yaml:"type" mapstructure:"type"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	// VisionModel 多模态调用使用的模型，为空时与 Model 相同
	VisionModel string        `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ImageConfig 图像生成配置
type ImageConfig struct {
	// Provider openai | ark | mock
	Provider       string        `yaml:"provider" mapstructure:"provider"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Model          string        `yaml:"model" mapstructure:"model"`
	Size           string        `yaml:"size" mapstructure:"size"`
	Quality        string        `yaml:"quality" mapstructure:"quality"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// SessionConfig 会话并发控制配置
type SessionConfig struct {
	LockTTL    time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
	LockPrefix string        `yaml:"lock_prefix" mapstructure:"lock_prefix"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxLen        int           `yaml:"max_len" mapstructure:"max_len"`
	BlockTimeout  time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit    int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff  BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
