// =============================================================================
// 📦 DuQA 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("DUQA").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/duqa-project/duqa/crawler"
	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/server"
	"github.com/duqa-project/duqa/pipeline"
	"github.com/duqa-project/duqa/preprocess"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 DuQA 问答服务的完整配置结构
type Config struct {
	// Server 问答服务 HTTP 配置
	Server server.Config `yaml:"server" env:"SERVER"`

	// Metrics 指标服务配置（独立端口）
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Crawler 网页抓取配置
	Crawler crawler.Config `yaml:"crawler" env:"CRAWLER"`

	// MRC 阅读理解模型服务配置
	MRC pipeline.ModelClientConfig `yaml:"mrc" env:"MRC"`

	// Rerank 重排模型服务配置
	Rerank pipeline.ModelClientConfig `yaml:"rerank" env:"RERANK"`

	// Fusion 融合配置
	Fusion FusionConfig `yaml:"fusion" env:"FUSION"`

	// Redis 页面缓存配置
	Redis cache.Config `yaml:"redis" env:"REDIS"`

	// Segment 分词配置
	Segment SegmentConfig `yaml:"segment" env:"SEGMENT"`

	// RateLimit 请求限流配置
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// CORS 跨域配置
	CORS CORSConfig `yaml:"cors" env:"CORS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Preprocess 离线语料压缩配置
	Preprocess preprocess.RunnerConfig `yaml:"preprocess" env:"PREPROCESS"`
}

// MetricsConfig 指标服务配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// FusionConfig 融合配置
type FusionConfig struct {
	// 来源排名先验，留空使用内置先验
	Priors []float64 `yaml:"priors" env:"PRIORS"`
}

// SegmentConfig 分词配置
type SegmentConfig struct {
	// 引擎: jieba, rune
	Engine string `yaml:"engine" env:"ENGINE"`
	// jieba 词典文件路径，留空使用内置词典
	DictPaths []string `yaml:"dict_paths" env:"DICT_PATHS"`
}

// RateLimitConfig 按客户端的请求限流配置
type RateLimitConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 每秒请求数
	RPS float64 `yaml:"rps" env:"RPS"`
	// 突发额度
	Burst int `yaml:"burst" env:"BURST"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	// 允许的来源，"*" 表示放行所有来源
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DUQA",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段。
// 组件包的配置结构只带 yaml tag，环境变量键在没有 env tag 时由
// yaml tag 大写推导（segment 取逗号前的主名）。
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "-" {
			continue
		}
		if envTag == "" {
			yamlTag, _, _ := strings.Cut(fieldType.Tag.Get("yaml"), ",")
			if yamlTag == "" || yamlTag == "-" {
				continue
			}
			envTag = strings.ToUpper(yamlTag)
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串与浮点切片
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch field.Type().Elem().Kind() {
		case reflect.String:
			field.Set(reflect.ValueOf(parts))
		case reflect.Float64:
			floats := make([]float64, len(parts))
			for i, p := range parts {
				f, err := strconv.ParseFloat(p, 64)
				if err != nil {
					return err
				}
				floats[i] = f
			}
			field.Set(reflect.ValueOf(floats))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server addr must not be empty")
	}
	if c.MRC.Endpoint == "" {
		errs = append(errs, "mrc endpoint must not be empty")
	}
	if c.Rerank.Endpoint == "" {
		errs = append(errs, "rerank endpoint must not be empty")
	}
	if c.Crawler.NumResults <= 0 {
		errs = append(errs, "crawler num_results must be positive")
	}
	for i, p := range c.Fusion.Priors {
		if p <= 0 {
			errs = append(errs, fmt.Sprintf("fusion prior %d must be positive", i))
			break
		}
	}
	switch c.Segment.Engine {
	case "jieba", "rune":
	default:
		errs = append(errs, fmt.Sprintf("unknown segment engine %q", c.Segment.Engine))
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		errs = append(errs, "rate_limit rps must be positive when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
