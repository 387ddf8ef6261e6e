// =============================================================================
// 📦 DuQA 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/duqa-project/duqa/crawler"
	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/server"
	"github.com/duqa-project/duqa/pipeline"
	"github.com/duqa-project/duqa/preprocess"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     server.DefaultConfig(),
		Metrics:    DefaultMetricsConfig(),
		Crawler:    crawler.DefaultConfig(),
		MRC:        pipeline.DefaultModelClientConfig("http://127.0.0.1:8501/predict"),
		Rerank:     pipeline.DefaultModelClientConfig("http://127.0.0.1:8502/predict"),
		Fusion:     DefaultFusionConfig(),
		Redis:      cache.DefaultConfig(),
		Segment:    DefaultSegmentConfig(),
		RateLimit:  DefaultRateLimitConfig(),
		CORS:       DefaultCORSConfig(),
		Log:        DefaultLogConfig(),
		Preprocess: preprocess.DefaultRunnerConfig(),
	}
}

// DefaultMetricsConfig 返回默认指标服务配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Addr:      ":9091",
		Namespace: "duqa",
	}
}

// DefaultFusionConfig 返回默认融合配置。
// 先验留空表示使用 pipeline 内置的来源排名先验。
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{}
}

// DefaultSegmentConfig 返回默认分词配置
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		Engine: "jieba",
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: true,
		RPS:     20,
		Burst:   40,
	}
}

// DefaultCORSConfig 返回默认跨域配置。
// 原服务对所有来源开放，保持同样的默认行为。
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}
