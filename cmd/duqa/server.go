package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duqa-project/duqa/api/handlers"
	"github.com/duqa-project/duqa/config"
	"github.com/duqa-project/duqa/crawler"
	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/metrics"
	"github.com/duqa-project/duqa/internal/server"
	"github.com/duqa-project/duqa/pipeline"
	"github.com/duqa-project/duqa/segment"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 DuQA 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 流水线组件
	segmenter    segment.Segmenter
	cacheManager *cache.Manager
	crawler      *crawler.SearchCrawler
	engine       *pipeline.Engine

	// Handlers
	healthHandler *handlers.HealthHandler
	qaHandler     *handlers.QAHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector(s.cfg.Metrics.Namespace, s.logger)

	// 2. 初始化流水线
	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if s.cfg.Metrics.Enabled {
		if err := s.startMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.cfg.Server.Addr),
		zap.String("metrics_addr", s.cfg.Metrics.Addr),
		zap.Bool("metrics_enabled", s.cfg.Metrics.Enabled),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initPipeline 组装抓取、阅读理解、重排与融合组件
func (s *Server) initPipeline() error {
	// 分词器
	switch s.cfg.Segment.Engine {
	case "jieba":
		s.segmenter = segment.NewJiebaSegmenter(s.logger, s.cfg.Segment.DictPaths...)
	default:
		s.segmenter = segment.NewRuneSegmenter()
	}

	// 页面与问答结果缓存，Redis 不可用时降级为直连抓取
	manager, err := cache.NewManager(s.cfg.Redis, s.logger)
	if err != nil {
		s.logger.Warn("Redis not available, page cache disabled", zap.Error(err))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := manager.Ping(ctx); err != nil {
			s.logger.Warn("Redis not reachable, page cache disabled", zap.Error(err))
			manager.Close()
		} else {
			s.cacheManager = manager
		}
	}

	// 抓取器
	s.crawler = crawler.NewSearchCrawler(s.cfg.Crawler, s.segmenter, s.cacheManager, s.metricsCollector, s.logger)

	// 模型客户端与融合器
	mrcClient := pipeline.NewHTTPMRCClient(s.cfg.MRC, s.logger)
	rerankClient := pipeline.NewHTTPRerankClient(s.cfg.Rerank, s.logger)
	fuser := pipeline.NewFuser(s.cfg.Fusion.Priors, s.logger)

	s.engine = pipeline.NewEngine(s.crawler, mrcClient, rerankClient, fuser, s.segmenter, s.logger,
		pipeline.WithAnswerCache(s.cacheManager),
		pipeline.WithMetrics(s.metricsCollector))

	s.logger.Info("Pipeline initialized",
		zap.String("segment_engine", s.cfg.Segment.Engine),
		zap.Bool("cache", s.cacheManager != nil),
		zap.String("mrc_endpoint", s.cfg.MRC.Endpoint),
		zap.String("rerank_endpoint", s.cfg.Rerank.Endpoint),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cacheManager.Ping))
	}

	s.qaHandler = handlers.NewQAHandler(s.engine, s.metricsCollector, s.logger)
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 问答 API 路由
	mux.HandleFunc("/api/chat", s.qaHandler.HandleChat)
	mux.HandleFunc("/api/doc", s.qaHandler.HandleDoc)
	mux.HandleFunc("/api/doc_qa", s.qaHandler.HandleDocQA)

	// 构建中间件链
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.CORS.AllowedOrigins),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.RateLimit.Enabled {
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	s.httpManager = server.NewManager(handler, s.cfg.Server, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.String("addr", s.cfg.Server.Addr))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            s.cfg.Metrics.Addr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.String("addr", s.cfg.Metrics.Addr))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 释放流水线资源
	if s.crawler != nil {
		s.crawler.Close()
	}
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache shutdown error", zap.Error(err))
		}
	}
	if j, ok := s.segmenter.(*segment.JiebaSegmenter); ok {
		j.Close()
	}

	s.logger.Info("Graceful shutdown completed")
}
