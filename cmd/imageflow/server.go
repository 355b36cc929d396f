package main

// ==============================================
// 🌐 ImageFlow 服务器装配
// ==============================================
// 组装全部组件：GenAI 客户端、会话管理器、工作流编译器与
// 执行器、HTTP 处理器、中间件链、指标采集与优雅关闭。

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/genai"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/server"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/workflow"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// skipAuthPaths 不需要 API Key 的路径
var skipAuthPaths = []string{"/health", "/ready", "/version", "/metrics"}

// Server 聚合 ImageFlow 的全部运行时组件
type Server struct {
	config *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	collector *metrics.Collector
	sessions  *session.Manager

	sessionHandler  *handlers.SessionHandler
	workflowHandler *handlers.WorkflowHandler
	executeHandler  *handlers.ExecuteHandler
	wsHandler       *handlers.WSExecuteHandler
	examplesHandler *handlers.ExamplesHandler
	healthHandler   *handlers.HealthHandler

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器实例。otel 可以为 nil（遥测未启用时）。
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		otel:   otel,
	}
}

// Start 初始化组件并启动 HTTP 与指标监听
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("imageflow", s.logger)

	s.initComponents()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	if s.config.Metrics.Enabled {
		if err := s.startMetricsServer(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	s.logger.Info("imageflow server started",
		zap.String("addr", s.config.Server.Addr()),
		zap.Bool("metrics", s.config.Metrics.Enabled),
		zap.Bool("rate_limit", s.config.RateLimit.Enabled),
		zap.Bool("auth", s.config.Server.APIKey != ""),
	)
	return nil
}

// ==============================================
// 🔧 组件装配
// ==============================================

// initComponents 构建 GenAI 客户端、会话管理器与全部处理器
func (s *Server) initComponents() {
	client := genai.NewClient(genai.Config{
		APIKey:        s.config.GenAI.APIKey,
		BaseURL:       s.config.GenAI.BaseURL,
		Project:       s.config.GenAI.Project,
		Location:      s.config.GenAI.Location,
		UseVertex:     s.config.GenAI.UseVertex,
		LanguageModel: s.config.GenAI.LanguageModel,
		ImageModel:    s.config.GenAI.ImageModel,
		Timeout:       s.config.GenAI.Timeout,
	}, s.logger)
	client.SetMetricsRecorder(s.collector)

	s.sessions = session.NewManager(session.Config{
		TTL:           s.config.Session.TTL,
		SweepInterval: s.config.Session.SweepInterval,
	}, s.logger)
	s.sessions.SetMetricsRecorder(s.collector)

	compiler := workflow.NewCompiler(client, workflow.CompilerConfig{
		Model:           s.config.GenAI.LanguageModel,
		MaxOutputTokens: s.config.GenAI.DefineMaxTokens,
		MaxSteps:        s.config.GenAI.MaxSteps,
	}, s.logger)

	executor := workflow.NewExecutor(client, workflow.ExecutorConfig{
		Model:           s.config.GenAI.ImageModel,
		MaxOutputTokens: s.config.GenAI.ExecuteMaxTokens,
	}, s.logger)

	s.sessionHandler = handlers.NewSessionHandler(s.sessions, s.logger)

	s.workflowHandler = handlers.NewWorkflowHandler(s.sessions, compiler, s.config.GenAI.MaxSteps, s.logger)
	s.workflowHandler.SetMetricsRecorder(s.collector)

	s.executeHandler = handlers.NewExecuteHandler(s.sessions, executor, s.logger)
	s.executeHandler.SetMetricsRecorder(s.collector)

	s.wsHandler = handlers.NewWSExecuteHandler(s.sessions, executor, s.config.Server.CORSOrigins, s.logger)

	s.examplesHandler = handlers.NewExamplesHandler(s.logger)

	// 就绪检查不注册上游探测：唯一的外部依赖是按量计费的
	// GenAI API，周期性探活会白白消耗配额。
	s.healthHandler = handlers.NewHealthHandler(s.logger)
}

// ==============================================
// 🌐 HTTP 服务
// ==============================================

// startHTTPServer 注册路由、组装中间件链并启动主监听
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", s.sessionHandler.HandleCreate)
	mux.HandleFunc("GET /v1/sessions/{id}/workflow", s.sessionHandler.HandleGetWorkflow)
	mux.HandleFunc("POST /v1/workflows/define", s.workflowHandler.HandleDefine)
	mux.HandleFunc("POST /v1/workflows/update", s.workflowHandler.HandleUpdate)
	mux.HandleFunc("POST /v1/workflows/execute", s.executeHandler.HandleExecute)
	mux.HandleFunc("GET /v1/workflows/execute/ws", s.wsHandler.HandleExecuteWS)
	mux.HandleFunc("GET /v1/examples", s.examplesHandler.HandleList)
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 中间件链，最外层在前
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
	}
	if s.config.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares, CORS(s.config.Server.CORSOrigins))
	if s.config.RateLimit.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.rateLimiterCancel = cancel
		middlewares = append(middlewares,
			RateLimiter(ctx, s.config.RateLimit.RPS, s.config.RateLimit.Burst, s.logger))
	}
	middlewares = append(middlewares, APIKeyAuth(s.config.Server.APIKey, skipAuthPaths, s.logger))

	handler := Chain(mux, middlewares...)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            s.config.Server.Addr(),
		ReadTimeout:     s.config.Server.ReadTimeout,
		WriteTimeout:    s.config.Server.WriteTimeout,
		IdleTimeout:     s.config.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.config.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

// startMetricsServer 在独立端口暴露 Prometheus 指标
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	cfg := server.DefaultConfig()
	cfg.Addr = s.config.Metrics.Addr()

	s.metricsManager = server.NewManager(mux, cfg, s.logger)
	return s.metricsManager.Start()
}

// ==============================================
// 🛑 优雅关闭
// ==============================================

// WaitForShutdown 阻塞等待退出信号，然后按序关闭全部组件
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	s.Shutdown()
}

// Shutdown 按依赖顺序关闭：限流清理 → HTTP → 指标 → 会话 → 遥测
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Warn("http server shutdown", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}

	s.logger.Info("imageflow server stopped")
}
