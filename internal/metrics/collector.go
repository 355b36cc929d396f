// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// GenAI 指标
	genaiRequestsTotal   *prometheus.CounterVec
	genaiRequestDuration *prometheus.HistogramVec
	genaiTokensUsed      *prometheus.CounterVec

	// 工作流指标
	workflowCompilesTotal    *prometheus.CounterVec
	workflowCompileDuration  prometheus.Histogram
	workflowCompileSteps     prometheus.Histogram
	workflowExecutionsTotal  *prometheus.CounterVec
	workflowExecutionSteps   prometheus.Histogram
	workflowImagesProduced   prometheus.Counter
	workflowExecutionSeconds prometheus.Histogram

	// 会话指标
	activeSessions prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// GenAI 指标
	c.genaiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "genai_requests_total",
			Help:      "Total number of GenAI model requests",
		},
		[]string{"model", "operation", "status"},
	)

	c.genaiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "genai_request_duration_seconds",
			Help:      "GenAI model request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "operation"},
	)

	c.genaiTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "genai_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"model", "operation", "type"}, // type: prompt, completion
	)

	// 工作流指标
	c.workflowCompilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_compiles_total",
			Help:      "Total number of workflow definition requests",
		},
		[]string{"status"},
	)

	c.workflowCompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_compile_duration_seconds",
			Help:      "Workflow compilation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	c.workflowCompileSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_compile_steps",
			Help:      "Number of steps per compiled workflow",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
		},
	)

	c.workflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"status"},
	)

	c.workflowExecutionSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_execution_duration_seconds",
			Help:      "Workflow execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	c.workflowExecutionSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_execution_steps",
			Help:      "Number of steps per executed workflow",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
		},
	)

	c.workflowImagesProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_images_produced_total",
			Help:      "Total number of images produced by workflow executions",
		},
	)

	// 会话指标
	c.activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🤖 GenAI 指标记录
// =============================================================================

// RecordGenAIRequest 记录 GenAI 模型请求
func (c *Collector) RecordGenAIRequest(model, operation, status string, duration time.Duration) {
	c.genaiRequestsTotal.WithLabelValues(model, operation, status).Inc()
	c.genaiRequestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

// RecordGenAITokens 记录 Token 用量
func (c *Collector) RecordGenAITokens(model, operation string, promptTokens, completionTokens int) {
	c.genaiTokensUsed.WithLabelValues(model, operation, "prompt").Add(float64(promptTokens))
	c.genaiTokensUsed.WithLabelValues(model, operation, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 🔁 工作流指标记录
// =============================================================================

// RecordCompile 记录工作流定义请求。步数仅在成功时观测
func (c *Collector) RecordCompile(status string, steps int, duration time.Duration) {
	c.workflowCompilesTotal.WithLabelValues(status).Inc()
	c.workflowCompileDuration.Observe(duration.Seconds())
	if status == "success" {
		c.workflowCompileSteps.Observe(float64(steps))
	}
}

// RecordExecution 记录工作流执行
func (c *Collector) RecordExecution(status string, steps, imagesProduced int, duration time.Duration) {
	c.workflowExecutionsTotal.WithLabelValues(status).Inc()
	c.workflowExecutionSeconds.Observe(duration.Seconds())
	c.workflowExecutionSteps.Observe(float64(steps))
	c.workflowImagesProduced.Add(float64(imagesProduced))
}

// =============================================================================
// 💬 会话指标记录
// =============================================================================

// SetActiveSessions 记录当前会话数
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
