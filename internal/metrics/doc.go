// 版权所有 2025 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
HTTP、GenAI、工作流与会话四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。
Collector 同时实现 genai、session 与 api/handlers 包各自声明的
窄接口，按需注入，不形成包依赖环。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - GenAI 指标：模型请求总数、请求耗时、Token 用量
    （prompt/completion），按 model/operation 分组。
  - 工作流指标：定义请求总数与耗时、编译步数分布、执行总数、
    执行耗时、执行步数分布、产出图片总数，按 status 分组。
  - 会话指标：当前存活会话数 Gauge。
*/
package metrics
