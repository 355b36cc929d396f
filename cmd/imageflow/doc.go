// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ImageFlow 服务端程序入口。

# 概述

cmd/imageflow 是 ImageFlow 服务的可执行入口，暴露工作流定义、
编辑与执行的 HTTP API。程序支持 YAML 配置文件加载、结构化日志
（zap）、Prometheus 指标采集以及 OpenTelemetry 链路追踪。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、CORS、RateLimiter（基于 IP）、
    APIKeyAuth（X-API-Key）
  - 执行流：SSE 与 WebSocket 两种传输，中间件包装层全部转发
    Flush/Hijack 以保持流式响应与协议升级可用
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关闭会话
    管理器 → 冲刷遥测数据
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
