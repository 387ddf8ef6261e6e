/*
Package main 提供 DuQA 服务端程序入口。

# 概述

cmd/duqa 是开放域问答服务的可执行入口，提供 HTTP API 服务、
离线语料压缩、健康检查和版本查询等子命令。程序支持 YAML 配置
文件加载、结构化日志（zap）与 Prometheus 指标采集。

# 核心类型

  - Server     — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、preprocess（语料压缩）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    CORS、MetricsMiddleware、RateLimiter（基于 IP）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 释放抓取与缓存资源
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
