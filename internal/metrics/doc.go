/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
问答流水线、抓取与缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 主要能力

  - HTTP 指标：请求总数与请求耗时，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx。
  - 流水线指标：crawl/mrc/rerank/fuse 各阶段的执行计数与耗时，
    以及进入融合的候选数分布。
  - 抓取指标：页面下载按结果计数。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。

所有记录方法均容忍 nil 接收者，未启用指标的组件可以传入 nil。
*/
package metrics
