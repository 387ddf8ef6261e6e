// Package config 提供 DuQA 问答服务的配置管理功能。
//
// 汇总各组件（服务器、抓取、模型客户端、融合、缓存、分词、限流、
// 日志、离线预处理）的配置结构，按默认值 → YAML 文件 → 环境变量
// 的优先级加载，环境变量使用 DUQA 前缀。
package config
