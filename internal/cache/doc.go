/*
包 cache 提供基于 Redis 的缓存管理能力，支撑抓取层的页面缓存
与问答结果缓存。

# 概述

本包封装 go-redis 客户端。Manager 负责连接生命周期管理，
包括初始化、后台健康检查与优雅关闭。抓取层用 PageKey 缓存
已下载网页的正文，编排层用 AnswerKey 缓存整条问答结果，
热点问题在 TTL 内不再重复抓取与推理。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set/Delete 基础操作与 GetJSON/SetJSON 序列化方法。
  - Config：缓存配置，包含地址、密码、连接池大小、默认 TTL
    与健康检查间隔等参数。

# 错误语义

未命中返回哨兵错误 ErrCacheMiss，调用方用 IsCacheMiss 判断后
回源抓取；其余错误代表 Redis 不可用，调用方应降级为直接回源。
*/
package cache
