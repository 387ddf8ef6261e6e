/*
Package types 提供问答系统的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 crawler、pipeline、preprocess、
api 等上层模块提供统一的类型契约。

# 核心类型

  - Example           — 在线检索问答的候选单元（一篇文档一个候选）
  - NBestSpan         — MRC 模型输出的候选答案片段（top 20）
  - Sample / Document — 离线预处理语料的一行记录及其文档
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记
*/
package types
