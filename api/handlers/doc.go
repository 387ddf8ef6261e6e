/*
Package handlers 提供检索问答服务 HTTP API 的请求处理器实现。

# 概述

handlers 包实现三个问答端点与健康检查端点的请求处理逻辑。
所有 Handler 均遵循标准 net/http 接口；任何处理器内部错误都被
捕获并包进统一信封返回，不向客户端抛裸错误。

# 端点

  - POST/GET /api/chat — 开放域问题，完整抓取-阅读-重排-融合流水线
  - POST /api/doc      — 多个问题对同一篇给定文档作答
  - POST /api/doc_qa   — 一个问题对多篇给定文档逐篇作答
  - GET /health /ready /version — 存活、就绪与版本

# 响应信封

成功: {"code": 0, "results": [...]}
失败: {"code": 1, "message": "..."}
*/
package handlers
