/*
Package pipeline 实现在线问答流水线：答案融合与编排。

# 概述

一次检索问答请求经过严格串行的四个阶段：

	抓取 (Crawler) → 阅读理解 (MRCClient) → 相关性重排 (RerankClient) → 融合 (Fuser)

MRC 与 Rerank 是外部模型服务的黑盒适配：适配器只负责请求、校验契约
（每个输入候选必须有对应输出，缺失视为适配器损坏）并把置信度写回候选。
Fuser 把三路信号（MRC 置信度、重排置信度、来源排名先验）归一到一个
最终概率并排序。

请求之间不共享可变状态；模型权重在进程启动时加载、此后只读。
*/
package pipeline
