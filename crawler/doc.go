/*
Package crawler 实现检索抓取层：向搜索引擎提交问题，解析结果页，
并发抓取命中网页的正文，产出带抓取排名的候选批次。

# 流程

	搜索结果页 -> 解析结果块 (标题/摘要/链接) -> 并发抓取正文 -> 分词 -> 候选

结果块按搜索排名出现顺序编号，QuestionID 从 1 递增，下游的来源
先验按这个排名索引。正文抓取经过限速器与固定大小的 worker pool，
单页失败只丢弃该候选，不影响同批其他页面。

已抓取页面的正文可写入 Redis 缓存（internal/cache），TTL 内重复
出现的链接不再下载。
*/
package crawler
