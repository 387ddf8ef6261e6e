/*
Package preprocess 实现离线语料预处理：段落压缩与段落排序评测。

# 概述

预处理按行流式处理语料（一行 JSON 一个问题记录），对每篇文档完成
段落评分、重复段落删除、限长段落选择与拼接，并同步重映射训练用的
答案区间。压缩与评测共用同一套 token 多重集指标（precision/recall/F1）。

# 处理流程

  1. ComputeParagraphScores — 每个段落与问题分词的 F1
  2. DedupParagraphs        — 删除文档内完全重复的段落
  3. SelectParagraphs       — 限长选段、拼接、答案区间重映射
  4. EvaluatePassageRank    — 选出段落对参考答案的最大 recall

单条记录的数据错误只剔除该条记录并计数，不中断整批处理。
*/
package preprocess
