package types

// Example 是在线服务中一个问题对一篇文档的候选单元。
// 由 crawler 创建后沿流水线逐段补全：MRC 填入答案与置信度，
// Rerank 填入相关性 logit，融合阶段填入最终概率。
// QuestionID 按抓取排名从 1 递增，在一次请求的候选批次内唯一。
type Example struct {
	QuestionID int      `json:"question_id"`
	Question   string   `json:"question"`
	Title      string   `json:"title,omitempty"`
	Abstract   string   `json:"abstract,omitempty"`
	SourceLink string   `json:"source_link,omitempty"`
	Content    string   `json:"content,omitempty"`
	DocTokens  []string `json:"doc_tokens,omitempty"`

	// MRC 阶段填充
	Answer    string  `json:"answer,omitempty"`
	MRCLogits float64 `json:"mrc_logits,omitempty"`
	MRCProb   float64 `json:"mrc_prob,omitempty"`
	MRCProbV1 float64 `json:"mrc_prob_v1,omitempty"`

	// Rerank 阶段填充（正类 logit）
	RerankLogits float64 `json:"rerank_logits,omitempty"`

	// 融合阶段填充
	FinalProb   float64 `json:"final_prob,omitempty"`
	FinalProbV1 float64 `json:"final_prob_v1,omitempty"`
	// PpPmPr 为调试信息: [来源先验, mrc softmax, rerank softmax]
	PpPmPr []float64 `json:"pp_pm_pr,omitempty"`

	// 阶段完成标记。进入融合的候选必须两者皆真，缺一视为上游传播错误。
	HasMRC    bool `json:"-"`
	HasRerank bool `json:"-"`
}

// NBestSpan 是 MRC 模型对单个候选输出的一个答案片段。
// 每个候选最多 20 条，按 start_logit+end_logit 降序排列。
// 片段只属于它被计算出的那一个候选，不跨候选共享。
// prob 与 prob_v1 是两套独立归一化方案下的概率。
type NBestSpan struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
	StartLogit  float64 `json:"start_logit"`
	EndLogit    float64 `json:"end_logit"`
	StartProb   float64 `json:"start_prob"`
	EndProb     float64 `json:"end_prob"`
	StartProbV1 float64 `json:"start_prob_v1"`
	EndProbV1   float64 `json:"end_prob_v1"`
}
