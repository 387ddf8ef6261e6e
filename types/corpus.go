package types

// Document 是预处理语料中一个问题记录下的一篇文档。
// 预处理阶段会被原地修改（评分、去重、压缩），压缩完成后恰好剩一个合并段落。
// MostRelatedPara 用指针区分字段缺失与值为 0。
type Document struct {
	Title                     string     `json:"title,omitempty"`
	SegmentedTitle            []string   `json:"segmented_title"`
	SegmentedParagraphs       [][]string `json:"segmented_paragraphs"`
	SegmentedParagraphsScores []float64  `json:"segmented_paragraphs_scores,omitempty"`
	ParagraphsLength          []int      `json:"paragraphs_length,omitempty"`
	Paragraphs                []string   `json:"paragraphs,omitempty"`
	MostRelatedPara           *int       `json:"most_related_para,omitempty"`
}

// SetMostRelatedPara 设置最相关段落下标。
func (d *Document) SetMostRelatedPara(idx int) {
	d.MostRelatedPara = &idx
}

// Sample 是预处理语料的一行记录（一个问题实例）。
// AnswerDocs / AnswerSpans / FakeAnswers 仅训练集存在，
// SegmentedAnswers 仅评测时存在。
// 不变量：AnswerDocs[0] 必须小于 len(Documents)，违反的记录由上游剔除。
type Sample struct {
	QuestionID        int         `json:"question_id"`
	Question          string      `json:"question"`
	SegmentedQuestion []string    `json:"segmented_question"`
	Documents         []*Document `json:"documents"`
	AnswerDocs        []int       `json:"answer_docs,omitempty"`
	AnswerSpans       [][]int     `json:"answer_spans,omitempty"`
	FakeAnswers       []string    `json:"fake_answers,omitempty"`
	SegmentedAnswers  [][]string  `json:"segmented_answers,omitempty"`

	// 预处理输出阶段填充
	PassageTokens    [][]string `json:"passage_tokens,omitempty"`
	RelatedScoreList []float64  `json:"related_score_list,omitempty"`
}

// PreprocessedSample 是预处理输出的一行记录，送给阅读器训练。
type PreprocessedSample struct {
	Question     string   `json:"question"`
	QuestionID   int      `json:"question_id"`
	DocTokens    []string `json:"doc_tokens"`
	DocTokensLen int      `json:"doc_tokens_len"`
	FakeAnswer   []string `json:"fake_answer,omitempty"`
	AnswerSpan   []int    `json:"answer_span,omitempty"`
}
