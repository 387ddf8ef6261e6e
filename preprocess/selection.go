package preprocess

import (
	"fmt"
	"sort"
	"strings"

	"github.com/duqa-project/duqa/types"
)

// ComputeParagraphScores 为 sample 每篇文档的每个段落计算与问题分词的 F1。
// 问题分词为空时段落得分为 0。
func ComputeParagraphScores(sample *types.Sample) {
	question := sample.SegmentedQuestion
	for _, doc := range sample.Documents {
		scores := make([]float64, 0, len(doc.SegmentedParagraphs))
		for _, paraTokens := range doc.SegmentedParagraphs {
			score := 0.0
			if len(question) > 0 {
				score = MetricMaxOverGroundTruths(F1Score, paraTokens, [][]string{question})
			}
			scores = append(scores, score)
		}
		doc.SegmentedParagraphsScores = scores
	}
}

// DedupParagraphs 删除文档内完全重复的段落（按分词重新拼接后的文本判重，
// 保留最先出现的一个），并保持 tokens/scores/length 三个平行数组下标一致。
// 实现为一次过滤式重建而非原地删除，避免下标偏移。
// MostRelatedPara 按其前方被删段落数回退。返回是否发生删除。
// 无论是否删除，ParagraphsLength 都会按保留段落重建。
func DedupParagraphs(doc *types.Document) bool {
	n := len(doc.SegmentedParagraphs)
	if len(doc.SegmentedParagraphsScores) < n {
		n = len(doc.SegmentedParagraphsScores)
	}

	paraID := -1
	if doc.MostRelatedPara != nil {
		paraID = *doc.MostRelatedPara
	}

	seen := make(map[string]struct{}, n)
	tokens := make([][]string, 0, n)
	scores := make([]float64, 0, n)
	lengths := make([]int, 0, n)
	deleted := 0
	deletedBefore := 0

	for i := 0; i < n; i++ {
		para := doc.SegmentedParagraphs[i]
		joined := strings.Join(para, "")
		if _, dup := seen[joined]; dup {
			deleted++
			if paraID >= 0 && i < paraID {
				deletedBefore++
			}
			continue
		}
		seen[joined] = struct{}{}
		tokens = append(tokens, para)
		scores = append(scores, doc.SegmentedParagraphsScores[i])
		lengths = append(lengths, len(para))
	}

	doc.ParagraphsLength = lengths
	if deleted == 0 {
		return false
	}

	doc.SegmentedParagraphs = tokens
	doc.SegmentedParagraphsScores = scores
	if doc.MostRelatedPara != nil {
		doc.SetMostRelatedPara(paraID - deletedBefore)
	}
	paragraphs := make([]string, 0, len(tokens))
	for _, para := range tokens {
		paragraphs = append(paragraphs, strings.Join(para, ""))
	}
	doc.Paragraphs = paragraphs
	return true
}

// alignedParagraphCount 返回 tokens/scores/length 三个平行数组共同覆盖的
// 段落数。预打分语料的得分数组可能比段落短，未对齐的尾部不参与选择。
func alignedParagraphCount(doc *types.Document) int {
	n := len(doc.SegmentedParagraphs)
	if len(doc.SegmentedParagraphsScores) < n {
		n = len(doc.SegmentedParagraphsScores)
	}
	if len(doc.ParagraphsLength) < n {
		n = len(doc.ParagraphsLength)
	}
	return n
}

// SelectParagraphs 对 sample 的每篇文档做限长段落选择并拼接为单个段落，
// 同步重映射全局答案区间。mode 取 train/dev/test，maxLen 是标题加段落的
// 长度上限（不计分隔符），topN 是按得分选取的段落数上限。
//
// AnswerDocs[0] 越界属于上游数据错误：静默返回、不做任何修改，
// 由调用方过滤该记录。其余数据错误（答案段落缺失、答案区间缺失等）
// 返回 error，调用方将该记录整条剔除并计数。
func SelectParagraphs(sample *types.Sample, mode string, maxLen, topN int) error {
	docID := -1
	if len(sample.AnswerDocs) > 0 {
		docID = sample.AnswerDocs[0]
		if docID >= len(sample.Documents) {
			return nil
		}
	}

	for dIdx, doc := range sample.Documents {
		if doc.SegmentedParagraphsScores == nil {
			continue
		}
		DedupParagraphs(doc)
		n := alignedParagraphCount(doc)

		titleLen := len(doc.SegmentedTitle)
		paraID := -1
		if docID >= 0 {
			mrp := sample.Documents[docID].MostRelatedPara
			if mrp == nil {
				return types.NewError(types.ErrDataError,
					fmt.Sprintf("answer doc %d has no most_related_para", docID))
			}
			paraID = *mrp
			if dIdx == docID && (paraID < 0 || paraID >= n) {
				return types.NewError(types.ErrDataError,
					fmt.Sprintf("most_related_para %d out of range in answer doc %d", paraID, docID))
			}
		}

		totalLen := titleLen
		for _, l := range doc.ParagraphsLength[:n] {
			totalLen += l
		}

		if totalLen <= maxLen {
			// 全部段落按原顺序并入一个段落
			increLen := titleLen
			merged := make([]string, 0, totalLen)
			merged = append(merged, doc.SegmentedTitle...)
			for pIdx, para := range doc.SegmentedParagraphs[:n] {
				if docID == dIdx && pIdx < paraID {
					increLen += len(para)
				}
				merged = append(merged, para...)
			}
			if docID == dIdx {
				if err := shiftAnswerSpan(sample, increLen); err != nil {
					return err
				}
			}
			mergeDocument(doc, merged, totalLen)
			continue
		}

		// 超长：按 (-得分, 段落长度) 排序取 topN
		type paraInfo struct {
			score  float64
			length int
			idx    int
		}
		infos := make([]paraInfo, 0, n)
		for pIdx := 0; pIdx < n; pIdx++ {
			infos = append(infos, paraInfo{
				score:  doc.SegmentedParagraphsScores[pIdx],
				length: doc.ParagraphsLength[pIdx],
				idx:    pIdx,
			})
		}
		sort.SliceStable(infos, func(i, j int) bool {
			if infos[i].score != infos[j].score {
				return infos[i].score > infos[j].score
			}
			return infos[i].length < infos[j].length
		})
		if len(infos) > topN {
			infos = infos[:topN]
		}

		finalIdx := make([]int, 0, len(infos)+1)
		totalLen = titleLen
		if docID == dIdx && mode == ModeTrain {
			// 训练集强制保留答案段落，先占预算
			finalIdx = append(finalIdx, paraID)
			totalLen = titleLen + doc.ParagraphsLength[paraID]
		}
		for _, info := range infos {
			// 强制保留的答案段落已预先计入预算
			if docID == dIdx && info.idx == paraID && mode == ModeTrain {
				continue
			}
			if totalLen+doc.ParagraphsLength[info.idx] > maxLen {
				break
			}
			totalLen += doc.ParagraphsLength[info.idx]
			finalIdx = append(finalIdx, info.idx)
		}

		// 恢复文档内原始顺序后拼接
		sort.Ints(finalIdx)
		merged := make([]string, 0, totalLen)
		merged = append(merged, doc.SegmentedTitle...)
		increLen := titleLen
		for _, id := range finalIdx {
			if docID == dIdx && id < paraID {
				increLen += doc.ParagraphsLength[id]
			}
			merged = append(merged, doc.SegmentedParagraphs[id]...)
		}
		if docID == dIdx {
			if err := shiftAnswerSpan(sample, increLen); err != nil {
				return err
			}
		}
		mergeDocument(doc, merged, totalLen)
	}
	return nil
}

// shiftAnswerSpan 将全局答案区间整体平移 increLen。
func shiftAnswerSpan(sample *types.Sample, increLen int) error {
	if len(sample.AnswerSpans) == 0 || len(sample.AnswerSpans[0]) < 2 {
		return types.NewError(types.ErrDataError, "answer doc present but answer_spans missing")
	}
	sample.AnswerSpans[0][0] += increLen
	sample.AnswerSpans[0][1] += increLen
	return nil
}

// mergeDocument 将文档收敛为单个合并段落。
func mergeDocument(doc *types.Document, merged []string, totalLen int) {
	doc.SegmentedParagraphs = [][]string{merged}
	doc.SegmentedParagraphsScores = []float64{1.0}
	doc.ParagraphsLength = []int{totalLen}
	doc.Paragraphs = []string{strings.Join(merged, "")}
	doc.SetMostRelatedPara(0)
}
