package preprocess

import "github.com/duqa-project/duqa/types"

// EvaluatePassageRank 计算选出段落对参考答案的最大 recall，
// 用于评估段落选择质量。每个选出段落取其对所有参考答案的最大
// recall，返回所有段落中的最大值，并把逐段得分写回
// sample.RelatedScoreList。
//
// sample.SegmentedAnswers 为空时没有任何可比对象，返回 ErrNoAnswers，
// 调用方需先做长度检查或按记录剔除。
func EvaluatePassageRank(sample *types.Sample) (float64, error) {
	if len(sample.SegmentedAnswers) == 0 {
		return 0, types.NewError(types.ErrNoAnswers, "sample has no segmented_answers")
	}

	scores := make([]float64, 0, len(sample.PassageTokens))
	for _, paraTokens := range sample.PassageTokens {
		scores = append(scores, MetricMaxOverGroundTruths(Recall, paraTokens, sample.SegmentedAnswers))
	}
	if len(scores) == 0 {
		return 0, types.NewError(types.ErrNoAnswers, "sample has no passage_tokens to score")
	}

	sample.RelatedScoreList = scores
	maxRecall := scores[0]
	for _, s := range scores[1:] {
		if s > maxRecall {
			maxRecall = s
		}
	}
	return maxRecall, nil
}
