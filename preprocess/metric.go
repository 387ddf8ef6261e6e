package preprocess

// MetricFunc 是 token 序列对的打分函数。
type MetricFunc func(prediction, groundTruth []string) float64

// PrecisionRecallF1 计算预测 token 序列与参考 token 序列的
// 多重集交集 precision/recall/F1。同一 token 在两边各出现两次计 2。
// 交集为空时三项皆为 0，与序列长度无关。
func PrecisionRecallF1(prediction, groundTruth []string) (p, r, f1 float64) {
	if len(prediction) == 0 || len(groundTruth) == 0 {
		return 0, 0, 0
	}
	counts := make(map[string]int, len(prediction))
	for _, tok := range prediction {
		counts[tok]++
	}
	numSame := 0
	for _, tok := range groundTruth {
		if counts[tok] > 0 {
			counts[tok]--
			numSame++
		}
	}
	if numSame == 0 {
		return 0, 0, 0
	}
	p = float64(numSame) / float64(len(prediction))
	r = float64(numSame) / float64(len(groundTruth))
	f1 = 2 * p * r / (p + r)
	return p, r, f1
}

// F1Score 返回 token 序列对的 F1。
func F1Score(prediction, groundTruth []string) float64 {
	_, _, f1 := PrecisionRecallF1(prediction, groundTruth)
	return f1
}

// Recall 返回 token 序列对的 recall。
func Recall(prediction, groundTruth []string) float64 {
	_, r, _ := PrecisionRecallF1(prediction, groundTruth)
	return r
}

// MetricMaxOverGroundTruths 对多个参考序列逐一打分并取最大值。
// 参考序列为空时返回 0，调用方需要区分时应先做长度检查。
func MetricMaxOverGroundTruths(metric MetricFunc, prediction []string, groundTruths [][]string) float64 {
	maxScore := 0.0
	for _, gt := range groundTruths {
		if score := metric(prediction, gt); score > maxScore {
			maxScore = score
		}
	}
	return maxScore
}
