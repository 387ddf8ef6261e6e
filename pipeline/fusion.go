package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/types"
)

// defaultSourcePriors 是按抓取排名衰减的来源先验：
// 排名越靠前的搜索结果先验越大，近似逐名减半，按 5 个名次归一。
var defaultSourcePriors = []float64{0.503, 0.3314, 0.1414, 0.0831, 0.0411}

// DefaultSourcePriors 返回默认来源先验向量的副本。
func DefaultSourcePriors() []float64 {
	priors := make([]float64, len(defaultSourcePriors))
	copy(priors, defaultSourcePriors)
	return priors
}

// tagPattern 宽松匹配 HTML 样式的标签。
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanAnswer 清洗模型产出的答案文本：去掉标签、换行，
// 以及开头的全角句号与逗号。
func CleanAnswer(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", "")
	text = strings.TrimLeft(text, "。")
	text = strings.TrimLeft(text, "，")
	return text
}

// Softmax 对原始 logits 计算 softmax 概率。
// 先减去最大值再取指数，保证数值稳定。空输入返回 nil。
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	probs := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Fuser 把每个候选的 MRC 置信度、重排置信度与来源排名先验
// 融合为一个最终概率并降序排序。
type Fuser struct {
	priors []float64
	logger *zap.Logger
}

// NewFuser 创建融合器。priors 为空时使用默认来源先验。
func NewFuser(priors []float64, logger *zap.Logger) *Fuser {
	if len(priors) == 0 {
		priors = DefaultSourcePriors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fuser{priors: priors, logger: logger}
}

// priorsFor 返回 n 个候选对应的先验向量。
// 候选数与先验长度不一致时按实际候选数重新归一：
// 不足时截断前 n 项，超出时按上一项减半延伸，再整体归一化。
func (f *Fuser) priorsFor(n int) []float64 {
	priors := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < len(f.priors) {
			priors[i] = f.priors[i]
		} else {
			priors[i] = priors[i-1] / 2
		}
	}
	if n == len(f.priors) {
		return priors
	}
	sum := 0.0
	for _, p := range priors {
		sum += p
	}
	if sum == 0 {
		return priors
	}
	for i := range priors {
		priors[i] /= sum
	}
	return priors
}

// Fuse 对候选批次做三路信号融合并降序排序（同分保持原有相对顺序，
// 即保持抓取排名）。候选缺少 MRC 或重排信号属于上游传播错误。
// 融合前清洗答案文本。
func (f *Fuser) Fuse(examples []*types.Example) ([]*types.Example, error) {
	if len(examples) == 0 {
		return examples, nil
	}

	mrcLogits := make([]float64, len(examples))
	rerankLogits := make([]float64, len(examples))
	for i, e := range examples {
		if !e.HasMRC || !e.HasRerank {
			return nil, types.NewError(types.ErrAdapterContract,
				fmt.Sprintf("candidate %d entered fusion without full scores (mrc=%v rerank=%v)",
					e.QuestionID, e.HasMRC, e.HasRerank))
		}
		mrcLogits[i] = e.MRCLogits
		rerankLogits[i] = e.RerankLogits
	}

	mrcProbs := Softmax(mrcLogits)
	rerankProbs := Softmax(rerankLogits)
	priors := f.priorsFor(len(examples))

	for i, e := range examples {
		pp, pm, pr := priors[i], mrcProbs[i], rerankProbs[i]
		e.FinalProb = pp * pm * pr
		e.PpPmPr = []float64{pp, pm, pr}
		e.Answer = CleanAnswer(e.Answer)
	}

	sorted := make([]*types.Example, len(examples))
	copy(sorted, examples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FinalProb > sorted[j].FinalProb
	})

	f.logger.Debug("fusion completed", zap.Int("candidates", len(sorted)))
	return sorted, nil
}

// FuseByProb 是无抓取排名场景下的降级融合：只用 MRC 概率积作为
// 最终概率（两套归一化方案分别写入 final_prob 与 final_prob_v1），
// 不施加来源先验，降序稳定排序。
func (f *Fuser) FuseByProb(examples []*types.Example) []*types.Example {
	for _, e := range examples {
		e.Answer = CleanAnswer(e.Answer)
		e.FinalProb = e.MRCProb
		e.FinalProbV1 = e.MRCProbV1
	}
	sorted := make([]*types.Example, len(examples))
	copy(sorted, examples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FinalProb > sorted[j].FinalProb
	})
	return sorted
}
