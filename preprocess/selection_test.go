package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duqa-project/duqa/types"
)

func tokens(ss ...string) []string { return ss }

func TestComputeParagraphScores(t *testing.T) {
	sample := &types.Sample{
		SegmentedQuestion: tokens("导", "演", "是", "谁"),
		Documents: []*types.Document{
			{
				SegmentedParagraphs: [][]string{
					tokens("导", "演", "是", "谁"),
					tokens("无", "关", "内", "容"),
				},
			},
		},
	}
	ComputeParagraphScores(sample)

	scores := sample.Documents[0].SegmentedParagraphsScores
	require.Len(t, scores, 2)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.Zero(t, scores[1])
}

func TestComputeParagraphScores_EmptyQuestion(t *testing.T) {
	sample := &types.Sample{
		Documents: []*types.Document{
			{SegmentedParagraphs: [][]string{tokens("a")}},
		},
	}
	ComputeParagraphScores(sample)
	assert.Equal(t, []float64{0}, sample.Documents[0].SegmentedParagraphsScores)
}

func TestDedupParagraphs(t *testing.T) {
	doc := &types.Document{
		SegmentedParagraphs: [][]string{
			tokens("重", "复"),
			tokens("重", "复"),
			tokens("独", "立", "段"),
		},
		SegmentedParagraphsScores: []float64{0.3, 0.3, 0.8},
	}
	doc.SetMostRelatedPara(2)

	changed := DedupParagraphs(doc)

	assert.True(t, changed)
	require.Len(t, doc.SegmentedParagraphs, 2)
	assert.Equal(t, []float64{0.3, 0.8}, doc.SegmentedParagraphsScores)
	assert.Equal(t, []int{2, 3}, doc.ParagraphsLength)
	// 被删段落在最相关段落之前，下标回退一位
	require.NotNil(t, doc.MostRelatedPara)
	assert.Equal(t, 1, *doc.MostRelatedPara)
	assert.Equal(t, []string{"重复", "独立段"}, doc.Paragraphs)
}

func TestDedupParagraphs_NoDuplicates(t *testing.T) {
	doc := &types.Document{
		SegmentedParagraphs:       [][]string{tokens("a"), tokens("b", "c")},
		SegmentedParagraphsScores: []float64{0.1, 0.2},
	}
	changed := DedupParagraphs(doc)

	assert.False(t, changed)
	// 无删除也要重建长度数组
	assert.Equal(t, []int{1, 2}, doc.ParagraphsLength)
	assert.Len(t, doc.SegmentedParagraphs, 2)
}

func TestSelectParagraphs_MergeAllWithinBudget(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle: tokens("标", "题"),
		SegmentedParagraphs: [][]string{
			tokens("第", "一", "段"),
			tokens("第", "二", "段"),
		},
		SegmentedParagraphsScores: []float64{0.5, 0.9},
	}
	sample := &types.Sample{Documents: []*types.Document{doc}}

	require.NoError(t, SelectParagraphs(sample, ModeDev, 100, 3))

	require.Len(t, doc.SegmentedParagraphs, 1)
	assert.Equal(t, tokens("标", "题", "第", "一", "段", "第", "二", "段"), doc.SegmentedParagraphs[0])
	assert.Equal(t, []float64{1.0}, doc.SegmentedParagraphsScores)
	assert.Equal(t, []int{8}, doc.ParagraphsLength)
	assert.Equal(t, []string{"标题第一段第二段"}, doc.Paragraphs)
	require.NotNil(t, doc.MostRelatedPara)
	assert.Equal(t, 0, *doc.MostRelatedPara)

	// 幂等：再次压缩不改变内容
	before := doc.SegmentedParagraphs[0]
	require.NoError(t, SelectParagraphs(sample, ModeDev, 100, 3))
	require.Len(t, doc.SegmentedParagraphs, 1)
	assert.Equal(t, before, doc.SegmentedParagraphs[0])
	assert.Equal(t, 0, *doc.MostRelatedPara)
}

func TestSelectParagraphs_MergeAllShiftsAnswerSpan(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle: tokens("标", "题"), // 标题长 2
		SegmentedParagraphs: [][]string{
			tokens("前", "置", "段"), // 长 3，位于答案段之前
			tokens("答", "案", "在", "这"),
		},
		SegmentedParagraphsScores: []float64{0.1, 0.9},
	}
	doc.SetMostRelatedPara(1)
	sample := &types.Sample{
		Documents:   []*types.Document{doc},
		AnswerDocs:  []int{0},
		AnswerSpans: [][]int{{0, 3}},
	}

	require.NoError(t, SelectParagraphs(sample, ModeTrain, 100, 3))

	// 偏移 = 标题 2 + 前置段 3
	assert.Equal(t, [][]int{{5, 8}}, sample.AnswerSpans)
	merged := doc.SegmentedParagraphs[0]
	assert.Equal(t, tokens("答", "案", "在", "这"), merged[5:9])
}

func TestSelectParagraphs_TopNSelection(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle: tokens("T"), // 标题长 1
		SegmentedParagraphs: [][]string{
			tokens("a", "a", "a"),      // p0 长 3 分 0.9
			tokens("b", "b"),           // p1 长 2 分 0.9（同分更短，排前）
			tokens("c", "c", "c", "c"), // p2 长 4 分 0.1
		},
		SegmentedParagraphsScores: []float64{0.9, 0.9, 0.1},
	}
	sample := &types.Sample{Documents: []*types.Document{doc}}

	require.NoError(t, SelectParagraphs(sample, ModeDev, 6, 2))

	// topN 选中 p1、p0，拼接时恢复文档原顺序 p0、p1
	require.Len(t, doc.SegmentedParagraphs, 1)
	assert.Equal(t, tokens("T", "a", "a", "a", "b", "b"), doc.SegmentedParagraphs[0])
	assert.Equal(t, []int{6}, doc.ParagraphsLength)
	assert.LessOrEqual(t, doc.ParagraphsLength[0], 6)
}

func TestSelectParagraphs_TopNBudgetBound(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle: tokens("T"),
		SegmentedParagraphs: [][]string{
			tokens("a", "a"),           // p0 长 2 分 0.9
			tokens("b", "b", "b", "b"), // p1 长 4 分 0.8，放入会超出预算
			tokens("c", "c", "c"),      // p2 长 3 分 0.7
		},
		SegmentedParagraphsScores: []float64{0.9, 0.8, 0.7},
	}
	sample := &types.Sample{Documents: []*types.Document{doc}}

	require.NoError(t, SelectParagraphs(sample, ModeDev, 4, 3))

	// 只留得下 p0：1 + 2 <= 4，p1 会超出则停止
	assert.Equal(t, tokens("T", "a", "a"), doc.SegmentedParagraphs[0])
	assert.LessOrEqual(t, doc.ParagraphsLength[0], 4)
}

func TestSelectParagraphs_TrainForceIncludesAnswerPara(t *testing.T) {
	build := func() (*types.Sample, *types.Document) {
		doc := &types.Document{
			SegmentedTitle: tokens("T"),
			SegmentedParagraphs: [][]string{
				tokens("h", "h", "h"),      // p0 长 3 分 0.9
				tokens("m", "m", "m"),      // p1 长 3 分 0.8
				tokens("答", "案", "段"),      // p2 长 3 分 0.0（低分答案段）
			},
			SegmentedParagraphsScores: []float64{0.9, 0.8, 0.0},
		}
		doc.SetMostRelatedPara(2)
		sample := &types.Sample{
			Documents:   []*types.Document{doc},
			AnswerDocs:  []int{0},
			AnswerSpans: [][]int{{0, 2}},
		}
		return sample, doc
	}

	// train 模式：低分答案段被强制保留
	sample, doc := build()
	require.NoError(t, SelectParagraphs(sample, ModeTrain, 7, 2))
	merged := doc.SegmentedParagraphs[0]
	assert.Equal(t, tokens("T", "h", "h", "h", "答", "案", "段"), merged)
	// 答案区间平移：标题 1 + 前方保留段 p0 长 3
	assert.Equal(t, [][]int{{4, 6}}, sample.AnswerSpans)
	assert.Equal(t, tokens("答", "案", "段"), merged[4:7])

	// dev 模式：不强制保留，答案段落选
	sample, doc = build()
	require.NoError(t, SelectParagraphs(sample, ModeDev, 7, 2))
	assert.Equal(t, tokens("T", "h", "h", "h", "m", "m", "m"), doc.SegmentedParagraphs[0])
}

func TestSelectParagraphs_BadAnswerDocSilentReturn(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle:            tokens("T"),
		SegmentedParagraphs:       [][]string{tokens("a")},
		SegmentedParagraphsScores: []float64{0.5},
	}
	sample := &types.Sample{
		Documents:  []*types.Document{doc},
		AnswerDocs: []int{3}, // 越界：上游数据错误
	}

	require.NoError(t, SelectParagraphs(sample, ModeTrain, 100, 3))

	// 未做任何修改
	assert.Len(t, doc.SegmentedParagraphs, 1)
	assert.Equal(t, tokens("a"), doc.SegmentedParagraphs[0])
	assert.Nil(t, doc.MostRelatedPara)
}

func TestSelectParagraphs_SkipsUnscoredDocuments(t *testing.T) {
	scored := &types.Document{
		SegmentedParagraphs:       [][]string{tokens("a")},
		SegmentedParagraphsScores: []float64{0.5},
	}
	unscored := &types.Document{
		SegmentedParagraphs: [][]string{tokens("b"), tokens("c")},
	}
	sample := &types.Sample{Documents: []*types.Document{scored, unscored}}

	require.NoError(t, SelectParagraphs(sample, ModeDev, 100, 3))

	assert.Len(t, scored.SegmentedParagraphs, 1)
	// 未评分文档原样跳过
	assert.Len(t, unscored.SegmentedParagraphs, 2)
	assert.Nil(t, unscored.MostRelatedPara)
}

func TestSelectParagraphs_EmptyDocumentDoesNotPanic(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle:            tokens("标", "题"),
		SegmentedParagraphs:       [][]string{},
		SegmentedParagraphsScores: []float64{},
	}
	sample := &types.Sample{Documents: []*types.Document{doc}}

	require.NoError(t, SelectParagraphs(sample, ModeDev, 100, 3))

	require.Len(t, doc.SegmentedParagraphs, 1)
	assert.Equal(t, tokens("标", "题"), doc.SegmentedParagraphs[0])
	assert.Equal(t, []int{2}, doc.ParagraphsLength)
}

func TestSelectParagraphs_ScoresShorterThanParagraphs(t *testing.T) {
	// 预打分语料可能带有比段落短的得分数组，且无重复段落时
	// DedupParagraphs 不会回写截断后的数组，选择阶段必须自行对齐。
	build := func() (*types.Sample, *types.Document) {
		doc := &types.Document{
			SegmentedTitle: tokens("T"),
			SegmentedParagraphs: [][]string{
				tokens("a", "a"),
				tokens("b", "b", "b"),
				tokens("c", "c", "c", "c"), // 没有对应得分，不参与选择
			},
			SegmentedParagraphsScores: []float64{0.9, 0.5},
		}
		return &types.Sample{Documents: []*types.Document{doc}}, doc
	}

	t.Run("merge all keeps aligned paragraphs only", func(t *testing.T) {
		sample, doc := build()
		require.NoError(t, SelectParagraphs(sample, ModeDev, 100, 3))
		require.Len(t, doc.SegmentedParagraphs, 1)
		assert.Equal(t, tokens("T", "a", "a", "b", "b", "b"), doc.SegmentedParagraphs[0])
		assert.Equal(t, []int{6}, doc.ParagraphsLength)
	})

	t.Run("topn selection stays in bounds", func(t *testing.T) {
		sample, doc := build()
		require.NotPanics(t, func() {
			require.NoError(t, SelectParagraphs(sample, ModeDev, 3, 3))
		})
		require.Len(t, doc.SegmentedParagraphs, 1)
		assert.Equal(t, tokens("T", "a", "a"), doc.SegmentedParagraphs[0])
		assert.LessOrEqual(t, doc.ParagraphsLength[0], 3)
	})
}

func TestSelectParagraphs_MissingAnswerSpanRejected(t *testing.T) {
	doc := &types.Document{
		SegmentedTitle:            tokens("T"),
		SegmentedParagraphs:       [][]string{tokens("a")},
		SegmentedParagraphsScores: []float64{0.5},
	}
	doc.SetMostRelatedPara(0)
	sample := &types.Sample{
		Documents:  []*types.Document{doc},
		AnswerDocs: []int{0},
		// AnswerSpans 缺失
	}

	err := SelectParagraphs(sample, ModeTrain, 100, 3)
	assert.Error(t, err)
	assert.Equal(t, types.ErrDataError, types.GetErrorCode(err))
}
