package preprocess

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/types"
)

// 数据集模式
const (
	ModeTrain = "train"
	ModeDev   = "dev"
	ModeTest  = "test"
)

// 语料行可能很长（整篇网页分词），放宽扫描缓冲上限。
const maxLineBytes = 64 << 20

// RunnerConfig 预处理运行配置。
type RunnerConfig struct {
	// Mode 取 train/dev/test
	Mode string `yaml:"mode" json:"mode"`
	// MaxPLen 选段后标题+段落的长度上限
	MaxPLen int `yaml:"max_p_len" json:"max_p_len"`
	// TopN 按得分选取的段落数上限
	TopN int `yaml:"top_n" json:"top_n"`
	// DoClean 训练集是否剔除 fake_answer 与答案区间不一致的记录
	DoClean bool `yaml:"do_clean" json:"do_clean"`
	// Eval 是否统计选段答案 recall
	Eval bool `yaml:"eval" json:"eval"`
}

// DefaultRunnerConfig 返回默认预处理配置。
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Mode:    ModeTrain,
		MaxPLen: 500,
		TopN:    3,
	}
}

// Validate 校验配置。
func (c RunnerConfig) Validate() error {
	switch c.Mode {
	case ModeTrain, ModeDev, ModeTest:
	default:
		return fmt.Errorf("invalid mode %q: must be train/dev/test", c.Mode)
	}
	if c.MaxPLen <= 0 {
		return fmt.Errorf("max_p_len must be positive, got %d", c.MaxPLen)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	return nil
}

// Stats 汇总一次预处理的计数与评测统计。
// AnswerNotMatch 计入所有被剔除的记录（数据错误与 do_clean 不一致）。
type Stats struct {
	Total          int `json:"total"`
	Output         int `json:"output"`
	AnswerNotMatch int `json:"answer_not_match"`

	// Eval 开启时填充
	RecallCount   int     `json:"recall_count,omitempty"`
	RecallSum     float64 `json:"-"`
	PassageLenSum int     `json:"-"`
	PassageLenMax int     `json:"passage_len_max,omitempty"`
	PassageLenMin int     `json:"passage_len_min,omitempty"`
}

// AvgRecall 返回选段平均最大 recall。
func (s *Stats) AvgRecall() float64 {
	if s.RecallCount == 0 {
		return 0
	}
	return s.RecallSum / float64(s.RecallCount)
}

// AvgPassageLen 返回选段平均长度。
func (s *Stats) AvgPassageLen() float64 {
	if s.RecallCount == 0 {
		return 0
	}
	return float64(s.PassageLenSum) / float64(s.RecallCount)
}

// Runner 流式预处理器：一行语料进，一行预处理结果出。
// 单条记录的错误只剔除并计数，不中断整批。
type Runner struct {
	cfg    RunnerConfig
	logger *zap.Logger
}

// NewRunner 创建预处理器。
func NewRunner(cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Process 从 in 逐行读取语料，把预处理结果逐行写入 out。
// out 为 nil 时只做统计不输出。返回整批统计。
func (r *Runner) Process(in io.Reader, out io.Writer) (*Stats, error) {
	stats := &Stats{PassageLenMin: -1}

	var enc *json.Encoder
	var w *bufio.Writer
	if out != nil {
		w = bufio.NewWriter(out)
		defer w.Flush()
		enc = json.NewEncoder(w)
		enc.SetEscapeHTML(false)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var sample types.Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			stats.AnswerNotMatch++
			r.logger.Warn("malformed corpus line, skipping",
				zap.Int("line", stats.Total), zap.Error(err))
			continue
		}

		if !r.processSample(&sample, stats) {
			continue
		}

		if enc != nil {
			record, ok := r.buildOutput(&sample)
			if !ok {
				continue
			}
			if err := enc.Encode(record); err != nil {
				return stats, fmt.Errorf("write output record: %w", err)
			}
			stats.Output++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read corpus: %w", err)
	}
	return stats, nil
}

// processSample 对单条记录执行评分、选段、清洗与评测。
// 返回 false 表示该记录被剔除或不应输出。
func (r *Runner) processSample(sample *types.Sample, stats *Stats) bool {
	ComputeParagraphScores(sample)

	if err := SelectParagraphs(sample, r.cfg.Mode, r.cfg.MaxPLen, r.cfg.TopN); err != nil {
		stats.AnswerNotMatch++
		return false
	}

	answerDoc := 0
	if len(sample.AnswerDocs) > 0 {
		answerDoc = sample.AnswerDocs[0]
	}

	if answerDoc < len(sample.Documents) && len(sample.Documents[answerDoc].SegmentedParagraphs) > 0 {
		sample.PassageTokens = [][]string{sample.Documents[answerDoc].SegmentedParagraphs[0]}
	} else {
		sample.PassageTokens = [][]string{{}}
	}

	if r.cfg.Mode == ModeTrain && r.cfg.DoClean {
		if !r.cleanMatches(sample, answerDoc) {
			stats.AnswerNotMatch++
			return false
		}
	}

	if r.cfg.Eval {
		maxRecall, err := EvaluatePassageRank(sample)
		if err != nil {
			return false
		}
		if maxRecall > 0 {
			passageLen := 0
			for _, para := range sample.PassageTokens {
				passageLen += len(para)
			}
			stats.RecallCount++
			stats.RecallSum += maxRecall
			stats.PassageLenSum += passageLen
			if passageLen > stats.PassageLenMax {
				stats.PassageLenMax = passageLen
			}
			if stats.PassageLenMin < 0 || passageLen < stats.PassageLenMin {
				stats.PassageLenMin = passageLen
			}
		}
	}
	return true
}

// cleanMatches 校验答案区间截取出的文本与 fake_answer 完全一致。
func (r *Runner) cleanMatches(sample *types.Sample, answerDoc int) bool {
	if answerDoc >= len(sample.Documents) ||
		len(sample.Documents[answerDoc].SegmentedParagraphs) == 0 ||
		len(sample.FakeAnswers) == 0 ||
		len(sample.AnswerSpans) == 0 || len(sample.AnswerSpans[0]) < 2 {
		return false
	}
	answerText := sample.Documents[answerDoc].SegmentedParagraphs[0]
	span := sample.AnswerSpans[0]
	if span[0] < 0 || span[1]+1 > len(answerText) || span[0] > span[1] {
		return false
	}
	return sample.FakeAnswers[0] == strings.Join(answerText[span[0]:span[1]+1], "")
}

// buildOutput 把压缩后的记录展平为阅读器训练格式。
func (r *Runner) buildOutput(sample *types.Sample) (*types.PreprocessedSample, bool) {
	docTokens := make([]string, 0, 64)
	for _, para := range sample.PassageTokens {
		docTokens = append(docTokens, para...)
	}
	record := &types.PreprocessedSample{
		Question:     sample.Question,
		QuestionID:   sample.QuestionID,
		DocTokens:    docTokens,
		DocTokensLen: len(docTokens),
	}
	if r.cfg.Mode == ModeTrain {
		if len(sample.FakeAnswers) == 0 || len(sample.AnswerSpans) == 0 {
			return nil, false
		}
		record.FakeAnswer = sample.FakeAnswers
		record.AnswerSpan = sample.AnswerSpans[0]
	}
	return record, true
}
