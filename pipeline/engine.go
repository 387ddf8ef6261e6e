package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/metrics"
	"github.com/duqa-project/duqa/segment"
	"github.com/duqa-project/duqa/types"
)

// Crawler 是检索抓取层的黑盒接口。
// Crawl 返回按搜索排名升序排列的候选批次，QuestionID 即排名。
type Crawler interface {
	Crawl(ctx context.Context, query string) ([]*types.Example, error)
}

// Result 是对外输出的单条答案。内部打分细节（logits、各路 softmax）
// 不对外暴露，只保留展示与排序所需字段。
type Result struct {
	QuestionID  int     `json:"question_id"`
	Question    string  `json:"question"`
	Title       string  `json:"title,omitempty"`
	Abstract    string  `json:"abstract,omitempty"`
	SourceLink  string  `json:"source_link,omitempty"`
	Content     string  `json:"content,omitempty"`
	Answer      string  `json:"answer"`
	FinalProb   float64 `json:"final_prob,omitempty"`
	FinalProbV1 float64 `json:"final_prob_v1,omitempty"`
}

// Engine 是在线问答编排器，把抓取、阅读理解、重排与融合
// 串成一条严格顺序的流水线。各依赖在进程启动时注入，
// 请求之间不共享可变状态。
type Engine struct {
	crawler Crawler
	mrc     MRCClient
	rerank  RerankClient
	fuser   *Fuser
	seg     segment.Segmenter
	cache   *cache.Manager
	metrics *metrics.Collector
	logger  *zap.Logger

	// 相同问题的并发检索请求合并为一次流水线执行
	sf singleflight.Group
}

// EngineOption 配置 Engine 的可选依赖。
type EngineOption func(*Engine)

// WithAnswerCache 启用整条问答结果的缓存，相同问题在 TTL 内
// 直接返回缓存答案，不再走流水线。
func WithAnswerCache(m *cache.Manager) EngineOption {
	return func(e *Engine) { e.cache = m }
}

// WithMetrics 启用缓存命中指标上报。
func WithMetrics(c *metrics.Collector) EngineOption {
	return func(e *Engine) { e.metrics = c }
}

// NewEngine 创建问答编排器。
func NewEngine(crawler Crawler, mrc MRCClient, rerank RerankClient, fuser *Fuser, seg segment.Segmenter, logger *zap.Logger, opts ...EngineOption) *Engine {
	if fuser == nil {
		fuser = NewFuser(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		crawler: crawler,
		mrc:     mrc,
		rerank:  rerank,
		fuser:   fuser,
		seg:     seg,
		logger:  logger.With(zap.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer 回答一个开放域问题：抓取候选文档、抽取答案片段、
// 重排、三路融合，返回按最终概率降序的答案列表。
func (e *Engine) Answer(ctx context.Context, query string) ([]*Result, error) {
	if e.cache != nil {
		var cached []*Result
		if err := e.cache.GetJSON(ctx, cache.AnswerKey(query), &cached); err == nil {
			e.metrics.RecordCacheHit("answer")
			e.logger.Debug("answer cache hit", zap.String("query", query))
			return cached, nil
		} else if cache.IsCacheMiss(err) {
			e.metrics.RecordCacheMiss("answer")
		} else {
			e.logger.Warn("answer cache unavailable", zap.Error(err))
		}
	}

	v, err, shared := e.sf.Do(query, func() (any, error) {
		return e.answer(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("answer request coalesced", zap.String("query", query))
	}
	results := v.([]*Result)

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, cache.AnswerKey(query), results, 0); err != nil {
			e.logger.Warn("answer cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

func (e *Engine) answer(ctx context.Context, query string) ([]*Result, error) {
	start := time.Now()

	examples, err := e.crawler.Crawl(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, types.NewError(types.ErrCrawlEmpty, "no documents crawled for query")
	}

	if err := e.mrc.Predict(ctx, examples); err != nil {
		return nil, err
	}
	if err := e.rerank.Predict(ctx, examples); err != nil {
		return nil, err
	}
	ranked, err := e.fuser.Fuse(examples)
	if err != nil {
		return nil, err
	}

	e.logger.Info("answer pipeline completed",
		zap.String("query", query),
		zap.Int("candidates", len(ranked)),
		zap.Duration("duration", time.Since(start)))
	return toResults(ranked), nil
}

// AnswerWithDoc 把多个问题都对同一篇给定文档作答。
// 没有抓取排名也没有跨候选竞争，不做融合排序，
// 只清洗答案文本并按问题原有顺序返回。
func (e *Engine) AnswerWithDoc(ctx context.Context, queries []string, doc string) ([]*Result, error) {
	if len(queries) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "query list is empty")
	}
	if doc == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "doc is empty")
	}

	docTokens := e.seg.Cut(doc)
	examples := make([]*types.Example, 0, len(queries))
	for i, q := range queries {
		examples = append(examples, &types.Example{
			QuestionID: i + 1,
			Question:   q,
			DocTokens:  docTokens,
		})
	}

	if err := e.mrc.Predict(ctx, examples); err != nil {
		return nil, err
	}
	for _, ex := range examples {
		ex.Answer = CleanAnswer(ex.Answer)
	}
	return toResults(examples), nil
}

// AnswerDocQA 用一个问题对多篇给定文档逐篇作答。
// 每篇文档产出一个候选，按 MRC 概率积降级融合后降序返回，
// 两套概率方案分别写入 final_prob 与 final_prob_v1。
func (e *Engine) AnswerDocQA(ctx context.Context, query string, docs []string) ([]*Result, error) {
	if query == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query is empty")
	}
	if len(docs) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "doc list is empty")
	}

	examples := make([]*types.Example, 0, len(docs))
	for i, doc := range docs {
		examples = append(examples, &types.Example{
			QuestionID: i + 1,
			Question:   query,
			DocTokens:  e.seg.Cut(doc),
		})
	}

	if err := e.mrc.Predict(ctx, examples); err != nil {
		return nil, err
	}
	ranked := e.fuser.FuseByProb(examples)
	return toResults(ranked), nil
}

func toResults(examples []*types.Example) []*Result {
	results := make([]*Result, 0, len(examples))
	for _, e := range examples {
		results = append(results, &Result{
			QuestionID:  e.QuestionID,
			Question:    e.Question,
			Title:       e.Title,
			Abstract:    e.Abstract,
			SourceLink:  e.SourceLink,
			Content:     e.Content,
			Answer:      e.Answer,
			FinalProb:   e.FinalProb,
			FinalProbV1: e.FinalProbV1,
		})
	}
	return results
}
