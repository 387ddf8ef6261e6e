package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/types"
)

// RerankClient 是 (问题, 答案) 相关性二分类模型的黑盒适配接口。
// Predict 为每个候选填入正类 logit（HasRerank 置真）。
// 输出缺少任何一个输入候选的条目视为适配器损坏。
type RerankClient interface {
	Predict(ctx context.Context, examples []*types.Example) error
}

// rerankResponse 是重排模型服务的应答体。
// 每个候选 id 对应 [负类 logit, 正类 logit]，融合只消费正类。
type rerankResponse struct {
	Logits map[string][]float64 `json:"logits"`
}

// HTTPRerankClient 通过 HTTP 调用重排模型服务。
type HTTPRerankClient struct {
	cfg    ModelClientConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPRerankClient 创建 HTTP 重排客户端。
func NewHTTPRerankClient(cfg ModelClientConfig, logger *zap.Logger) *HTTPRerankClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPRerankClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "rerank_client")),
	}
}

// Predict 实现 RerankClient。
func (c *HTTPRerankClient) Predict(ctx context.Context, examples []*types.Example) error {
	if len(examples) == 0 {
		return nil
	}

	start := time.Now()
	var resp rerankResponse
	if err := postJSON(ctx, c.client, c.cfg.Endpoint, map[string]any{"examples": examples}, &resp); err != nil {
		return types.NewError(types.ErrModelUnavailable, "rerank predict request failed").
			WithCause(err).WithRetryable(true)
	}

	if err := EnrichRerank(examples, resp.Logits); err != nil {
		return err
	}

	c.logger.Info("rerank predict completed",
		zap.Int("examples", len(examples)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// EnrichRerank 把重排输出的正类 logit 写回候选。
func EnrichRerank(examples []*types.Example, logits map[string][]float64) error {
	for _, e := range examples {
		key := strconv.Itoa(e.QuestionID)
		pair, ok := logits[key]
		if !ok || len(pair) < 2 {
			return types.NewError(types.ErrAdapterContract,
				fmt.Sprintf("rerank logits missing candidate %d", e.QuestionID))
		}
		e.RerankLogits = pair[1]
		e.HasRerank = true
	}
	return nil
}
