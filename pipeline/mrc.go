package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/types"
)

// ModelClientConfig 模型服务客户端配置。
type ModelClientConfig struct {
	// Endpoint 模型服务预测接口地址
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Timeout 单次预测请求超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultModelClientConfig 返回默认模型客户端配置。
func DefaultModelClientConfig(endpoint string) ModelClientConfig {
	return ModelClientConfig{
		Endpoint: endpoint,
		Timeout:  60 * time.Second,
	}
}

// MRCClient 是抽取式阅读理解模型的黑盒适配接口。
// Predict 为每个候选填入答案文本与三项置信度（HasMRC 置真）。
// 输出缺少任何一个输入候选的条目视为适配器损坏，必须报错而非跳过。
type MRCClient interface {
	Predict(ctx context.Context, examples []*types.Example) error
}

// mrcResponse 是 MRC 模型服务的应答体。
// predictions 按候选 id 给出最优答案文本，nbest 给出 top 20 候选片段。
type mrcResponse struct {
	Predictions map[string]string            `json:"predictions"`
	NBest       map[string][]types.NBestSpan `json:"nbest"`
}

// HTTPMRCClient 通过 HTTP 调用 MRC 模型服务。
type HTTPMRCClient struct {
	cfg    ModelClientConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPMRCClient 创建 HTTP MRC 客户端。
func NewHTTPMRCClient(cfg ModelClientConfig, logger *zap.Logger) *HTTPMRCClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPMRCClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "mrc_client")),
	}
}

// Predict 实现 MRCClient。
func (c *HTTPMRCClient) Predict(ctx context.Context, examples []*types.Example) error {
	if len(examples) == 0 {
		return nil
	}

	start := time.Now()
	var resp mrcResponse
	if err := postJSON(ctx, c.client, c.cfg.Endpoint, map[string]any{"examples": examples}, &resp); err != nil {
		return types.NewError(types.ErrModelUnavailable, "mrc predict request failed").
			WithCause(err).WithRetryable(true)
	}

	if err := EnrichMRC(examples, resp.Predictions, resp.NBest); err != nil {
		return err
	}

	c.logger.Info("mrc predict completed",
		zap.Int("examples", len(examples)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// EnrichMRC 把模型输出写回候选：答案文本（去换行去空格）、
// n-best 的 start+end logit 均值、两套概率积的均值。
// 任一候选在输出中缺失即违反适配器契约。
func EnrichMRC(examples []*types.Example, predictions map[string]string, nbest map[string][]types.NBestSpan) error {
	for _, e := range examples {
		key := strconv.Itoa(e.QuestionID)

		answer, ok := predictions[key]
		if !ok {
			return types.NewError(types.ErrAdapterContract,
				fmt.Sprintf("mrc predictions missing candidate %d", e.QuestionID))
		}
		spans, ok := nbest[key]
		if !ok || len(spans) == 0 {
			return types.NewError(types.ErrAdapterContract,
				fmt.Sprintf("mrc nbest missing candidate %d", e.QuestionID))
		}

		var logitSum, probSum, probV1Sum float64
		for _, span := range spans {
			logitSum += span.StartLogit + span.EndLogit
			probSum += span.StartProb * span.EndProb
			probV1Sum += span.StartProbV1 * span.EndProbV1
		}
		n := float64(len(spans))

		e.Answer = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(answer, "\n", ""), " ", ""))
		e.MRCLogits = logitSum / n
		e.MRCProb = probSum / n
		e.MRCProbV1 = probV1Sum / n
		e.HasMRC = true
	}
	return nil
}

// postJSON 发送 JSON 请求并解码 JSON 应答。
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
