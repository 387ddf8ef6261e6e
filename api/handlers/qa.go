package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/internal/metrics"
	"github.com/duqa-project/duqa/pipeline"
	"github.com/duqa-project/duqa/types"
)

// =============================================================================
// 💬 问答 Handler
// =============================================================================

// AnswerService 是问答编排器暴露给 HTTP 层的能力。
type AnswerService interface {
	Answer(ctx context.Context, query string) ([]*pipeline.Result, error)
	AnswerWithDoc(ctx context.Context, queries []string, doc string) ([]*pipeline.Result, error)
	AnswerDocQA(ctx context.Context, query string, docs []string) ([]*pipeline.Result, error)
}

// QAHandler 问答请求处理器
type QAHandler struct {
	service AnswerService
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewQAHandler 创建问答处理器。collector 可为 nil。
func NewQAHandler(service AnswerService, collector *metrics.Collector, logger *zap.Logger) *QAHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAHandler{
		service: service,
		metrics: collector,
		logger:  logger.With(zap.String("component", "qa_handler")),
	}
}

// ChatRequest 检索问答请求
type ChatRequest struct {
	Message string `json:"message"`
}

// DocRequest 固定文档多问请求
type DocRequest struct {
	Query []string `json:"query"`
	Doc   string   `json:"doc"`
}

// DocQARequest 单问多文档请求
type DocQARequest struct {
	Query string   `json:"query"`
	Docs  []string `json:"docs"`
}

// HandleChat 处理 /api/chat：对开放域问题跑完整检索问答流水线。
// POST 从 body 的 message 取问题，GET 从 query 参数取。
func (h *QAHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var query string
	switch r.Method {
	case http.MethodPost:
		var req ChatRequest
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
		query = req.Message
	case http.MethodGet:
		query = r.URL.Query().Get("query")
	default:
		WriteFailure(w, types.NewError(types.ErrInvalidRequest, "method not allowed").
			WithHTTPStatus(http.StatusMethodNotAllowed), h.logger)
		return
	}

	if query == "" {
		WriteFailure(w, types.NewError(types.ErrInvalidRequest, "query is empty"), h.logger)
		return
	}

	start := time.Now()
	results, err := h.service.Answer(r.Context(), query)
	h.observe("chat", len(results), start, err)
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}
	WriteResults(w, results)
}

// HandleDoc 处理 /api/doc：多个问题对同一篇给定文档作答。
func (h *QAHandler) HandleDoc(w http.ResponseWriter, r *http.Request) {
	var req DocRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	results, err := h.service.AnswerWithDoc(r.Context(), req.Query, req.Doc)
	h.observe("doc", len(results), start, err)
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}
	WriteResults(w, results)
}

// HandleDocQA 处理 /api/doc_qa：一个问题对多篇给定文档逐篇作答。
func (h *QAHandler) HandleDocQA(w http.ResponseWriter, r *http.Request) {
	var req DocQARequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	results, err := h.service.AnswerDocQA(r.Context(), req.Query, req.Docs)
	h.observe("doc_qa", len(results), start, err)
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}
	WriteResults(w, results)
}

func (h *QAHandler) observe(endpoint string, candidates int, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.RecordPipelineStage(endpoint, status, time.Since(start))
	if err == nil {
		h.metrics.RecordAnswerCandidates(endpoint, candidates)
	}
}
