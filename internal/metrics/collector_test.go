package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// promauto 注册到全局 registry，每个测试用独立 namespace 避免冲突。
func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.pipelineStageTotal)
	assert.NotNil(t, collector.crawlFetchTotal)
}

// nil Collector 是合法的"不采集"状态，记录方法必须安全。
func TestCollector_NilReceiver(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RecordHTTPRequest("POST", "/api/chat", 200, time.Millisecond)
		collector.RecordPipelineStage("mrc", "ok", time.Millisecond)
		collector.RecordAnswerCandidates("chat", 5)
		collector.RecordCrawlFetch("ok")
		collector.RecordCacheHit("page")
		collector.RecordCacheMiss("answer")
	})
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/chat", 200, 120*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/api/chat", 200, 80*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/api/chat", 500, 10*time.Millisecond)

	count := testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/chat", "2xx"))
	assert.Equal(t, 2.0, count)
	count = testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/chat", "5xx"))
	assert.Equal(t, 1.0, count)
}

func TestCollector_RecordPipelineStage(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordPipelineStage("mrc", "ok", 300*time.Millisecond)
	collector.RecordPipelineStage("mrc", "error", 50*time.Millisecond)
	collector.RecordPipelineStage("rerank", "ok", 100*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.pipelineStageTotal.WithLabelValues("mrc", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.pipelineStageTotal.WithLabelValues("mrc", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.pipelineStageTotal.WithLabelValues("rerank", "ok")))
}

func TestCollector_RecordCrawlFetch(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCrawlFetch("ok")
	collector.RecordCrawlFetch("ok")
	collector.RecordCrawlFetch("error")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.crawlFetchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.crawlFetchTotal.WithLabelValues("error")))
}

func TestCollector_RecordCache(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCacheHit("page")
	collector.RecordCacheMiss("page")
	collector.RecordCacheMiss("page")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("page")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("page")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(99))
}
