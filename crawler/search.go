package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/metrics"
	"github.com/duqa-project/duqa/internal/pool"
	"github.com/duqa-project/duqa/segment"
	"github.com/duqa-project/duqa/types"
)

// Config 抓取层配置。
type Config struct {
	// SearchURL 搜索引擎结果页地址，问题经 wd 参数提交
	SearchURL string `yaml:"search_url" json:"search_url"`
	// NumResults 一次请求最多产出的候选文档数
	NumResults int `yaml:"num_results" json:"num_results"`
	// MaxPages 最多翻阅的结果页数
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// UserAgent 抓取请求携带的 UA
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// Timeout 单次 HTTP 请求超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// RatePerSecond 对外请求限速
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
	// RateBurst 限速突发额度
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
	// CacheTTL 页面正文缓存时长，0 用缓存默认值
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	// Fetch 页面下载 worker pool 配置
	Fetch pool.WorkerPoolConfig `yaml:"fetch" json:"fetch"`
}

// DefaultConfig 返回默认抓取配置。
func DefaultConfig() Config {
	return Config{
		SearchURL:     "https://www.baidu.com/s",
		NumResults:    5,
		MaxPages:      10,
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/86.0.4240.198 Safari/537.36",
		Timeout:       10 * time.Second,
		RatePerSecond: 2,
		RateBurst:     4,
		CacheTTL:      10 * time.Minute,
		Fetch:         pool.DefaultWorkerPoolConfig(),
	}
}

// searchResult 是结果页上解析出的一条命中。
type searchResult struct {
	title    string
	abstract string
	link     string
}

// SearchCrawler 基于搜索引擎结果页的抓取器。
type SearchCrawler struct {
	cfg     Config
	client  *http.Client
	seg     segment.Segmenter
	fetch   *pool.WorkerPool
	limiter *rate.Limiter
	cache   *cache.Manager
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewSearchCrawler 创建抓取器。pageCache 可为 nil，表示不缓存页面；
// collector 可为 nil，表示不上报指标。
func NewSearchCrawler(cfg Config, seg segment.Segmenter, pageCache *cache.Manager, collector *metrics.Collector, logger *zap.Logger) *SearchCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultConfig().NumResults
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultConfig().RatePerSecond
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultConfig().RateBurst
	}
	return &SearchCrawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		seg:     seg,
		fetch:   pool.NewWorkerPool(cfg.Fetch),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cache:   pageCache,
		metrics: collector,
		logger:  logger.With(zap.String("component", "crawler")),
	}
}

// Close 释放抓取器持有的 worker pool。
func (s *SearchCrawler) Close() {
	s.fetch.Close()
}

// Crawl 实现 pipeline.Crawler：检索并抓取候选文档，
// 按搜索排名升序返回，QuestionID 从 1 递增。
func (s *SearchCrawler) Crawl(ctx context.Context, query string) ([]*types.Example, error) {
	start := time.Now()

	results, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			content, fetchErr := s.fetchContent(gctx, r.link)
			if fetchErr != nil {
				// 单页失败丢弃该候选，其余照常
				s.logger.Warn("page fetch failed",
					zap.String("url", r.link), zap.Error(fetchErr))
				return nil
			}
			contents[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	examples := make([]*types.Example, 0, s.cfg.NumResults)
	for i, r := range results {
		if contents[i] == "" {
			continue
		}
		abstract := r.abstract
		if abstract == "" {
			abstract = truncateRunes(contents[i], 100)
		}
		examples = append(examples, &types.Example{
			QuestionID: len(examples) + 1,
			Question:   query,
			Title:      r.title,
			Abstract:   abstract,
			SourceLink: r.link,
			Content:    contents[i],
			DocTokens:  s.seg.Cut(contents[i]),
		})
		if len(examples) >= s.cfg.NumResults {
			break
		}
	}

	s.logger.Info("crawl completed",
		zap.String("query", query),
		zap.Int("hits", len(results)),
		zap.Int("documents", len(examples)),
		zap.Duration("duration", time.Since(start)))
	return examples, nil
}

// search 翻阅结果页直到凑够候选或翻完 MaxPages。
func (s *SearchCrawler) search(ctx context.Context, query string) ([]searchResult, error) {
	var results []searchResult
	seen := map[string]struct{}{}

	for pn := 0; pn < s.cfg.MaxPages && len(results) < s.cfg.NumResults; pn++ {
		pageURL := fmt.Sprintf("%s?wd=%s&pn=%d", s.cfg.SearchURL, url.QueryEscape(query), pn*10)

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, types.NewError(types.ErrCrawlFailed, "search page fetch failed").
				WithCause(err).WithRetryable(true)
		}

		page := parseResultPage(doc)
		if len(page) == 0 {
			break
		}
		for _, r := range page {
			if _, ok := seen[r.link]; ok {
				continue
			}
			seen[r.link] = struct{}{}
			results = append(results, r)
			if len(results) >= s.cfg.NumResults {
				break
			}
		}
	}
	return results, nil
}

// parseResultPage 解析一张搜索结果页的命中块。
// 摘要先找常规位置，精准回答卡片退而取 c-gap-right-small。
func parseResultPage(doc *goquery.Document) []searchResult {
	var results []searchResult
	doc.Find("div.result").Each(func(i int, sel *goquery.Selection) {
		anchor := sel.Find("a").First()
		link, ok := anchor.Attr("href")
		if !ok || !strings.HasPrefix(link, "http") {
			return
		}

		abstract := strings.TrimSpace(sel.Find("div.c-abstract").First().Text())
		if abstract == "" {
			abstract = strings.TrimSpace(sel.Find("span.c-gap-right-small").First().Text())
		}

		results = append(results, searchResult{
			title:    strings.ReplaceAll(strings.TrimSpace(anchor.Text()), "\"", ""),
			abstract: strings.ReplaceAll(abstract, "\"", ""),
			link:     link,
		})
	})
	return results
}

func (s *SearchCrawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
