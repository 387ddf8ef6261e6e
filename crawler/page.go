package crawler

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/duqa-project/duqa/internal/cache"
	"github.com/duqa-project/duqa/internal/pool"
)

// fetchContent 下载一个命中页面并抽取正文。
// 命中缓存直接返回；否则经 worker pool 下载，成功后回写缓存。
func (s *SearchCrawler) fetchContent(ctx context.Context, link string) (string, error) {
	if s.cache != nil {
		if content, err := s.cache.Get(ctx, cache.PageKey(link)); err == nil {
			s.logger.Debug("page cache hit", zap.String("url", link))
			s.metrics.RecordCacheHit("page")
			return content, nil
		} else if cache.IsCacheMiss(err) {
			s.metrics.RecordCacheMiss("page")
		} else {
			s.logger.Warn("page cache unavailable", zap.Error(err))
		}
	}

	var content string
	err := s.fetch.SubmitWait(ctx, func(taskCtx context.Context) error {
		doc, fetchErr := s.fetchDocument(taskCtx, link)
		if fetchErr != nil {
			return fetchErr
		}
		content = extractContent(doc)
		return nil
	})
	if err != nil {
		s.metrics.RecordCrawlFetch("error")
		return "", err
	}
	s.metrics.RecordCrawlFetch("ok")

	if s.cache != nil && content != "" {
		if err := s.cache.Set(ctx, cache.PageKey(link), content, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("page cache write failed", zap.Error(err))
		}
	}
	return content, nil
}

// extractContent 抽取页面正文：优先取段落文本，页面没有 <p> 时
// 退化为整个 body 的文本。非空行去掉首尾空白后用全角句号连接，
// 与语料正文的句读风格保持一致。
func extractContent(doc *goquery.Document) string {
	raw := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(raw)

	paragraphs := doc.Find("p")
	if paragraphs.Length() > 0 {
		paragraphs.Each(func(i int, sel *goquery.Selection) {
			raw.WriteString(sel.Text())
			raw.WriteString("\n")
		})
	} else {
		raw.WriteString(doc.Find("body").Text())
	}

	var lines []string
	for _, line := range strings.Split(raw.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "。")
}
