package segment

import (
	"go.uber.org/zap"

	"github.com/yanyiwu/gojieba"
)

// JiebaSegmenter 基于 gojieba 的分词器，在线抓取与离线预处理共用。
// 实例持有 C++ 侧词典资源，进程内复用一个实例并在退出时 Close。
type JiebaSegmenter struct {
	jieba  *gojieba.Jieba
	logger *zap.Logger
}

// NewJiebaSegmenter 创建 jieba 分词器。paths 可指定自定义词典路径，
// 缺省使用 gojieba 内置词典。
func NewJiebaSegmenter(logger *zap.Logger, paths ...string) *JiebaSegmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JiebaSegmenter{
		jieba:  gojieba.NewJieba(paths...),
		logger: logger,
	}
}

// Cut 实现 Segmenter，使用 HMM 新词发现。
func (s *JiebaSegmenter) Cut(text string) []string {
	if text == "" {
		return nil
	}
	return s.jieba.Cut(text, true)
}

// Close 释放词典资源。
func (s *JiebaSegmenter) Close() {
	if s.jieba != nil {
		s.jieba.Free()
		s.jieba = nil
	}
}
