// Package segment 提供中文分词适配。
// 流水线各处通过 Segmenter 接口取词，不感知底层分词实现。
package segment

import "unicode"

// Segmenter 分词器接口。
type Segmenter interface {
	// Cut 将文本切分为词序列。空文本返回 nil。
	Cut(text string) []string
}

// RuneSegmenter 是不依赖外部词典的回退分词器：
// CJK 字符逐字成词，连续的拉丁字母/数字合并为一个词，空白丢弃。
// 精确分词请使用 JiebaSegmenter，本实现用于测试与 jieba 初始化失败时的降级。
type RuneSegmenter struct{}

// NewRuneSegmenter 创建回退分词器。
func NewRuneSegmenter() *RuneSegmenter {
	return &RuneSegmenter{}
}

// Cut 实现 Segmenter。
func (s *RuneSegmenter) Cut(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word = append(word, r)
		}
	}
	flush()
	return tokens
}

// isCJK 判断是否为中日韩统一表意文字或中文标点。
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		(r >= 0x3000 && r <= 0x303f) || // CJK 标点
		(r >= 0xff00 && r <= 0xffef) // 全角符号
}
