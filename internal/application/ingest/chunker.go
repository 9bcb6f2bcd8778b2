// Package ingest 提供文档摄取流水线
package ingest

import (
	"regexp"
	"strings"
)

// sentenceEnd 句子终结符，连续出现按一个分隔处理
var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Chunker 句子级贪心分块器
// 按句子边界切分后向前累积，预算按句子正文计，
// 句间分隔符与结尾句点不占预算，单块实际长度至多 maxSize+3；
// 超长句子独立成块，不做截断。
// overlap > 0 时把上一块末尾不超过 overlap 个字符的整句
// 追加到下一块开头，此时块长上限相应再加 overlap。
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker 创建分块器，overlap 为 0 时不产生重叠
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

// Split 将文本切分为有序分块
// 每个分块以 "." 收尾；空白文本返回 nil
func (c *Chunker) Split(text string) []string {
	groups := c.group(sentenceEnd.Split(text, -1))
	if len(groups) == 0 {
		return nil
	}

	chunks := make([]string, len(groups))
	for i, g := range groups {
		if i > 0 {
			// 重叠取自上一块的原始句子，避免级联放大
			if carry := c.carryTail(groups[i-1]); len(carry) > 0 {
				g = append(append([]string(nil), carry...), g...)
			}
		}
		chunks[i] = strings.Join(g, ". ") + "."
	}
	return chunks
}

func (c *Chunker) group(sentences []string) [][]string {
	var groups [][]string
	var cur []string
	curLen := 0

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sLen := len([]rune(s))

		if curLen > 0 && curLen+sLen > c.maxSize {
			groups = append(groups, cur)
			cur = nil
			curLen = 0
		}

		if curLen > 0 {
			curLen += 2
		}
		cur = append(cur, s)
		curLen += sLen
	}

	if curLen > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// carryTail 从块尾部取累计长度不超过 overlap 的完整句子
func (c *Chunker) carryTail(group []string) []string {
	if c.overlap <= 0 {
		return nil
	}
	carryLen := 0
	i := len(group)
	for i > 0 {
		sLen := len([]rune(group[i-1]))
		if carryLen > 0 {
			sLen += 2
		}
		if carryLen+sLen > c.overlap {
			break
		}
		carryLen += sLen
		i--
	}
	return group[i:]
}
