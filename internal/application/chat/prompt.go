// Package chat 提供基于文档检索的问答能力
package chat

import (
	"fmt"
	"strings"

	"github.com/shreyan01/ruberic/internal/application/retrieval"
)

const systemPrompt = `You are a helpful documentation assistant. Answer the user's question based on the provided context. If the context does not contain enough information, say so honestly instead of guessing.`

// BuildPromptContext 将召回结果格式化为可直接注入 Prompt 的块。
// 约束：尽量短，不把 score 等调试信息塞进 Prompt。
func BuildPromptContext(matches []retrieval.Match, maxMatches, maxRunesPerMatch int) string {
	if len(matches) == 0 {
		return ""
	}
	if maxMatches <= 0 {
		maxMatches = 5
	}
	if maxRunesPerMatch <= 0 {
		maxRunesPerMatch = 800
	}

	n := len(matches)
	if n > maxMatches {
		n = maxMatches
	}

	lines := make([]string, 0, n+1)
	lines = append(lines, "Context from the documentation:")
	for i := 0; i < n; i++ {
		txt := truncateRunes(compactOneLine(matches[i].Content), maxRunesPerMatch)
		if txt == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, txt))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func compactOneLine(s string) string {
	out := strings.ReplaceAll(s, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.ReplaceAll(out, "\n", " ")
	out = strings.TrimSpace(out)
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
