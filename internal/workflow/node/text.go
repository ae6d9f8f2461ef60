package node

import (
	"strings"
	"unicode/utf8"
)

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

var promptLabels = []string{"new prompt:", "prompt:", "description:"}

// CleanPromptText 规整模型返回的纯文本提示词：去掉代码块、引号与常见标签前缀
func CleanPromptText(s string) string {
	out := StripCodeFence(s)
	lower := strings.ToLower(out)
	for _, label := range promptLabels {
		if strings.HasPrefix(lower, label) {
			out = strings.TrimSpace(out[len(label):])
			break
		}
	}
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if len(out) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(out, pair[0]) && strings.HasSuffix(out, pair[1]) {
			out = strings.TrimSpace(out[len(pair[0]) : len(out)-len(pair[1])])
			break
		}
	}
	return out
}
