package ai

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scorePattern   = regexp.MustCompile(`(?i)(?:Оценка|Score):\s*(\d{1,3})%`)
	leadingPercent = regexp.MustCompile(`^(\d{1,3})%`)
	thinkBlock     = regexp.MustCompile(`(?is)<think>.*?</think>`)
)

// ParseScore extracts a 0..100 percentage from a scoring response. It looks
// for "Оценка: NN%" (or "Score: NN%") first and falls back to a bare "NN%" at the start.
func ParseScore(response string) (int, bool) {
	if m := scorePattern.FindStringSubmatch(response); m != nil {
		if score, ok := validScore(m[1]); ok {
			return score, true
		}
	}
	if m := leadingPercent.FindStringSubmatch(strings.TrimSpace(response)); m != nil {
		if score, ok := validScore(m[1]); ok {
			return score, true
		}
	}
	return 0, false
}

func validScore(digits string) (int, bool) {
	score, err := strconv.Atoi(digits)
	if err != nil || score < 0 || score > 100 {
		return 0, false
	}
	return score, true
}

// RemoveThinkBlocks strips model reasoning enclosed in <think> tags
func RemoveThinkBlocks(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
