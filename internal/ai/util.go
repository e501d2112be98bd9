package ai

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

func isGarbageResponse(s string) bool {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "<html"), strings.Contains(l, "not allowed"):
		return true
	case len(strings.TrimSpace(s)) < 2:
		return true
	}
	return false
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// cleanReply strips reasoning blocks and wrapping quotes and bounds the length.
func cleanReply(reply string) string {
	reply = thinkBlock.ReplaceAllString(strings.TrimSpace(reply), "")
	reply = strings.TrimSpace(reply)

	if len(reply) >= 2 {
		quotes := []struct{ open, close string }{
			{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"},
		}
		for _, q := range quotes {
			if strings.HasPrefix(reply, q.open) && strings.HasSuffix(reply, q.close) {
				reply = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(reply, q.open), q.close))
				break
			}
		}
	}

	if len(reply) > 2800 {
		reply = reply[:2800]
	}
	return reply
}
