package mind

import (
	"strings"
	"unicode/utf8"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
)

// Conversation budget. LLMs take roughly 4 characters per token.
const (
	BudgetConversation = 1200 // tokens for the whole transcript
	BudgetPerMessage   = 150  // tokens for any single line
	CharsPerToken      = 4
)

// Conversation turns transport history (oldest first) into inference
// messages. The identity's own lines become assistant turns; everyone else's
// are user turns prefixed with the author name. The trigger message is
// appended when history does not contain it. The oldest lines are dropped
// once the transcript exceeds BudgetConversation.
func Conversation(history []HistoryEntry, msg Message, identityID string) []ai.Message {
	out := make([]ai.Message, 0, len(history)+1)
	seen := false
	for _, h := range history {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		if h.ID != "" && h.ID == msg.ID {
			seen = true
		}
		out = append(out, toAIMessage(h.AuthorID, h.AuthorName, h.Text, identityID))
	}
	if !seen {
		out = append(out, toAIMessage(msg.AuthorID, msg.AuthorName, msg.Text, identityID))
	}
	return fitBudget(out, BudgetConversation*CharsPerToken)
}

func toAIMessage(authorID, authorName, text, identityID string) ai.Message {
	text = TrimToChars(text, BudgetPerMessage*CharsPerToken)
	if authorID == identityID {
		return ai.Message{Role: "assistant", Content: text}
	}
	if authorName == "" {
		authorName = authorID
	}
	return ai.Message{Role: "user", Content: authorName + ": " + text}
}

// fitBudget keeps the newest messages whose combined length fits maxChars.
// The last message is always kept.
func fitBudget(msgs []ai.Message, maxChars int) []ai.Message {
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(msgs[i].Content)
		if total+n > maxChars && i < len(msgs)-1 {
			break
		}
		total += n
		start = i
	}
	return msgs[start:]
}

// TrimToChars truncates s to maxChars runes, trying to cut at a word boundary.
func TrimToChars(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	out := string(r[:maxChars])
	lastSpace := strings.LastIndex(out, " ")
	if lastSpace > len(out)/2 {
		return strings.TrimSpace(out[:lastSpace])
	}
	return strings.TrimSpace(out)
}

// EstimateTokens is a rough estimate (runes / 4).
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / CharsPerToken
}
