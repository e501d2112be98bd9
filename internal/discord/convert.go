package discord

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

// toMessage converts a Discord message. Messages without a guild are direct
// messages. isAgent reports identities run by this process, which count as
// agents even when their account is not a bot account.
func toMessage(m *discordgo.Message, isAgent func(id string) bool) mind.Message {
	msg := mind.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Direct:    m.GuildID == "",
		Text:      m.Content,
		At:        m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = displayName(m.Author, m.Member)
		msg.AuthorIsAgent = m.Author.Bot || (isAgent != nil && isAgent(m.Author.ID))
	}
	for _, u := range m.Mentions {
		if u != nil {
			msg.Mentions = append(msg.Mentions, u.ID)
		}
	}
	return msg
}

// historyEntries converts a newest-first message page to oldest-first
// history.
func historyEntries(msgs []*discordgo.Message) []mind.HistoryEntry {
	out := make([]mind.HistoryEntry, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Author == nil {
			continue
		}
		out = append(out, mind.HistoryEntry{
			ID:         m.ID,
			AuthorID:   m.Author.ID,
			AuthorName: displayName(m.Author, m.Member),
			Text:       m.Content,
			At:         m.Timestamp,
		})
	}
	return out
}

func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// splitMessage cuts msg into chunks of at most limit bytes, preferring line
// breaks, then spaces, and never splitting a UTF-8 sequence.
func splitMessage(msg string, limit int) []string {
	msg = strings.TrimSpace(msg)
	var result []string
	for len(msg) > limit {
		cut := strings.LastIndex(msg[:limit], "\n")
		if cut <= 0 {
			cut = strings.LastIndex(msg[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
		}
		if cut <= 0 {
			_, cut = utf8.DecodeRuneInString(msg)
		}
		result = append(result, strings.TrimSpace(msg[:cut]))
		msg = strings.TrimSpace(msg[cut:])
	}
	if msg != "" {
		result = append(result, msg)
	}
	return result
}
