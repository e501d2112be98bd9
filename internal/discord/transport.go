package discord

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/WickedDevTeam/discord-agent/internal/media"
	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

// MessageLimit is the maximum length of one Discord message.
const MessageLimit = 2000

// api is the part of *discordgo.Session the transport uses.
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Session is the mind.Transport of one identity.
type Session struct {
	cfg mind.IdentityConfig
	dg  *discordgo.Session
	api api
	log zerolog.Logger
}

func newSession(cfg mind.IdentityConfig, dg *discordgo.Session, log zerolog.Logger) *Session {
	return &Session{
		cfg: cfg,
		dg:  dg,
		api: dg,
		log: log.With().Str("identity", cfg.ID).Logger(),
	}
}

// SendReply posts reply, split into MessageLimit sized chunks. Only the first
// chunk carries the reply reference and the attachment.
func (s *Session) SendReply(ctx context.Context, channelID string, reply mind.Reply) error {
	chunks := splitMessage(reply.Content, MessageLimit)
	if len(chunks) == 0 && reply.Attachment == nil {
		return fmt.Errorf("discord: empty reply")
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	for i, chunk := range chunks {
		send := &discordgo.MessageSend{
			Content: chunk,
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse:       []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
				RepliedUser: true,
			},
		}
		if i == 0 {
			if reply.ReplyTo != "" {
				send.Reference = &discordgo.MessageReference{MessageID: reply.ReplyTo, ChannelID: channelID}
			}
			if reply.Attachment != nil {
				send.Files = []*discordgo.File{attachmentFile(reply.Attachment)}
			}
		}
		if _, err := s.api.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// ShowTyping triggers the typing indicator in channelID.
func (s *Session) ShowTyping(ctx context.Context, channelID string) error {
	return s.api.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

// FetchHistory returns up to limit recent messages, oldest first.
func (s *Session) FetchHistory(ctx context.Context, channelID string, limit int) ([]mind.HistoryEntry, error) {
	if limit > 100 {
		limit = 100
	}
	msgs, err := s.api.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("channel messages: %w", err)
	}
	return historyEntries(msgs), nil
}

func attachmentFile(item *media.Item) *discordgo.File {
	name := item.Filename
	if name == "" {
		name = item.ID + ".png"
	}
	return &discordgo.File{Name: name, Reader: bytes.NewReader(item.Payload)}
}
