package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

const speakPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages

// HasPermission reports whether identityID may post in channelID. Direct
// channels are always allowed; lookup failures count as denial.
func (s *Session) HasPermission(ctx context.Context, channelID, identityID string) bool {
	if ch, err := s.channel(ctx, channelID); err == nil && isDirect(ch.Type) {
		return true
	}
	perms, err := s.api.UserChannelPermissions(identityID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		s.log.Debug().Err(err).Str("channel", channelID).Msg("permission lookup failed")
		return false
	}
	return canSpeak(perms)
}

func canSpeak(perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&speakPermissions == speakPermissions
}

// channel prefers the state cache and falls back to the REST API.
func (s *Session) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if s.dg != nil && s.dg.State != nil {
		if ch, err := s.dg.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return s.api.Channel(channelID, discordgo.WithContext(ctx))
}

func isDirect(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeDM || t == discordgo.ChannelTypeGroupDM
}
