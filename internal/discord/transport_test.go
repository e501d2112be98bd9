package discord

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WickedDevTeam/discord-agent/internal/media"
	"github.com/WickedDevTeam/discord-agent/internal/mind"
)

type fakeAPI struct {
	sent      []*discordgo.MessageSend
	sendErr   error
	typing    []string
	perms     int64
	permsErr  error
	messages  []*discordgo.Message
	limit     int
	channel   *discordgo.Channel
	permCalls int
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, data)
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeAPI) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.typing = append(f.typing, channelID)
	return nil
}

func (f *fakeAPI) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	f.permCalls++
	return f.perms, f.permsErr
}

func (f *fakeAPI) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.limit = limit
	return f.messages, nil
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channel == nil {
		return nil, errors.New("unknown channel")
	}
	return f.channel, nil
}

func testSession(api *fakeAPI) *Session {
	return &Session{cfg: mind.IdentityConfig{ID: "bot-a"}, api: api, log: zerolog.Nop()}
}

func TestSendReply_SplitsAndReferencesFirstChunk(t *testing.T) {
	api := &fakeAPI{}
	s := testSession(api)
	content := strings.Repeat("word ", 600)

	err := s.SendReply(context.Background(), "c1", mind.Reply{
		Content:    content,
		ReplyTo:    "m1",
		Attachment: &media.Item{ID: "img", Payload: []byte("png")},
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 2)

	first, second := api.sent[0], api.sent[1]
	require.NotNil(t, first.Reference)
	assert.Equal(t, "m1", first.Reference.MessageID)
	require.Len(t, first.Files, 1)
	assert.Equal(t, "img.png", first.Files[0].Name)
	payload, err := io.ReadAll(first.Files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "png", string(payload))

	assert.Nil(t, second.Reference)
	assert.Empty(t, second.Files)
	assert.LessOrEqual(t, len(first.Content), MessageLimit)
}

func TestSendReply_PlainMessage(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, testSession(api).SendReply(context.Background(), "c1", mind.Reply{Content: "hello"}))
	require.Len(t, api.sent, 1)
	assert.Nil(t, api.sent[0].Reference)
	assert.Equal(t, "hello", api.sent[0].Content)
}

func TestSendReply_Errors(t *testing.T) {
	s := testSession(&fakeAPI{})
	assert.Error(t, s.SendReply(context.Background(), "c1", mind.Reply{Content: "  "}))

	boom := errors.New("forbidden")
	s = testSession(&fakeAPI{sendErr: boom})
	assert.ErrorIs(t, s.SendReply(context.Background(), "c1", mind.Reply{Content: "hi"}), boom)
}

func TestFetchHistory(t *testing.T) {
	api := &fakeAPI{messages: []*discordgo.Message{
		{ID: "2", Content: "newer", Author: &discordgo.User{ID: "u1", Username: "a"}},
		{ID: "1", Content: "older", Author: &discordgo.User{ID: "u1", Username: "a"}},
	}}
	got, err := testSession(api).FetchHistory(context.Background(), "c1", 500)
	require.NoError(t, err)
	assert.Equal(t, 100, api.limit)
	require.Len(t, got, 2)
	assert.Equal(t, "older", got[0].Text)
}

func TestHasPermission(t *testing.T) {
	api := &fakeAPI{perms: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages}
	assert.True(t, testSession(api).HasPermission(context.Background(), "c1", "bot-a"))

	api = &fakeAPI{perms: discordgo.PermissionViewChannel}
	assert.False(t, testSession(api).HasPermission(context.Background(), "c1", "bot-a"))

	api = &fakeAPI{permsErr: errors.New("missing access")}
	assert.False(t, testSession(api).HasPermission(context.Background(), "c1", "bot-a"))

	api = &fakeAPI{channel: &discordgo.Channel{ID: "dm", Type: discordgo.ChannelTypeDM}}
	assert.True(t, testSession(api).HasPermission(context.Background(), "dm", "bot-a"))
	assert.Zero(t, api.permCalls)
}

func TestShowTyping(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, testSession(api).ShowTyping(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, api.typing)
}
