package mind

import (
	"context"
	"errors"

	"github.com/WickedDevTeam/discord-agent/internal/ai"
	"github.com/WickedDevTeam/discord-agent/internal/media"
)

// ErrNoTransport means a message arrived for an identity that has no
// registered transport.
var ErrNoTransport = errors.New("mind: no transport registered for identity")

// Transport is the chat connection of one identity.
type Transport interface {
	SendReply(ctx context.Context, channelID string, reply Reply) error
	ShowTyping(ctx context.Context, channelID string) error
	HasPermission(ctx context.Context, channelID, identityID string) bool
	FetchHistory(ctx context.Context, channelID string, limit int) ([]HistoryEntry, error)
}

// Inference produces reply text for a conversation.
type Inference interface {
	Infer(ctx context.Context, persona string, history []ai.Message, filter bool) (ai.Result, error)
}

// MediaSource returns one random item per call; nil item means none.
type MediaSource interface {
	FetchRandomItem(ctx context.Context, topics []string, allowAdult bool) (*media.Item, error)
}
