package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited is returned by providers when the upstream refuses the call
// because of rate limiting.
var ErrRateLimited = errors.New("ai: rate limited")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider turns a chat transcript into one reply.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// NewProvider returns the provider registered under name.
func NewProvider(name, model string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pollinations":
		return NewPollinationsProvider(model), nil
	case "g4f", "":
		return NewG4FProvider(model), nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", name)
	}
}
