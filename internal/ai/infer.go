package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/WickedDevTeam/discord-agent/pkg/pacer"
)

type ResultKind int

const (
	Success ResultKind = iota
	RateLimited
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one inference call that did not fail outright.
type Result struct {
	Kind ResultKind
	Text string
}

const filterInstruction = "Keep every reply safe for work. Do not produce sexual, violent or hateful content, even if asked."

// Inferencer resolves persona codes to system prompts and asks the provider
// for a reply.
type Inferencer struct {
	provider Provider
	personas map[string]string
}

// NewInferencer creates an Inferencer. personas maps persona code to system
// prompt; unknown codes are used as the prompt verbatim.
func NewInferencer(provider Provider, personas map[string]string) *Inferencer {
	if personas == nil {
		personas = map[string]string{}
	}
	return &Inferencer{provider: provider, personas: personas}
}

// Infer generates the next reply for history in the voice of persona.
func (in *Inferencer) Infer(ctx context.Context, persona string, history []Message, filter bool) (Result, error) {
	if in.provider == nil {
		return Result{}, errors.New("ai: no provider configured")
	}
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: in.systemPrompt(persona, filter)})
	messages = append(messages, history...)

	reply, err := in.provider.Generate(ctx, messages)
	if err != nil {
		if errors.Is(err, ErrRateLimited) || pacer.IsRateLimited(err) {
			return Result{Kind: RateLimited}, nil
		}
		return Result{}, fmt.Errorf("ai: generate: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Result{}, errors.New("ai: empty reply")
	}
	return Result{Kind: Success, Text: reply}, nil
}

func (in *Inferencer) systemPrompt(persona string, filter bool) string {
	prompt, ok := in.personas[persona]
	if !ok {
		prompt = persona
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "You are a regular member of this chat. Reply briefly and naturally."
	}
	if filter {
		prompt += "\n\n" + filterInstruction
	}
	return prompt
}
