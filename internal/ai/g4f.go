package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/WickedDevTeam/discord-agent/pkg/pacer"
)

type G4FProvider struct {
	baseURL string
	model   string
	client  *http.Client
	pace    *pacer.Limiter
}

// NewG4FProvider picks the endpoint from the model prefix:
//
//	gpt-oss-120b
//	groq/qwen/qwen3-32b
//	ollama/gpt-oss:20b
func NewG4FProvider(model string) *G4FProvider {
	if model == "" {
		model = "gpt-oss-120b"
	}
	var base string
	switch {
	case strings.HasPrefix(model, "groq/"):
		base = "https://g4f.dev/api/groq"
		model = strings.TrimPrefix(model, "groq/")
	case strings.HasPrefix(model, "ollama/"):
		base = "https://g4f.dev/api/ollama"
		model = strings.TrimPrefix(model, "ollama/")
	default:
		base = "https://g4f.dev/api/gpt-oss-120b"
	}
	return &G4FProvider{
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
		pace:    pacer.New(1, 1, 4, 1, 0.5),
	}
}

func (p *G4FProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":    p.model,
		"messages": messages,
	})
	if err != nil {
		return "", err
	}
	if err := p.pace.Wait(ctx); err != nil {
		return "", err
	}
	reply, err := p.post(ctx, body)
	p.pace.Observe(err)
	return reply, err
}

func (p *G4FProvider) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &pacer.StatusError{Code: resp.StatusCode, Body: truncate(respBody)}
	}

	var parsed chatCompletion
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal: %w body=%s", err, truncate(respBody))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("g4f: empty choices")
	}
	return cleanReply(parsed.Choices[0].Message.Content), nil
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
