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

const pollinationsURL = "https://text.pollinations.ai/openai"

type PollinationsProvider struct {
	url    string
	model  string
	client *http.Client
	pace   *pacer.Limiter
}

func NewPollinationsProvider(model string) *PollinationsProvider {
	if model == "" {
		model = "openai"
	}
	return &PollinationsProvider{
		url:    pollinationsURL,
		model:  model,
		client: &http.Client{Timeout: 25 * time.Second},
		pace:   pacer.New(1, 1, 3, 1, 0.5),
	}
}

func (p *PollinationsProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	data, err := json.Marshal(map[string]any{
		"model":       p.model,
		"messages":    messages,
		"temperature": 1,
		"private":     true,
	})
	if err != nil {
		return "", err
	}
	if err := p.pace.Wait(ctx); err != nil {
		return "", err
	}
	reply, err := p.post(ctx, data)
	p.pace.Observe(err)
	return reply, err
}

func (p *PollinationsProvider) post(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &pacer.StatusError{Code: resp.StatusCode, Body: truncate(body)}
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("pollinations returned html")
	}

	var parsed chatCompletion
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("pollinations empty choices")
	}

	reply := cleanReply(parsed.Choices[0].Message.Content)
	if isGarbageResponse(reply) {
		return "", fmt.Errorf("pollinations returned garbage")
	}
	return reply, nil
}
