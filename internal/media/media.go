// Package media fetches random images for a topic list from an HTTP media
// source.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/WickedDevTeam/discord-agent/pkg/pacer"
)

// ErrNoItem is returned when the source has nothing for the requested topics.
var ErrNoItem = errors.New("media: no item available")

const maxPayloadBytes = 8 * 1024 * 1024

// Item is one media element ready to be attached to a chat message.
type Item struct {
	ID       string
	Payload  []byte
	Title    string
	Topic    string
	Filename string
}

// Client talks to a media source that exposes
//
//	GET {base}/random?topic=cats&nsfw=false -> {"id","title","topic","url"}
//
// and then downloads the payload from the returned url.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	pace    *pacer.Limiter
	pick    func(n int) int
}

// NewClient creates a Client. An empty baseURL yields an error.
func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("media: base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("media: invalid base url: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		pace:    pacer.New(2, 1, 5, 1, 0.5),
		pick:    rand.IntN,
	}, nil
}

type descriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Topic string `json:"topic"`
	URL   string `json:"url"`
}

// FetchRandomItem returns one random item for a topic chosen uniformly from
// topics. It makes exactly one attempt.
func (c *Client) FetchRandomItem(ctx context.Context, topics []string, allowAdult bool) (*Item, error) {
	if len(topics) == 0 {
		return nil, ErrNoItem
	}
	topic := topics[c.pick(len(topics))]

	if err := c.pace.Wait(ctx); err != nil {
		return nil, err
	}
	d, err := c.describe(ctx, topic, allowAdult)
	if err != nil {
		c.pace.Observe(err)
		return nil, err
	}

	payload, err := c.download(ctx, d.URL)
	c.pace.Observe(err)
	if err != nil {
		return nil, fmt.Errorf("media: download %s: %w", d.ID, err)
	}
	if d.Topic == "" {
		d.Topic = topic
	}
	return &Item{
		ID:       d.ID,
		Payload:  payload,
		Title:    d.Title,
		Topic:    d.Topic,
		Filename: filenameFor(d),
	}, nil
}

func (c *Client) describe(ctx context.Context, topic string, allowAdult bool) (*descriptor, error) {
	q := url.Values{}
	q.Set("topic", topic)
	q.Set("nsfw", fmt.Sprint(allowAdult))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/random?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoItem
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &pacer.StatusError{Code: resp.StatusCode, Body: truncate(body)}
	}

	var d descriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("media: unmarshal: %w", err)
	}
	if d.ID == "" || d.URL == "" {
		return nil, ErrNoItem
	}
	return &d, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &pacer.StatusError{Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayloadBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayloadBytes)
	}
	return data, nil
}

func filenameFor(d *descriptor) string {
	ext := path.Ext(d.URL)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return "image" + ext
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}
