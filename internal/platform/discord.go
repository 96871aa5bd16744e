package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"mudae-tracker/internal/config"
)

const apiBase = "https://discord.com/api/v10"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")
)

// DMClient sends direct messages over the Discord REST API. Opening a DM
// channel requires one extra round trip; channel ids are cached per user.
type DMClient struct {
	token      string
	client     *fasthttp.Client
	channelsMu sync.Mutex
	channels   map[string]string
}

func NewDMClient(cfg *config.Config) *DMClient {
	return &DMClient{
		token: cfg.DiscordToken,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		channels: make(map[string]string),
	}
}

func (c *DMClient) SendDirectMessage(ctx context.Context, userID string, payload DMPayload) error {
	channelID, err := c.openChannel(ctx, userID)
	if err != nil {
		return err
	}

	embed := map[string]any{
		"title":       payload.Title,
		"description": payload.Description,
		"color":       payload.Color,
	}
	if payload.ImageURL != "" {
		embed["image"] = map[string]string{"url": payload.ImageURL}
	} else if payload.ThumbnailURL != "" {
		embed["thumbnail"] = map[string]string{"url": payload.ThumbnailURL}
	}

	body, err := json.Marshal(map[string]any{"embeds": []any{embed}})
	if err != nil {
		return fmt.Errorf("failed to encode message payload: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", apiBase, channelID)
	_, err = c.post(ctx, url, body)
	return err
}

func (c *DMClient) openChannel(ctx context.Context, userID string) (string, error) {
	c.channelsMu.Lock()
	id, ok := c.channels[userID]
	c.channelsMu.Unlock()
	if ok {
		return id, nil
	}

	body, err := json.Marshal(map[string]string{"recipient_id": userID})
	if err != nil {
		return "", fmt.Errorf("failed to encode channel request: %w", err)
	}

	respBody, err := c.post(ctx, apiBase+"/users/@me/channels", body)
	if err != nil {
		return "", err
	}

	var channel struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &channel); err != nil {
		return "", fmt.Errorf("failed to decode channel response: %w", err)
	}
	if channel.ID == "" {
		return "", fmt.Errorf("channel response missing id")
	}

	c.channelsMu.Lock()
	c.channels[userID] = channel.ID
	c.channelsMu.Unlock()
	return channel.ID, nil
}

func (c *DMClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bot "+c.token)
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, url)
	case status == fasthttp.StatusForbidden:
		return nil, ErrForbidden
	case status < 200 || status > 299:
		return nil, fmt.Errorf("discord API error: %d", status)
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}
