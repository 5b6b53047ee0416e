package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Discord REST API root.
const DefaultBaseURL = "https://discord.com/api/v10"

const userAgent = "DiscordBot (https://github.com/beekhof/discord-event-sync, 1.0)"

// TransportError is returned when a Discord call fails, either because the
// request never completed or because the API answered with a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discord: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("discord: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to the guild channel and scheduled-event endpoints.
// Required bot permissions: VIEW_CHANNEL, MANAGE_EVENTS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	guildID    string
}

type clientOptions struct {
	baseURL  string
	retryPad time.Duration
	timeout  time.Duration
}

// Option customizes a Client.
type Option func(*clientOptions)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimSuffix(u, "/") }
}

// WithTimeout bounds how long each attempt waits for response headers.
// The pause before a rate limit retry is not counted.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetryPad sets the extra delay added to Discord's rate limit reset.
func WithRetryPad(d time.Duration) Option {
	return func(o *clientOptions) { o.retryPad = d }
}

// NewClient creates a client authenticated with a bot token for one guild.
func NewClient(botToken, guildID string, opts ...Option) *Client {
	o := clientOptions{
		baseURL:  DefaultBaseURL,
		retryPad: defaultRetryPad,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// oauth2 renders the header as "<TokenType> <AccessToken>", which is
	// exactly Discord's "Bot <token>" form.
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: botToken,
		TokenType:   "Bot",
	})

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = o.timeout

	return &Client{
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: source,
				Base:   newRateLimitTransport(base, o.retryPad),
			},
		},
		baseURL: o.baseURL,
		guildID: guildID,
	}
}

// ListChannels returns every channel of the guild.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	if err := c.do(ctx, http.MethodGet, c.guildPath("channels"), nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ListScheduledEvents returns every scheduled event of the guild,
// regardless of who created it.
func (c *Client) ListScheduledEvents(ctx context.Context) ([]ScheduledEvent, error) {
	path := c.guildPath("scheduled-events") + "?" + url.Values{"with_user_count": {"false"}}.Encode()
	var events []ScheduledEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateScheduledEvent creates a scheduled event and returns it.
func (c *Client) CreateScheduledEvent(ctx context.Context, payload EventPayload) (ScheduledEvent, error) {
	var created ScheduledEvent
	err := c.do(ctx, http.MethodPost, c.guildPath("scheduled-events"), payload, &created)
	return created, err
}

// UpdateScheduledEvent modifies an existing scheduled event.
func (c *Client) UpdateScheduledEvent(ctx context.Context, id string, payload EventPayload) (ScheduledEvent, error) {
	var updated ScheduledEvent
	err := c.do(ctx, http.MethodPatch, c.guildPath("scheduled-events/"+url.PathEscape(id)), payload, &updated)
	return updated, err
}

// DeleteScheduledEvent deletes a scheduled event. Discord answers 204.
func (c *Client) DeleteScheduledEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.guildPath("scheduled-events/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) guildPath(suffix string) string {
	return "/guilds/" + url.PathEscape(c.guildID) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
