// Package feed is the HTTP and websocket client for the social feed API.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
)

// Config locates the feed API.
type Config struct {
	BaseURL   string  `mapstructure:"base_url"`
	StreamURL string  `mapstructure:"stream_url"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second, 0 for unlimited
	Burst     int     `mapstructure:"burst"`
	Timeout   time.Duration
}

// Client is one authenticated handle. It implements session.Transport.
type Client struct {
	cfg     Config
	creds   session.Credentials
	http    *http.Client
	limiter *rate.Limiter
}

// NewDialer returns a session.Dialer producing Clients. All clients from one
// dialer share a rate limiter.
func NewDialer(cfg Config) session.Dialer {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return func(ctx context.Context, creds session.Credentials) (session.Transport, error) {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: feed base_url is not set", model.ErrConfiguration)
		}
		return &Client{
			cfg:     cfg,
			creds:   creds,
			http:    &http.Client{Timeout: cfg.Timeout},
			limiter: limiter,
		}, nil
	}
}

type wireAuthor struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

type wireItem struct {
	ID          string     `json:"id"`
	Author      wireAuthor `json:"author"`
	Text        string     `json:"text"`
	InReplyToID string     `json:"in_reply_to_id,omitempty"`
	Lang        string     `json:"lang,omitempty"`
	Reshare     bool       `json:"reshare,omitempty"`
	Reshares    int        `json:"reshare_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type searchResponse struct {
	Items []wireItem `json:"items"`
}

func (w wireItem) toModel() model.Item {
	return model.Item{
		ID:           w.ID,
		AuthorID:     w.Author.ID,
		AuthorHandle: w.Author.Handle,
		AuthorName:   w.Author.Name,
		Text:         w.Text,
		InReplyToID:  w.InReplyToID,
		Lang:         w.Lang,
		Reshare:      w.Reshare,
		ReshareCount: w.Reshares,
		CreatedAt:    w.CreatedAt,
	}
}

type postRequest struct {
	Text            string `json:"text"`
	InReplyToID     string `json:"in_reply_to_id,omitempty"`
	InReplyToAuthor string `json:"in_reply_to_author,omitempty"`
}

// Authenticate calls the verify-credentials endpoint.
func (c *Client) Authenticate(ctx context.Context) (model.Identity, error) {
	var a wireAuthor
	if err := c.do(ctx, http.MethodGet, "/account/verify_credentials", nil, &a); err != nil {
		return model.Identity{}, err
	}
	return model.Identity{ID: a.ID, Handle: a.Handle, Name: a.Name}, nil
}

// LookupItem fetches one item by id.
func (c *Client) LookupItem(ctx context.Context, id string) (model.Item, error) {
	var w wireItem
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, &w); err != nil {
		return model.Item{}, err
	}
	return w.toModel(), nil
}

// Publish creates a top-level item.
func (c *Client) Publish(ctx context.Context, text string) (model.PostedItem, error) {
	return c.post(ctx, postRequest{Text: text})
}

// Reply creates an item answering inReplyToID.
func (c *Client) Reply(ctx context.Context, text, inReplyToID, inReplyToAuthor string) (model.PostedItem, error) {
	return c.post(ctx, postRequest{Text: text, InReplyToID: inReplyToID, InReplyToAuthor: inReplyToAuthor})
}

// Search queries recent items matching q.
func (c *Client) Search(ctx context.Context, q session.SearchQuery) ([]model.Item, error) {
	params := url.Values{"q": {q.Term}}
	if q.Lang != "" {
		params.Set("lang", q.Lang)
	}
	if q.SinceID != "" {
		params.Set("since_id", q.SinceID)
	}
	if q.Limit > 0 {
		params.Set("count", strconv.Itoa(q.Limit))
	}
	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	items := make([]model.Item, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, w.toModel())
	}
	return items, nil
}

// Reshare re-posts item id.
func (c *Client) Reshare(ctx context.Context, id string) (model.PostedItem, error) {
	var w wireItem
	if err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(id)+"/reshare", nil, &w); err != nil {
		return model.PostedItem{}, err
	}
	created := w.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return model.PostedItem{ID: w.ID, Text: w.Text, CreatedAt: created}, nil
}

func (c *Client) post(ctx context.Context, req postRequest) (model.PostedItem, error) {
	var w wireItem
	if err := c.do(ctx, http.MethodPost, "/items", req, &w); err != nil {
		return model.PostedItem{}, err
	}
	created := w.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return model.PostedItem{ID: w.ID, Text: w.Text, InReplyToID: w.InReplyToID, CreatedAt: created}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req.Header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", model.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp, method, path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", model.ErrTransient, path, err)
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	h.Set("Authorization", "Bearer "+c.creds.AccessToken)
	if c.creds.ConsumerKey != "" {
		h.Set("X-Consumer-Key", c.creds.ConsumerKey)
	}
}

// statusError maps a non-2xx response to the matching sentinel.
func statusError(resp *http.Response, method, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(msg))
	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = model.ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		sentinel = model.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		sentinel = model.ErrTransient
	default:
		sentinel = errors.New("request rejected")
	}
	return fmt.Errorf("%w: %s %s: %d %s", sentinel, method, path, resp.StatusCode, detail)
}
