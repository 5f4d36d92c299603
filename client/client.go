// Package client talks to the card store over its HTTP contract.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"kanban-board/domain"
)

// StatusError is returned when the card store answers with anything but 200.
// Message holds the decoded JSON string body when there is one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("card store returned %d: %s", e.Code, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for the card store rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCards returns every stored card. An empty store yields a nil slice.
func (c *Client) ListCards(ctx context.Context) ([]domain.Card, error) {
	var cards []domain.Card
	if err := c.do(ctx, http.MethodGet, "/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard returns nil without error when the card does not exist.
func (c *Client) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	var card *domain.Card
	if err := c.do(ctx, http.MethodGet, "/cards/"+url.PathEscape(id), nil, &card); err != nil {
		return nil, err
	}
	return card, nil
}

// PutCard upserts the card through PUT /cards.
func (c *Client) PutCard(ctx context.Context, card domain.Card) error {
	return c.do(ctx, http.MethodPut, "/cards", card, nil)
}

// PostCard upserts the card through POST /cards.
func (c *Client) PostCard(ctx context.Context, card domain.Card) error {
	return c.do(ctx, http.MethodPost, "/cards", card, nil)
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var msg string
	if err := sonic.Unmarshal(body, &msg); err == nil {
		return msg
	}
	return strings.TrimSpace(string(body))
}
