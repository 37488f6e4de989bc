// Package inbox is a Go client for the notification pipeline. It keeps a
// local, reactive view of a user's inbox: pages fetched over HTTP merged with
// deltas pushed over the SSE stream, with optimistic read-state updates that
// roll back when the server rejects them.
package inbox

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
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the server reports the notification does not
// exist (or is not owned by the authenticated user).
var ErrNotFound = errors.New("inbox: notification not found")

// Notification mirrors the server's notification resource.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	ActionURL *string         `json:"action_url,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Pagination mirrors the server's pagination envelope.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// Page is one fetched page of the inbox plus the unfiltered unread count the
// server returns alongside it.
type Page struct {
	Items       []Notification
	UnreadCount int64
	Pagination  Pagination
}

type listEnvelope struct {
	Data struct {
		Items       []Notification `json:"items"`
		UnreadCount int64          `json:"unread_count"`
	} `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type countEnvelope struct {
	Data struct {
		Count int64 `json:"count"`
	} `json:"data"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a thin HTTP client for the notification API. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL (e.g.
// "https://api.example.com/api/v1") and bearer token.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// ListPage fetches one page of notifications, newest first.
func (c *Client) ListPage(ctx context.Context, page, pageSize int) (*Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var envelope listEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &envelope); err != nil {
		return nil, err
	}
	return &Page{
		Items:       envelope.Data.Items,
		UnreadCount: envelope.Data.UnreadCount,
		Pagination:  envelope.Pagination,
	}, nil
}

// UnreadCount fetches the authoritative unread count.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var envelope countEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", nil, &envelope); err != nil {
		return 0, err
	}
	return envelope.Data.Count, nil
}

// MarkRead marks a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/"+id.String()+"/mark-read", nil, nil)
}

// MarkAllRead marks every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
}

// Delete removes a notification.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/notifications/"+id.String(), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("inbox: encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("inbox: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inbox: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode >= 400 {
		var apiErr apiErrorBody
		if decodeErr := json.NewDecoder(res.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return fmt.Errorf("inbox: %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("inbox: %s %s: unexpected status %d", method, path, res.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("inbox: decoding response: %w", err)
		}
	}
	return nil
}
