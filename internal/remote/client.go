package remote

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
)

const defaultTimeout = 30 * time.Second

// Client talks to the remote row service over HTTP.
//
// The service exposes /collections and /bookmarks resources scoped by a
// user_id query parameter: GET lists rows for a user, GET with an id path
// segment is a point lookup (404 when absent), POST inserts a full row and
// PATCH updates mutable fields of an existing row.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Store = (*Client)(nil)

// NewClient creates a client for the service at baseURL. The token, if
// non-empty, is sent as a bearer credential on every request.
func NewClient(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// ListCollections implements Store.
func (c *Client) ListCollections(ctx context.Context, userID string) ([]CollectionRow, error) {
	var rows []CollectionRow
	if err := c.do(ctx, http.MethodGet, "/collections", userID, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to list remote collections: %w", err)
	}
	return rows, nil
}

// GetCollection implements Store.
func (c *Client) GetCollection(ctx context.Context, userID, id string) (*CollectionRow, error) {
	var row CollectionRow
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(id), userID, nil, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertCollection implements Store.
func (c *Client) InsertCollection(ctx context.Context, row CollectionRow) error {
	if err := c.do(ctx, http.MethodPost, "/collections", row.UserID, row, nil); err != nil {
		return fmt.Errorf("failed to insert remote collection %s: %w", row.ID, err)
	}
	return nil
}

// UpdateCollection implements Store.
func (c *Client) UpdateCollection(ctx context.Context, row CollectionRow) error {
	path := "/collections/" + url.PathEscape(row.ID)
	if err := c.do(ctx, http.MethodPatch, path, row.UserID, row, nil); err != nil {
		return fmt.Errorf("failed to update remote collection %s: %w", row.ID, err)
	}
	return nil
}

// ListBookmarks implements Store.
func (c *Client) ListBookmarks(ctx context.Context, userID string) ([]BookmarkRow, error) {
	var rows []BookmarkRow
	if err := c.do(ctx, http.MethodGet, "/bookmarks", userID, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to list remote bookmarks: %w", err)
	}
	return rows, nil
}

// GetBookmark implements Store.
func (c *Client) GetBookmark(ctx context.Context, userID, id string) (*BookmarkRow, error) {
	var row BookmarkRow
	if err := c.do(ctx, http.MethodGet, "/bookmarks/"+url.PathEscape(id), userID, nil, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertBookmark implements Store.
func (c *Client) InsertBookmark(ctx context.Context, row BookmarkRow) error {
	if err := c.do(ctx, http.MethodPost, "/bookmarks", row.UserID, row, nil); err != nil {
		return fmt.Errorf("failed to insert remote bookmark %s: %w", row.ID, err)
	}
	return nil
}

// UpdateBookmark implements Store.
func (c *Client) UpdateBookmark(ctx context.Context, row BookmarkRow) error {
	path := "/bookmarks/" + url.PathEscape(row.ID)
	if err := c.do(ctx, http.MethodPatch, path, row.UserID, row, nil); err != nil {
		return fmt.Errorf("failed to update remote bookmark %s: %w", row.ID, err)
	}
	return nil
}

// do performs one request/response round trip. A 404 maps to
// ErrRowNotFound; other non-2xx statuses become errors carrying the body.
func (c *Client) do(ctx context.Context, method, path, userID string, body, out any) error {
	reqURL := c.baseURL + path + "?user_id=" + url.QueryEscape(userID)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrRowNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
