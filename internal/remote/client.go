// Package remote talks to a star-dashborg server: the room document over
// HTTP and the broadcast channel over a websocket.
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
	"sync"
	"time"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

var defaultHTTPClient = &http.Client{Timeout: 8 * time.Second}

const defaultCacheTTL = 2 * time.Second

type cachedDoc struct {
	doc models.RoomDocument
	at  time.Time
}

// Client is a room document client. It caches reads briefly; writes and
// socket document frames refresh the cache.
type Client struct {
	baseURL  string
	http     *http.Client
	cacheTTL time.Duration
	socket   *Socket
	now      func() time.Time

	cacheMu sync.RWMutex
	cache   map[string]cachedDoc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption { return func(c *Client) { c.http = h } }

// WithCacheTTL sets how long a fetched document is served from cache. Zero
// disables the cache.
func WithCacheTTL(d time.Duration) ClientOption { return func(c *Client) { c.cacheTTL = d } }

// WithSocket routes document subscriptions through s.
func WithSocket(s *Socket) ClientOption { return func(c *Client) { c.socket = s } }

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     defaultHTTPClient,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		cache:    make(map[string]cachedDoc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func roomPath(room string) string {
	return "/api/rooms/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(room)))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidArgument, "encode request", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var p apperrors.Payload
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Code == "" {
			return apperrors.New(apperrors.CodePersistenceFailure, fmt.Sprintf("api status %d", resp.StatusCode))
		}
		return p.Err()
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("decode %s", path), err)
	}
	return nil
}

// Get fetches the room document.
func (c *Client) Get(ctx context.Context, room string) (models.RoomDocument, error) {
	key := strings.ToUpper(strings.TrimSpace(room))
	if c.cacheTTL > 0 {
		c.cacheMu.RLock()
		hit, ok := c.cache[key]
		c.cacheMu.RUnlock()
		if ok && c.now().Sub(hit.at) < c.cacheTTL {
			return hit.doc, nil
		}
	}
	var doc models.RoomDocument
	if err := c.do(ctx, http.MethodGet, roomPath(room), nil, &doc); err != nil {
		return models.RoomDocument{}, err
	}
	c.remember(key, doc)
	return doc, nil
}

// Update writes the patch and caches the document the server returns.
func (c *Client) Update(ctx context.Context, room string, patch models.DocumentPatch) error {
	var doc models.RoomDocument
	if err := c.do(ctx, http.MethodPatch, roomPath(room), patch, &doc); err != nil {
		return err
	}
	c.remember(strings.ToUpper(strings.TrimSpace(room)), doc)
	return nil
}

// Subscribe registers fn for document changes pushed over the socket.
func (c *Client) Subscribe(room string, fn func(models.RoomDocument)) (func(), error) {
	if c.socket == nil {
		return nil, apperrors.New(apperrors.CodeChannelUnavailable, "no socket attached for document changes")
	}
	key := strings.ToUpper(strings.TrimSpace(room))
	return c.socket.SubscribeDocument(key, func(doc models.RoomDocument) {
		c.remember(key, doc)
		fn(doc)
	})
}

func (c *Client) remember(key string, doc models.RoomDocument) {
	if c.cacheTTL <= 0 {
		return
	}
	c.cacheMu.Lock()
	c.cache[key] = cachedDoc{doc: doc, at: c.now()}
	c.cacheMu.Unlock()
}

// Invalidate drops the cached document of room.
func (c *Client) Invalidate(room string) {
	c.cacheMu.Lock()
	delete(c.cache, strings.ToUpper(strings.TrimSpace(room)))
	c.cacheMu.Unlock()
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/healthz", nil, nil)
}
