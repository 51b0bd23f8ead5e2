// Package quail is a client for the Quail HTTP API.
package quail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/starford/quailpub/internal/frontmatter"
)

// DefaultBaseURL is the public Quail API.
const DefaultBaseURL = "https://api.quail.ink"

const maxResponseSize = 4 << 20

// Client talks to the Quail API on behalf of one API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Post is the server's view of a post.
type Post struct {
	ID          int64      `json:"id,omitempty"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Attachment is an uploaded file.
type Attachment struct {
	ViewURL string `json:"view_url"`
}

// CreatePost creates or updates the post identified by payload.Slug.
func (c *Client) CreatePost(ctx context.Context, listID string, payload *frontmatter.Payload) (*Post, error) {
	var post Post
	if err := c.doJSON(ctx, http.MethodPost, listPath(listID, "posts"), payload, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// PublishPost makes a saved post public.
func (c *Client) PublishPost(ctx context.Context, listID, slug string) (*Post, error) {
	return c.postAction(ctx, listID, slug, "publish")
}

// UnpublishPost hides a published post.
func (c *Client) UnpublishPost(ctx context.Context, listID, slug string) (*Post, error) {
	return c.postAction(ctx, listID, slug, "unpublish")
}

// DeliverPost sends a published post to the list's subscribers.
func (c *Client) DeliverPost(ctx context.Context, listID, slug string) (*Post, error) {
	return c.postAction(ctx, listID, slug, "deliver")
}

func (c *Client) postAction(ctx context.Context, listID, slug, action string) (*Post, error) {
	var post Post
	p := listPath(listID, "posts", slug, action)
	if err := c.doJSON(ctx, http.MethodPut, p, nil, &post); err != nil {
		return nil, err
	}
	if post.Slug == "" {
		post.Slug = slug
	}
	return &post, nil
}

// GenerateFrontmatter asks the composer to suggest slug, summary and tags
// for a draft.
func (c *Client) GenerateFrontmatter(ctx context.Context, title, content string) (*frontmatter.Suggestion, error) {
	req := struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}{title, content}
	var s frontmatter.Suggestion
	if err := c.doJSON(ctx, http.MethodPost, "/composer/frontmatter", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UploadAttachment uploads data as a multipart "file" field.
func (c *Client) UploadAttachment(ctx context.Context, data []byte, mimeType, name string) (*Attachment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("quail: create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("quail: write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("quail: close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/attachments", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var att Attachment
	if err := c.do(req, &att); err != nil {
		return nil, err
	}
	if att.ViewURL == "" {
		return nil, fmt.Errorf("quail: upload %s: empty view_url", name)
	}
	return &att, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("quail: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, p, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, fmt.Errorf("quail: build request: %w", err)
	}
	req.Header.Set("X-QUAIL-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// envelope wraps every Quail response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("quail: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("quail request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("quail: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("quail: decode response: %w", err)
	}
	if env.Code != 0 || resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("quail: decode data: %w", err)
	}
	return nil
}

func listPath(listID string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, "", "lists", url.PathEscape(listID))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
