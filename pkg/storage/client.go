package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/directauth/pkg/async"
)

// Client is the REST Backend against the hosted storage proxy. Every
// operation resolves a bearer token first and fails fast without one, then
// runs under its class timeout.
type Client struct {
	baseURL string
	appSlug string
	tokens  TokenSource
	client  *http.Client
	cfg     Config
	log     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for storage calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithConfig overrides the timeout budgets.
func WithConfig(cfg Config) ClientOption {
	return func(c *Client) {
		if cfg.TransferTimeout > 0 {
			c.cfg.TransferTimeout = cfg.TransferTimeout
		}
		if cfg.MetadataTimeout > 0 {
			c.cfg.MetadataTimeout = cfg.MetadataTimeout
		}
	}
}

// WithLogger sets the logger for swallowed cleanup failures.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a storage client scoped to one application namespace.
func NewClient(baseURL, appSlug string, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if appSlug == "" {
		return nil, ErrEmptyAppSlug
	}
	if tokens == nil {
		return nil, ErrNilTokenSource
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		appSlug: appSlug,
		tokens:  tokens,
		client:  http.DefaultClient,
		cfg:     DefaultConfig(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload streams a file to the given path.
func (c *Client) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	_, err = async.WithTimeout(ctx, c.cfg.TransferTimeout, "upload file", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, http.MethodPost, c.objectURL(path), r, contentType, nil)
	})
	return err
}

// UploadContent uploads in-memory content to the given path.
func (c *Client) UploadContent(ctx context.Context, path string, content []byte, contentType string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	_, err = async.WithTimeout(ctx, c.cfg.TransferTimeout, "upload content", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, http.MethodPost, c.objectURL(path), bytes.NewReader(content), contentType, nil)
	})
	return err
}

// Download fetches the raw content of the object at path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	return async.WithTimeout(ctx, c.cfg.TransferTimeout, "download file", func(ctx context.Context) ([]byte, error) {
		var body []byte
		err := c.send(ctx, http.MethodGet, c.objectURL(path)+"?content=true", nil, "", func(resp *http.Response) error {
			var readErr error
			body, readErr = io.ReadAll(resp.Body)
			return readErr
		})
		return body, err
	})
}

// List returns the objects under the optional prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]Object, error) {
	return async.WithTimeout(ctx, c.cfg.MetadataTimeout, "list files", func(ctx context.Context) ([]Object, error) {
		endpoint := c.namespaceURL() + "?list=true"
		if prefix != "" {
			endpoint += "&path=" + url.QueryEscape(prefix)
		}
		var payload struct {
			Files []Object `json:"files"`
		}
		err := c.send(ctx, http.MethodGet, endpoint, nil, "", func(resp *http.Response) error {
			return json.NewDecoder(resp.Body).Decode(&payload)
		})
		return payload.Files, err
	})
}

// Info returns the metadata of the object at path.
func (c *Client) Info(ctx context.Context, path string) (*Object, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	return async.WithTimeout(ctx, c.cfg.MetadataTimeout, "get file info", func(ctx context.Context) (*Object, error) {
		var obj Object
		err := c.send(ctx, http.MethodGet, c.objectURL(path), nil, "", func(resp *http.Response) error {
			return json.NewDecoder(resp.Body).Decode(&obj)
		})
		if err != nil {
			return nil, err
		}
		return &obj, nil
	})
}

// Delete removes the object at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	_, err = async.WithTimeout(ctx, c.cfg.MetadataTimeout, "delete file", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, http.MethodDelete, c.objectURL(path), nil, "", nil)
	})
	return err
}

func (c *Client) namespaceURL() string {
	return c.baseURL + "/api/v1/storage/" + url.PathEscape(c.appSlug)
}

func (c *Client) objectURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.namespaceURL() + "/" + strings.Join(segments, "/")
}

// send issues one authenticated request and hands a 2xx response to handle.
// The response body is always drained and closed here.
func (c *Client) send(ctx context.Context, method, endpoint string, body io.Reader, contentType string, handle func(*http.Response) error) error {
	token := c.tokens(ctx)
	if token == "" {
		return ErrNoAccessToken
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if handle != nil {
		return handle(resp)
	}
	return nil
}

// decodeError surfaces the backend's JSON error field, falling back to a
// generic status message.
func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode == http.StatusNotFound {
		if payload.Error != "" {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, payload.Error)
		}
		return ErrObjectNotFound
	}
	if payload.Error != "" {
		return fmt.Errorf("storage request failed: %s", payload.Error)
	}
	return fmt.Errorf("storage request failed with status %d", resp.StatusCode)
}
