package arcgis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sdpublish/internal/config"
	"sdpublish/internal/services"
)

const (
	uploadPath      = "/admin/uploads/upload"
	tokenPath       = "/admin/generateToken"
	infoPath        = "/rest/info"
	publishToolPath = "/rest/services/System/PublishingTools/GPServer/Publish%20Service%20Definition"
	maxErrorBody    = 4096
)

// HTTPDoer describes the HTTP client used by the ArcGIS client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for ArcGIS calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithReferer sets the Referer header sent with every request. Tokens issued
// with client=referer are only honoured when it matches.
func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = strings.TrimSpace(referer)
	}
}

// Client is an ArcGIS Server site client bound to one token.
type Client struct {
	contextURL string
	token      string
	referer    string
	http       HTTPDoer
}

// NewClient builds a client for the site at contextURL, for example
// https://gis.example.com:6443/arcgis.
func NewClient(contextURL, token string, opts ...Option) (*Client, error) {
	base, err := normalizeContextURL(contextURL)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, services.Wrap(services.ErrAuthentication, "client", "", "token is required", nil)
	}
	c := &Client{
		contextURL: base,
		token:      token,
		http:       http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPClient returns the HTTP client configured by the [server] section.
func NewHTTPClient(cfg *config.Config) *http.Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Server.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed site certificates
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// ContextURL returns the normalized site context URL.
func (c *Client) ContextURL() string { return c.contextURL }

func normalizeContextURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", services.Wrap(services.ErrConfiguration, "client", "", "server url is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", services.Wrap(services.ErrConfiguration, "client", "", fmt.Sprintf("invalid server url %q", raw), err)
	}
	return trimmed, nil
}

// postForm sends an application/x-www-form-urlencoded POST with token and
// f=json added, and decodes the JSON response into out.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("f", "json")
	form.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contextURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if apiErr := env.err(); apiErr != nil {
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
