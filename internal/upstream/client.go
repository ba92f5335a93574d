// Package upstream implements the gateway engine on a browser-fingerprinting
// TLS client.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"

	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
)

// DefaultMaxBodyBytes bounds how much of an upstream body is read.
const DefaultMaxBodyBytes = 32 << 20

// Doer sends a prepared request. tls_client.HttpClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls how the client presents itself upstream.
type Config struct {
	ClientProfile      string
	Timeout            time.Duration
	FollowRedirects    bool
	InsecureSkipVerify bool
	ProxyURL           string
	MaxBodyBytes       int64
}

// Client is the gateway engine. One operation exists per verb; all of them
// share request construction and response decoding.
type Client struct {
	doer         Doer
	profile      string
	maxBodyBytes int64
}

var _ gateway.Engine = (*Client)(nil)

// New builds a client with the configured TLS profile.
func New(cfg Config) (*Client, error) {
	profile, name, err := lookupProfile(cfg.ClientProfile)
	if err != nil {
		return nil, err
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profile),
	}
	if cfg.Timeout > 0 {
		seconds := int(cfg.Timeout.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		options = append(options, tls_client.WithTimeoutSeconds(seconds))
	}
	if !cfg.FollowRedirects {
		options = append(options, tls_client.WithNotFollowRedirects())
	}
	if cfg.InsecureSkipVerify {
		options = append(options, tls_client.WithInsecureSkipVerify())
	}
	if proxy := strings.TrimSpace(cfg.ProxyURL); proxy != "" {
		if _, err := url.Parse(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		options = append(options, tls_client.WithProxyUrl(proxy))
	}

	doer, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create tls client: %w", err)
	}

	client := NewWithDoer(doer, cfg.MaxBodyBytes)
	client.profile = name
	return client, nil
}

// NewWithDoer wraps an existing transport.
func NewWithDoer(doer Doer, maxBodyBytes int64) *Client {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{doer: doer, profile: defaultProfileName, maxBodyBytes: maxBodyBytes}
}

// Profile returns the name of the TLS profile in use.
func (c *Client) Profile() string {
	return c.profile
}

func (c *Client) Get(ctx context.Context, call gateway.Call) (*gateway.Response, error) {
	return c.do(ctx, http.MethodGet, call)
}

func (c *Client) Post(ctx context.Context, call gateway.Call) (*gateway.Response, error) {
	return c.do(ctx, http.MethodPost, call)
}

func (c *Client) Put(ctx context.Context, call gateway.Call) (*gateway.Response, error) {
	return c.do(ctx, http.MethodPut, call)
}

func (c *Client) Delete(ctx context.Context, call gateway.Call) (*gateway.Response, error) {
	return c.do(ctx, http.MethodDelete, call)
}

func (c *Client) do(ctx context.Context, method string, call gateway.Call) (*gateway.Response, error) {
	if c == nil || c.doer == nil {
		return nil, errors.New("upstream client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := buildRequest(ctx, method, call)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, err
	}
	body = decodeResidual(resp.Header.Get("Content-Encoding"), body)

	finalURL := call.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &gateway.Response{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       string(body),
	}, nil
}

func buildRequest(ctx context.Context, method string, call gateway.Call) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch {
	case call.File != nil:
		payload, ct, err := multipartBody(call.Data, call.File)
		if err != nil {
			return nil, err
		}
		body, contentType = payload, ct
	case len(call.Data) > 0:
		body = bytes.NewReader(call.Data)
	}

	req, err := http.NewRequestWithContext(ctx, method, call.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	order := make([]string, 0, len(call.Headers)+1)
	seen := make(map[string]bool, len(call.Headers)+1)
	addOrder := func(name string) {
		lower := strings.ToLower(name)
		if !seen[lower] {
			seen[lower] = true
			order = append(order, lower)
		}
	}
	for _, header := range call.Headers {
		if contentType != "" && strings.EqualFold(header.Name, "Content-Type") {
			continue
		}
		req.Header.Set(header.Name, header.Value)
		addOrder(header.Name)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		addOrder("Content-Type")
	}
	if len(order) > 0 {
		req.Header[http.HeaderOrderKey] = order
	}

	return req, nil
}

func readBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}

// flattenHeaders keeps the last value of repeated headers.
func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 || name == http.HeaderOrderKey || name == http.PHeaderOrderKey {
			continue
		}
		out[name] = values[len(values)-1]
	}
	return out
}
