// Package plex is a client for the plex.tv account API and the
// administration surface of a Plex Media Server: device discovery,
// library enumeration, friend listing, and library sharing.
package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"sharesync/internal/httputil"
	"sharesync/internal/models"
)

const DefaultAccountURL = "https://plex.tv"

type Client struct {
	token      string
	accountURL string
	account    *http.Client // plex.tv traffic
	server     *http.Client // direct server traffic
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithAccountURL overrides the plex.tv base URL. Used by tests.
func WithAccountURL(u string) Option {
	return func(c *Client) { c.accountURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.account = hc
		c.server = hc
	}
}

func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, models.ErrNoToken
	}
	c := &Client{
		token:      token,
		accountURL: DefaultAccountURL,
		account:    httputil.NewClientWithTimeout(httputil.AccountTimeout),
		server:     httputil.NewClient(),
		limiter:    rate.NewLimiter(25, 25),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", "sharesync")
	req.Header.Set("X-Plex-Product", "ShareSync")
	req.Header.Set("X-Plex-Version", "1.0.0")
	req.Header.Set("Accept", "application/xml")
	return req, nil
}

// accountGet issues a rate-limited GET against the plex.tv API and
// returns the response body.
func (c *Client) accountGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	u := c.accountURL + path
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.account.Do(req)
	if err != nil {
		return nil, &models.TransportError{URI: u, Err: err}
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProtocolError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return nil, &models.TransportError{URI: u, Err: err}
	}
	return body, nil
}

// isAccountHost reports whether the URI points at the generic account
// service rather than a specific server. Such a URI cannot serve as a
// direct server address and never short-circuits discovery.
func (c *Client) isAccountHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "plex.tv" || strings.HasSuffix(host, ".plex.tv") {
		return true
	}
	if au, err := url.Parse(c.accountURL); err == nil && au.Host == u.Host {
		return true
	}
	return false
}
