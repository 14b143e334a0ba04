// Package xui adapts the 3x-ui panel HTTP API to the domain.VPNServer port.
package xui

import (
	"crypto/tls"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/mhsanaei/xui-gateway/domain"
)

const (
	// Session cookie names, in lookup order. Older panels use the
	// generic name.
	primaryCookie  = "3x-ui"
	fallbackCookie = "session"

	snippetLimit   = 200
	defaultTimeout = 30 * time.Second
)

// Options configures a Client. Timeout bounds each HTTP request and
// defaults to 30s.
type Options struct {
	BaseURL   string
	Username  string
	Password  string
	Timeout   time.Duration
	VerifySSL bool
}

// Client talks to one 3x-ui panel. It is safe for concurrent use; the
// session token is shared and the last successful login wins.
type Client struct {
	baseURL   string
	username  string
	password  string
	timeout   time.Duration
	verifySSL bool

	token atomic.String

	mu   sync.Mutex
	http *http.Client
}

var _ domain.VPNServer = (*Client)(nil)

// New returns a client for the panel at opts.BaseURL. No request is
// sent until the first call.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		username:  opts.Username,
		password:  opts.Password,
		timeout:   timeout,
		verifySSL: opts.VerifySSL,
	}
}

// session returns the pooled HTTP client, creating it on first use.
func (c *Client) session() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: !c.verifySSL},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c.http
}

// Close drops idle connections. The client stays usable.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		c.http.CloseIdleConnections()
		c.http = nil
	}
	return nil
}

// Token is the current session cookie value, empty before login.
func (c *Client) Token() string {
	return c.token.Load()
}

// LoggedIn reports whether a session token is held.
func (c *Client) LoggedIn() bool {
	return c.token.Load() != ""
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func snippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit])
	}
	return string(body)
}
