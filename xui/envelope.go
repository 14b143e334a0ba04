package xui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/metrics"
)

// envelope is the {success,msg,obj} wrapper of every panel API reply.
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// endpoint pairs a concrete request path with the route template used
// to label metrics.
type endpoint struct {
	route string
	path  string
}

func ep(route string, a ...any) endpoint {
	return endpoint{route: route, path: fmt.Sprintf(route, a...)}
}

// call performs an authenticated request and returns the obj payload of
// a successful envelope.
func (c *Client) call(ctx context.Context, method string, e endpoint, body any) (json.RawMessage, error) {
	env, err := c.exchange(ctx, method, e, body)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, rejected(e, env)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeOK).Inc()
	return env.Obj, nil
}

// rejected counts and builds the error for a success:false envelope.
func rejected(e endpoint, env *envelope) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeRejected).Inc()
	msg := env.Msg
	if msg == "" {
		msg = "unknown error from 3x-ui API"
	}
	return &domain.Error{Kind: domain.ErrUpstream, Message: msg}
}

// recordNotFound reports whether a refusal is the panel's rendering of
// gorm.ErrRecordNotFound.
func recordNotFound(env *envelope) bool {
	return strings.Contains(strings.ToLower(env.Msg), "record not found")
}

// exchange does everything call does except checking the success flag.
func (c *Client) exchange(ctx context.Context, method string, e endpoint, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to encode request for %s", e.path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(e.path), reader)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to build request for %s", e.path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token.Load(); token != "" {
		req.AddCookie(&http.Cookie{Name: fallbackCookie, Value: token})
		req.AddCookie(&http.Cookie{Name: primaryCookie, Value: token})
	}

	logger.Debugf("API request: %s %s", method, e.path)
	resp, err := c.session().Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeUnreachable).Inc()
		return nil, domain.Wrap(domain.ErrServerUnreachable, err, "API request %s %s failed", method, e.path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeUnreachable).Inc()
		return nil, domain.Wrap(domain.ErrServerUnreachable, err, "failed to read response of %s", e.path)
	}
	logger.Debugf("API response status: %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeStatus).Inc()
		return nil, &domain.Error{
			Kind:    domain.ErrUpstream,
			Message: fmt.Sprintf("HTTP error %d for %s: %s", resp.StatusCode, e.path, snippet(raw)),
			Status:  resp.StatusCode,
			Snippet: snippet(raw),
		}
	}
	if len(raw) == 0 {
		metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeEmpty).Inc()
		return nil, &domain.Error{
			Kind:    domain.ErrUpstream,
			Message: fmt.Sprintf("empty response from %s, authentication likely stale or endpoint incorrect", e.path),
			Status:  resp.StatusCode,
			Stale:   true,
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeMalformed).Inc()
		return nil, &domain.Error{
			Kind:    domain.ErrUpstream,
			Message: fmt.Sprintf("invalid JSON response from %s: %s", e.path, snippet(raw)),
			Err:     err,
			Status:  resp.StatusCode,
			Snippet: snippet(raw),
		}
	}
	return &env, nil
}
