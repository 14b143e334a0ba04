package xui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/metrics"
)

const loginPath = "/login"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReply struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// Authenticate logs in and stores the session token. It never retries.
func (c *Client) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return domain.Wrap(domain.ErrAuthentication, err, "failed to encode login request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(loginPath), bytes.NewReader(payload))
	if err != nil {
		return domain.Wrap(domain.ErrAuthentication, err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.session().Do(req)
	if err != nil {
		metrics.PanelLoginsTotal.WithLabelValues(metrics.OutcomeUnreachable).Inc()
		return domain.Wrap(domain.ErrAuthentication, err, "connection error during authentication")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PanelLoginsTotal.WithLabelValues(metrics.OutcomeUnreachable).Inc()
		return domain.Wrap(domain.ErrAuthentication, err, "failed to read login response")
	}

	token, err := classifyLogin(resp.StatusCode, body, resp.Cookies())
	if err != nil {
		metrics.PanelLoginsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		logger.Warning("panel login failed:", err)
		return err
	}
	c.token.Store(token)
	metrics.PanelLoginsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	logger.Debug("panel login succeeded")
	return nil
}

// classifyLogin decides whether a login reply carries a usable session.
// The panel answers in three different shapes depending on its version:
// a JSON envelope plus cookie, an empty body plus cookie, or a non-JSON
// 200 plus cookie. Everything else is a failure.
func classifyLogin(status int, body []byte, cookies []*http.Cookie) (string, error) {
	token := sessionToken(cookies)
	if status < 200 || status > 299 {
		return "", authFailure("login rejected with status %d: %s", status, snippet(body))
	}

	if len(body) == 0 {
		if token != "" {
			return token, nil
		}
		return "", authFailure("empty response from server and no session cookie received, check URL, username and password")
	}

	var reply loginReply
	if err := json.Unmarshal(body, &reply); err != nil {
		if status == http.StatusOK && token != "" {
			return token, nil
		}
		return "", authFailure("invalid response format, status %d: %s", status, snippet(body))
	}
	if !reply.Success {
		msg := reply.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return "", authFailure("authentication failed: %s", msg)
	}
	if token == "" {
		return "", authFailure("login succeeded but no session cookie was issued")
	}
	return token, nil
}

func sessionToken(cookies []*http.Cookie) string {
	for _, name := range []string{primaryCookie, fallbackCookie} {
		for _, cookie := range cookies {
			if cookie.Name == name && cookie.Value != "" {
				return cookie.Value
			}
		}
	}
	return ""
}

func authFailure(format string, a ...any) error {
	return &domain.Error{Kind: domain.ErrAuthentication, Message: fmt.Sprintf(format, a...)}
}
