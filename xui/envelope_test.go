package xui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsanaei/xui-gateway/domain"
)

func newEnvelopeClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return New(Options{BaseURL: server.URL})
}

func TestCallOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantObj   string
		wantStale bool
		wantMsg   string
	}{
		{"success", 200, `{"success":true,"msg":"","obj":{"id":3}}`, `{"id":3}`, false, ""},
		{"rejected", 200, `{"success":false,"msg":"Port already in use"}`, "", false, "Port already in use"},
		{"rejected without msg", 200, `{"success":false}`, "", false, "unknown error from 3x-ui API"},
		{"bad status", 502, `bad gateway`, "", false, "HTTP error 502"},
		{"empty body", 200, ``, "", true, "authentication likely stale"},
		{"not json", 200, `<html>login</html>`, "", false, "invalid JSON response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newEnvelopeClient(t, tt.status, tt.body)
			obj, err := c.call(context.Background(), http.MethodGet, ep("/panel/api/test"), nil)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.JSONEq(t, tt.wantObj, string(obj))
				return
			}
			assert.ErrorIs(t, err, domain.ErrUpstream)
			assert.Contains(t, err.Error(), tt.wantMsg)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantStale, de.Stale)
		})
	}
}

func TestCallBadStatusCarriesDiagnostics(t *testing.T) {
	c := newEnvelopeClient(t, http.StatusInternalServerError, strings.Repeat("e", 500))
	_, err := c.call(context.Background(), http.MethodGet, ep("/panel/api/test"), nil)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusInternalServerError, de.Status)
	assert.Len(t, de.Snippet, snippetLimit)
}

func TestCallUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(Options{BaseURL: url})
	_, err := c.call(context.Background(), http.MethodGet, ep("/panel/api/inbounds/list"), nil)
	assert.ErrorIs(t, err, domain.ErrServerUnreachable)
}

func TestCallSendsTokenUnderBothCookies(t *testing.T) {
	var got map[string]string
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for _, c := range r.Cookies() {
			got[c.Name] = c.Value
		}
		contentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"success":true,"obj":null}`))
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL})
	c.token.Store("tok")
	_, err := c.call(context.Background(), http.MethodPost, ep("/panel/api/inbounds/add"), map[string]int{"port": 443})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"3x-ui": "tok", "session": "tok"}, got)
	assert.Equal(t, "application/json", contentType)
}

func TestExchangeIgnoresSuccessFlag(t *testing.T) {
	c := newEnvelopeClient(t, 200, `{"success":false,"msg":"nope"}`)
	env, err := c.exchange(context.Background(), http.MethodPost, ep("/panel/api/inbounds/del/%d", 9), nil)
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "nope", env.Msg)
}

func TestCloseRecreatesSession(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1"})
	first := c.session()
	assert.Same(t, first, c.session())
	require.NoError(t, c.Close())
	assert.NotSame(t, first, c.session())
}

func TestGetInboundRefusals(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Failed to obtain inbound (record not found)", domain.ErrInboundNotFound},
		{"Record Not Found", domain.ErrInboundNotFound},
		{"database is locked", domain.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			c := newEnvelopeClient(t, 200, `{"success":false,"msg":"`+tt.msg+`"}`)
			_, err := c.GetInbound(context.Background(), 3)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
